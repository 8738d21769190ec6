package httpcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryChainDefaultTranslatesHeadParse(t *testing.T) {
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, NewError(HeadParse))
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 400, outcome.Response.Status)
	assert.True(t, outcome.Response.MustCloseAfterWrite)
}

func TestRecoveryChainHttpVersionTooOldSetsUpgrade(t *testing.T) {
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, &Error{Kind: HttpVersionTooOld, Upgrade: "HTTP/1.1"})
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 426, outcome.Response.Status)
	v, ok := HeaderValue(outcome.Response.Headers, "Upgrade")
	assert.True(t, ok)
	assert.Equal(t, "HTTP/1.1", v)
}

func TestRecoveryChainIllegalBodyClientVsHandlerFault(t *testing.T) {
	c := NewRecoveryChain(nil, 5)

	clientFault := c.Recover(nil, NewError(IllegalBody))
	assert.Equal(t, 400, clientFault.Response.Status)

	handlerFault := c.Recover(nil, &Error{Kind: IllegalBody, HandlerFault: true})
	assert.Equal(t, 500, handlerFault.Response.Status)
	assert.True(t, handlerFault.Close)
}

func TestRecoveryChainEndOfStreamClosesWithNoResponse(t *testing.T) {
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, NewError(EndOfStream))
	assert.Nil(t, outcome.Response)
	assert.True(t, outcome.Close)
}

func TestRecoveryChainInterceptorHandlesError(t *testing.T) {
	custom, _ := NewResponse(418).Build()
	interceptor := func(req *Request, err *Error) (*Response, error) {
		if err.Kind == NoRouteFound {
			return custom, nil
		}
		return nil, nil
	}
	c := NewRecoveryChain(nil, 5, interceptor)
	outcome := c.Recover(nil, NewError(NoRouteFound))
	assert.Same(t, custom, outcome.Response)
}

func TestRecoveryChainInterceptorErrorRestartsChain(t *testing.T) {
	attempts := 0
	interceptor := func(req *Request, err *Error) (*Response, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("boom")
		}
		return nil, nil
	}
	c := NewRecoveryChain(nil, 5, interceptor)
	outcome := c.Recover(nil, NewError(NoRouteFound))
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 500, outcome.Response.Status) // "boom" wrapped as Internal on the 2nd attempt
}

func TestRecoveryChainSameInstanceOptOutAdvancesWithoutNewAttempt(t *testing.T) {
	custom, _ := NewResponse(418).Build()
	first := func(req *Request, err *Error) (*Response, error) {
		return nil, err // opt out by re-throwing the exact same instance
	}
	second := func(req *Request, err *Error) (*Response, error) {
		return custom, nil
	}
	// maxAttempts of 1 means a restarted chain would never reach the second
	// interceptor; the same-instance opt-out must not count as a restart.
	c := NewRecoveryChain(nil, 1, first, second)
	outcome := c.Recover(nil, NewError(NoRouteFound))
	assert.Same(t, custom, outcome.Response)
}

func TestRecoveryChainRespectsAttemptCap(t *testing.T) {
	attempts := 0
	interceptor := func(req *Request, err *Error) (*Response, error) {
		attempts++
		return nil, errors.New("still failing")
	}
	c := NewRecoveryChain(nil, 3, interceptor)
	outcome := c.Recover(nil, NewError(NoRouteFound))
	assert.Equal(t, 3, attempts)
	require.NotNil(t, outcome.Response)
}

func TestRecoveryChainResponseRejectedProtocolNotSupportedStaysOpen(t *testing.T) {
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, &Error{Kind: ResponseRejected, RejectReason: ProtocolNotSupported})
	assert.Nil(t, outcome.Response)
	assert.False(t, outcome.Close)
}

func TestRecoveryChainResponseRejectedAlreadyFinalCloses(t *testing.T) {
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, &Error{Kind: ResponseRejected, RejectReason: AlreadyFinal})
	assert.True(t, outcome.Close)
}

package httpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectHandlerFiltersByMethod(t *testing.T) {
	handlers := []*Handler{
		{Method: "GET", Produces: []string{"text/plain"}},
		{Method: "POST", Produces: []string{"text/plain"}},
	}
	h, err := SelectHandler(handlers, "POST", "", "")
	require.NoError(t, err)
	assert.Equal(t, "POST", h.Method)
}

func TestSelectHandlerNoMethodMatch(t *testing.T) {
	handlers := []*Handler{{Method: "GET"}}
	_, err := SelectHandler(handlers, "DELETE", "", "")
	require.Error(t, err)
	assert.Equal(t, NoHandlerFound, unwrapCause(err).Kind)
}

func TestSelectHandlerFiltersByAccepts(t *testing.T) {
	handlers := []*Handler{
		{Method: "POST", Accepts: "application/json", Produces: []string{"text/plain"}},
		{Method: "POST", Accepts: "text/plain", Produces: []string{"text/plain"}},
	}
	h, err := SelectHandler(handlers, "POST", "text/plain", "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", h.Accepts)
}

func TestSelectHandlerRanksByMostSpecificProduce(t *testing.T) {
	handlers := []*Handler{
		{Method: "GET", Produces: []string{"*/*"}},
		{Method: "GET", Produces: []string{"application/json"}},
	}
	h, err := SelectHandler(handlers, "GET", "", "application/json")
	require.NoError(t, err)
	assert.Equal(t, []string{"application/json"}, h.Produces)
}

func TestSelectHandlerAmbiguousWhenTied(t *testing.T) {
	handlers := []*Handler{
		{Method: "GET", Produces: []string{"application/json"}},
		{Method: "GET", Produces: []string{"application/json"}},
	}
	_, err := SelectHandler(handlers, "GET", "", "application/json")
	require.Error(t, err)
	assert.Equal(t, AmbiguousHandler, unwrapCause(err).Kind)
}

func TestSelectHandlerNoHandlerWhenAcceptDoesntMatchAnyProduce(t *testing.T) {
	handlers := []*Handler{{Method: "GET", Produces: []string{"application/json"}}}
	_, err := SelectHandler(handlers, "GET", "", "text/plain")
	require.Error(t, err)
	assert.Equal(t, NoHandlerFound, unwrapCause(err).Kind)
}

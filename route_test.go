package httpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteStaticParamCatchAll(t *testing.T) {
	r, err := ParseRoute("/users/:id/files/*rest")
	require.NoError(t, err)
	require.Len(t, r.Segments, 4)
	assert.Equal(t, SegmentStatic, r.Segments[0].Kind)
	assert.Equal(t, "users", r.Segments[0].Literal)
	assert.Equal(t, SegmentParam, r.Segments[1].Kind)
	assert.Equal(t, "id", r.Segments[1].Name)
	assert.Equal(t, SegmentStatic, r.Segments[2].Kind)
	assert.Equal(t, SegmentCatchAll, r.Segments[3].Kind)
	assert.Equal(t, "rest", r.Segments[3].Name)
}

func TestParseRouteRejectsMissingLeadingSlash(t *testing.T) {
	_, err := ParseRoute("users")
	assert.Error(t, err)
}

func TestParseRouteRejectsCatchAllNotLast(t *testing.T) {
	_, err := ParseRoute("/*rest/more")
	assert.Error(t, err)
}

func TestParseRouteRejectsDuplicateParamNames(t *testing.T) {
	_, err := ParseRoute("/:id/:id")
	assert.Error(t, err)
}

func TestRouteAddHandlerDetectsCollision(t *testing.T) {
	r, err := ParseRoute("/widgets")
	require.NoError(t, err)

	h1 := &Handler{Method: "GET", Produces: []string{"application/json"}}
	h2 := &Handler{Method: "GET", Produces: []string{"application/json"}}

	require.NoError(t, r.AddHandler(h1))
	err = r.AddHandler(h2)
	require.Error(t, err)
	assert.Equal(t, HandlerCollision, unwrapCause(err).Kind)
}

func TestRouteRemoveHandlerByIdentity(t *testing.T) {
	r, err := ParseRoute("/widgets")
	require.NoError(t, err)
	h := &Handler{Method: "GET"}
	require.NoError(t, r.AddHandler(h))

	assert.True(t, r.RemoveHandler(h))
	assert.False(t, r.RemoveHandler(h))
	assert.Empty(t, r.Handlers())
}

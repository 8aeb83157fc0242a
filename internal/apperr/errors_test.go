package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("move: %w", Conflict(CodeSlotOccupied, "slot taken"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(err, &Error{Kind: KindConflict, Code: CodeSlotOccupied}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict, Code: "other"}))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestAsWrapsForeignErrorsAsStorage(t *testing.T) {
	raw := errors.New("pq: relation \"equipment\" does not exist")
	e := As(raw)
	require.NotNil(t, e)
	assert.Equal(t, KindStorage, e.Kind)
	assert.NotContains(t, e.Message, "relation")
	assert.ErrorIs(t, e, raw)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidArgument: http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindStorage:         http.StatusInternalServerError,
		KindUnauthorized:    http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
	}
	for k, want := range cases {
		assert.Equal(t, want, HTTPStatus(k), string(k))
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindNotFound, KindOf(NotFound(CodeSlotNotFound, "slot not found")))
	assert.Equal(t, KindInvalidArgument, KindOf(InvalidArgument("bad %s", "page")))
}

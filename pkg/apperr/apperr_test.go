package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("get run: %w", New(NotFound, "run %s not found", "abc"))

	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(nil, NotFound))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")

	err := Wrap(cause, Transport, "fetch AAPL from alpaca")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch AAPL from alpaca: connection reset", err.Error())
	assert.Nil(t, Wrap(nil, Transport, "unused"))
}

func TestMessage(t *testing.T) {
	err := New(NoData, "No data found for %s from %s", "TEST", "yahoo")
	assert.Equal(t, "NoData: No data found for TEST from yahoo", Message(err))
	assert.Equal(t, "InternalError: boom", Message(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidArgument))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NoData))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Transport))
}

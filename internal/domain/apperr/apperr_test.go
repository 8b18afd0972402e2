package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsSurvivesWrapping(t *testing.T) {
	sentinel := New(KindValidation, "address required")
	wrapped := fmt.Errorf("place order: %w", sentinel)

	require.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.False(t, errors.Is(wrapped, New(KindValidation, "payment method required")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, KindTransaction, "order placement failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "order placement failed", err.Message())
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, IsKind(err, KindTransaction))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
	assert.Nil(t, As(nil))
}

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		kind      Kind
		status    int
		retryable bool
	}{
		{KindValidation, http.StatusUnprocessableEntity, false},
		{KindNotFound, http.StatusNotFound, false},
		{KindConflict, http.StatusConflict, true},
		{KindTransaction, http.StatusBadGateway, false},
		{KindSettlement, http.StatusPaymentRequired, true},
		{Kind("bogus"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			md := MetadataFor(tt.kind)
			assert.Equal(t, tt.status, md.HTTPStatus)
			assert.Equal(t, tt.retryable, md.Retryable)
			assert.NotEmpty(t, md.PublicMessage)
		})
	}
}

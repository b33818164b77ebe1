package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-dashboard/internal/types"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
		wantStatus   int
	}{
		{
			name:         "categorized error passes through",
			err:          NewInvalidAddressError("0x12"),
			wantCategory: CategoryUserInput,
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "wrapped categorized error is found",
			err:          fmt.Errorf("quote transfer: %w", NewPendingError("price feed")),
			wantCategory: CategoryPending,
			wantStatus:   http.StatusServiceUnavailable,
		},
		{
			name:         "service error with user code",
			err:          &types.ServiceError{Code: "INVALID_PARAMETER", Message: "bad"},
			wantCategory: CategoryUserInput,
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "plain error becomes internal",
			err:          stderrors.New("boom"),
			wantCategory: CategorySystem,
			wantStatus:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantStatus, GetHTTPStatusCode(tt.err))
		})
	}

	assert.Nil(t, Categorize(nil))
}

func TestFromProvider(t *testing.T) {
	assert.Nil(t, FromProvider("explorer", nil))

	timeout := FromProvider("explorer", fmt.Errorf("list: %w", context.DeadlineExceeded))
	assert.Equal(t, "PROVIDER_TIMEOUT", timeout.Code)
	assert.Equal(t, http.StatusGatewayTimeout, timeout.StatusCode)

	generic := FromProvider("price feed", stderrors.New("bad gateway"))
	assert.Equal(t, "PROVIDER_ERROR", generic.Code)
	assert.True(t, stderrors.Is(generic, generic.Cause))

	limited := NewProviderRateLimitError("explorer", nil)
	assert.Same(t, limited, FromProvider("explorer", limited))
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsUserError(NewInsufficientFundsError("value", "You don't have enough ETH.")))
	assert.True(t, IsUserError(NewTransfersDisabledError("Ethereum")))
	assert.False(t, IsUserError(NewProviderRateLimitError("explorer", nil)))
	assert.False(t, IsUserError(NewInternalError("x", nil)))
	assert.True(t, IsUserError(fmt.Errorf("wrap: %w", NewInvalidParameterError("to", "bad"))))
	assert.False(t, IsUserError(NewPendingError("balance")))
}

func TestErrorMessages(t *testing.T) {
	err := NewProviderError("rpc", stderrors.New("dial tcp"))
	assert.Equal(t, "PROVIDER_ERROR: data provider error: rpc (caused by: dial tcp)", err.Error())

	svc := NewUnsupportedNetworkError("polygon").ToServiceError()
	assert.Equal(t, "UNSUPPORTED_NETWORK", svc.Code)
	assert.Equal(t, "Please make sure you are on the correct Network", svc.Message)
	assert.Equal(t, "polygon", svc.Details["network"])
}

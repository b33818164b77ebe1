package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/types"
)

func TestGetActivity(t *testing.T) {
	f := newFixture()
	f.explorer.txs = []types.NativeTransaction{
		{Hash: "0xn1", From: recipient, To: "0x742d35cc6634c0532925a3b844bc454e4438f44e", Value: "250000000000000000", Timestamp: 1710003600},
		{Hash: "0xn2", From: viewer, To: recipient, Value: "1000000000000000000", Timestamp: 1709900000},
	}
	f.explorer.tokens = tokenTransfers()[:1]

	view, err := NewActivityService(f.src).GetActivity(context.Background(), viewer, "sepolia")
	require.NoError(t, err)
	require.Len(t, view.Days, 2)

	today := view.Days[0]
	assert.Equal(t, "2024-03-09", today.Date)
	assert.Equal(t, "March 9, 2024", today.Header)
	require.Len(t, today.Entries, 2)

	in := today.Entries[0]
	assert.Equal(t, types.DirectionInbound, in.Direction)
	assert.Equal(t, "Receive", in.Label)
	assert.Equal(t, "+0.25", in.Delta)
	assert.Equal(t, "ETH", in.Symbol)
	assert.Equal(t, "5:00 pm", in.Hour)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xn1", in.ExplorerURL)

	token := today.Entries[1]
	assert.Equal(t, types.KindToken, token.Kind)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, "+1000000", token.Delta)

	out := view.Days[1].Entries[0]
	assert.Equal(t, "2024-03-08", view.Days[1].Date)
	assert.Equal(t, "Sent", out.Label)
	assert.Equal(t, "-1", out.Delta)
	assert.Equal(t, "0x1c7D...9C7238", out.ShortCounterparty)
}

func TestGetActivityEmpty(t *testing.T) {
	view, err := NewActivityService(newFixture().src).GetActivity(context.Background(), viewer, "")
	require.NoError(t, err)
	assert.Empty(t, view.Days)
}

func TestGetActivityExplorerFailure(t *testing.T) {
	f := newFixture()
	f.explorer.txErr = errors.New("502 bad gateway")

	_, err := NewActivityService(f.src).GetActivity(context.Background(), viewer, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperrors.GetHTTPStatusCode(err))
	assert.Equal(t, providerExplorer, apperrors.Categorize(err).Details["provider"])
}

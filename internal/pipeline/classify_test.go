package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wallet-dashboard/internal/types"
)

const viewer = "0xAbCdEf0000000000000000000000000000000001"

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		record    types.ActivityRecord
		viewer    string
		direction types.TransactionDirection
		label     string
		delta     string
	}{
		{
			name:      "native inbound, case-insensitive",
			record:    types.ActivityRecord{Kind: types.KindNative, To: "0xabcdef0000000000000000000000000000000001", Value: "1500000000000000000"},
			viewer:    viewer,
			direction: types.DirectionInbound,
			label:     "Receive",
			delta:     "+1.5",
		},
		{
			name:      "native outbound",
			record:    types.ActivityRecord{Kind: types.KindNative, From: viewer, To: "0x9999", Value: "1000000000000000"},
			viewer:    viewer,
			direction: types.DirectionOutbound,
			label:     "Sent",
			delta:     "-0.001",
		},
		{
			name:      "token amounts shown as listed",
			record:    types.ActivityRecord{Kind: types.KindToken, To: viewer, Value: "2500000"},
			viewer:    viewer,
			direction: types.DirectionInbound,
			label:     "Receive",
			delta:     "+2500000",
		},
		{
			name:      "unparseable native value kept raw",
			record:    types.ActivityRecord{Kind: types.KindNative, To: "0x1", Value: "n/a"},
			viewer:    viewer,
			direction: types.DirectionOutbound,
			label:     "Sent",
			delta:     "-n/a",
		},
		{
			name:      "no viewer",
			record:    types.ActivityRecord{Kind: types.KindNative, To: "", Value: "0"},
			viewer:    "",
			direction: types.DirectionOutbound,
			label:     "Sent",
			delta:     "-0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.record, tt.viewer)
			assert.Equal(t, tt.direction, got.Direction)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.delta, got.FormattedDelta)
		})
	}
}

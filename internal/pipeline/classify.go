package pipeline

import (
	"strings"

	"github.com/wallet-dashboard/internal/types"
)

// Classification is the viewer-relative reading of a transfer
type Classification struct {
	Direction      types.TransactionDirection `json:"direction"`
	Label          string                     `json:"label"`
	Amount         string                     `json:"amount"`
	FormattedDelta string                     `json:"formattedDelta"`
}

// Classify decides whether the viewer received or sent the record and signs the amount.
// A record is inbound iff its recipient equals the viewer, ignoring case. Native values are
// converted from wei; token values are shown as listed.
func Classify(record types.ActivityRecord, viewer string) Classification {
	dir := types.DirectionOutbound
	if viewer != "" && strings.EqualFold(record.To, viewer) {
		dir = types.DirectionInbound
	}

	amount := record.Value
	if record.Kind != types.KindToken {
		if ether, ok := FormatEther(record.Value); ok {
			amount = ether
		}
	}

	c := Classification{
		Direction: dir,
		Amount:    amount,
	}
	if dir == types.DirectionInbound {
		c.Label = "Receive"
		c.FormattedDelta = "+" + amount
	} else {
		c.Label = "Sent"
		c.FormattedDelta = "-" + amount
	}
	return c
}

package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/pipeline"
	"github.com/wallet-dashboard/internal/types"
)

// ActivityService groups the recent transfers of an address by day
type ActivityService struct {
	src *Sources
}

// NewActivityService creates a new activity service
func NewActivityService(src *Sources) *ActivityService {
	return &ActivityService{src: src}
}

// ActivityEntry is one transfer as seen by the viewer
type ActivityEntry struct {
	Hash              string                     `json:"hash"`
	Kind              types.RecordKind           `json:"kind"`
	Direction         types.TransactionDirection `json:"direction"`
	Label             string                     `json:"label"`
	Amount            string                     `json:"amount"`
	Delta             string                     `json:"delta"`
	Symbol            string                     `json:"symbol"`
	Counterparty      string                     `json:"counterparty"`
	ShortCounterparty string                     `json:"shortCounterparty"`
	Timestamp         int64                      `json:"timestamp"`
	Hour              string                     `json:"hour"`
	ExplorerURL       string                     `json:"explorerUrl"`
}

// DayView is the activity of one UTC day
type DayView struct {
	Date    string          `json:"date"`
	Header  string          `json:"header"`
	Entries []ActivityEntry `json:"entries"`
}

// ActivityView is the day-grouped activity of an address
type ActivityView struct {
	Network types.Network `json:"network"`
	Address string        `json:"address"`
	Days    []DayView     `json:"days"`
}

// GetActivity lists the latest native and token transfers of an address grouped by UTC day.
// Days keep first-seen order: native transfer days, then days that only hold token transfers.
func (s *ActivityService) GetActivity(ctx context.Context, address, networkKey string) (*ActivityView, error) {
	network, _, err := s.src.resolve(address, networkKey)
	if err != nil {
		return nil, err
	}

	var (
		nativeRes = pipeline.Pending[[]types.NativeTransaction]()
		tokenRes  = pipeline.Pending[[]types.TokenTransaction]()
	)
	var g errgroup.Group
	g.Go(func() error {
		nativeRes = s.src.transactions(ctx, network, address)
		return nil
	})
	g.Go(func() error {
		tokenRes = s.src.tokenTransfers(ctx, network, address)
		return nil
	})
	_ = g.Wait()

	viewRes := pipeline.Derive(func() *ActivityView {
		native, _ := nativeRes.Value()
		token, _ := tokenRes.Value()
		return newActivityView(network, address, pipeline.GroupByDay(native, token))
	}, nativeRes, tokenRes)

	view, ok := viewRes.Value()
	if !ok {
		st := pipeline.Join(nativeRes, tokenRes)
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"address": address,
			"network": network.Key,
		}).WithError(st.Err).Warn("Activity sources not ready")
		return nil, joinError(st, providerExplorer, providerExplorer)
	}
	return view, nil
}

func newActivityView(network types.Network, viewer string, buckets []types.DayBucket) *ActivityView {
	days := make([]DayView, len(buckets))
	for i, b := range buckets {
		day := DayView{Date: b.Date, Entries: make([]ActivityEntry, len(b.Records))}
		for j, rec := range b.Records {
			if j == 0 {
				day.Header = pipeline.FormatDate(rec.Timestamp)
			}
			day.Entries[j] = newActivityEntry(network, viewer, rec)
		}
		days[i] = day
	}
	return &ActivityView{Network: network, Address: viewer, Days: days}
}

func newActivityEntry(network types.Network, viewer string, rec types.ActivityRecord) ActivityEntry {
	c := pipeline.Classify(rec, viewer)
	symbol := network.NativeSymbol
	if rec.Kind == types.KindToken {
		symbol = rec.TokenSymbol
	}
	return ActivityEntry{
		Hash:              rec.Hash,
		Kind:              rec.Kind,
		Direction:         c.Direction,
		Label:             c.Label,
		Amount:            c.Amount,
		Delta:             c.FormattedDelta,
		Symbol:            symbol,
		Counterparty:      rec.To,
		ShortCounterparty: pipeline.ShortenAddress(rec.To),
		Timestamp:         rec.Timestamp,
		Hour:              pipeline.FormatHour(rec.Timestamp),
		ExplorerURL:       network.TxURL(rec.Hash),
	}
}

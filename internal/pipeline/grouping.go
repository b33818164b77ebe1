package pipeline

import "github.com/wallet-dashboard/internal/types"

// GroupByDay merges native and token transfers and buckets them by UTC date.
// Buckets appear in the order their date is first seen (native records first, then token
// records); records inside a bucket keep their arrival order. Hashes shared across the two
// lists are not deduplicated.
func GroupByDay(native []types.NativeTransaction, token []types.TokenTransaction) []types.DayBucket {
	merged := make([]types.ActivityRecord, 0, len(native)+len(token))
	for _, tx := range native {
		merged = append(merged, tx.Record())
	}
	for _, tx := range token {
		merged = append(merged, tx.Record())
	}
	return GroupRecordsByDay(merged)
}

// GroupRecordsByDay buckets already merged records by UTC date.
func GroupRecordsByDay(records []types.ActivityRecord) []types.DayBucket {
	index := make(map[string]int)
	buckets := make([]types.DayBucket, 0)

	for _, rec := range records {
		key := DateKey(rec.Timestamp)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, types.DayBucket{Date: key})
		}
		buckets[i].Records = append(buckets[i].Records, rec)
	}

	return buckets
}

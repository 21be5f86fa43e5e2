// Package features computes the fixed 18-field feature vector for a
// transaction from its own fields plus a read-only snapshot of prior
// history, then records the transaction into history for future extractions.
package features

import (
	"math"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/history"
)

// Extractor reads and updates a history.Store to compute feature vectors.
type Extractor struct {
	store *history.Store
}

// New creates an Extractor backed by store.
func New(store *history.Store) *Extractor {
	return &Extractor{store: store}
}

// Extract computes the feature vector for tx against the history snapshot
// taken before this call, then appends tx into history. The snapshot is
// always taken first: tx's own features never include itself.
func (e *Extractor) Extract(tx domain.Transaction) domain.FeatureVector {
	userHist := e.store.Snapshot(history.NamespaceUser, tx.UserID)
	var merchantHist, ipHist []domain.HistoryEntry
	if tx.MerchantID != "" {
		merchantHist = e.store.Snapshot(history.NamespaceMerchant, tx.MerchantID)
	}
	if tx.IPAddress != "" {
		ipHist = e.store.Snapshot(history.NamespaceIP, tx.IPAddress)
	}

	fv := buildVector(tx, userHist, merchantHist, ipHist)

	e.record(tx)

	return fv
}

// record appends tx into every namespace it participates in. Must run after
// the snapshot used to build the feature vector, never before.
func (e *Extractor) record(tx domain.Transaction) {
	now := tx.Timestamp.Unix()
	entry := domain.HistoryEntry{
		Timestamp: now,
		UserID:    tx.UserID,
		Amount:    tx.Amount,
		Type:      tx.Type,
	}
	e.store.Append(history.NamespaceUser, tx.UserID, entry)
	if tx.MerchantID != "" {
		e.store.Append(history.NamespaceMerchant, tx.MerchantID, entry)
	}
	if tx.IPAddress != "" {
		e.store.Append(history.NamespaceIP, tx.IPAddress, entry)
	}
}

func buildVector(tx domain.Transaction, userHist, merchantHist, ipHist []domain.HistoryEntry) domain.FeatureVector {
	now := tx.Timestamp.Unix()
	weekday := (int(tx.Timestamp.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6

	fv := domain.FeatureVector{
		Amount:          tx.Amount,
		HourOfDay:       float64(tx.Timestamp.Hour()),
		DayOfWeek:       float64(weekday),
		TransactionType: tx.Type.Encode(),
	}
	if weekday >= 5 {
		fv.IsWeekend = 1.0
	}

	userAvg, userStd, userMax, userMin := amountStats(userHist)
	if len(userHist) == 0 {
		userAvg, userMax, userMin = tx.Amount, tx.Amount, tx.Amount
		userStd = 0
	}
	fv.UserAvgAmount = userAvg
	fv.UserStdAmount = userStd
	fv.UserMaxAmount = userMax
	fv.UserMinAmount = userMin
	fv.AmountVsAvg = tx.Amount / (userAvg + 1e-6)

	fv.TxnsLastHour = float64(countWithin(userHist, now, 3600))
	fv.TxnsLastDay = float64(countWithin(userHist, now, 86400))
	fv.TimeSinceLastTxn = hoursSinceLast(userHist, now)

	merchantAvg, merchantStd, _, _ := amountStats(merchantHist)
	fv.MerchantAvgAmount = merchantAvg
	fv.MerchantStdAmount = merchantStd

	ipCount := len(ipHist)
	fv.IPTxnCount = float64(ipCount)
	uniqueUsers := uniqueUserCount(ipHist)
	fv.IPUniqueUsers = float64(uniqueUsers)
	fv.IPUserRatio = float64(uniqueUsers) / (float64(ipCount) + 1)

	return fv
}

func amountStats(entries []domain.HistoryEntry) (avg, std, max, min float64) {
	if len(entries) == 0 {
		return 0, 0, 0, 0
	}
	var sum float64
	max, min = entries[0].Amount, entries[0].Amount
	for _, e := range entries {
		sum += e.Amount
		if e.Amount > max {
			max = e.Amount
		}
		if e.Amount < min {
			min = e.Amount
		}
	}
	avg = sum / float64(len(entries))

	if len(entries) < 2 {
		return avg, 0, max, min
	}
	var variance float64
	for _, e := range entries {
		d := e.Amount - avg
		variance += d * d
	}
	variance /= float64(len(entries))
	std = math.Sqrt(variance)
	return avg, std, max, min
}

func countWithin(entries []domain.HistoryEntry, now int64, seconds int64) int {
	n := 0
	for _, e := range entries {
		if now-e.Timestamp < seconds {
			n++
		}
	}
	return n
}

func hoursSinceLast(entries []domain.HistoryEntry, now int64) float64 {
	if len(entries) == 0 {
		return 24.0
	}
	last := entries[0].Timestamp
	for _, e := range entries {
		if e.Timestamp > last {
			last = e.Timestamp
		}
	}
	return float64(now-last) / 3600.0
}

func uniqueUserCount(entries []domain.HistoryEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.UserID] = struct{}{}
	}
	return len(seen)
}

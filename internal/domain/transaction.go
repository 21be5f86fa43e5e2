// Package domain holds the core data types shared across the pipeline:
// transactions, feature vectors, scores, and the enriched results that
// the pipeline publishes and persists.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionType enumerates the kinds of transaction this engine understands.
type TransactionType string

const (
	TransactionPayment    TransactionType = "payment"
	TransactionTransfer   TransactionType = "transfer"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionDeposit    TransactionType = "deposit"
	TransactionRefund     TransactionType = "refund"
)

// typeEncoding maps a transaction type to the numeric encoding used in
// feature position 5. Unknown types encode to 0.
var typeEncoding = map[TransactionType]float64{
	TransactionPayment:    1,
	TransactionTransfer:   2,
	TransactionWithdrawal: 3,
	TransactionDeposit:    4,
	TransactionRefund:     5,
}

// Encode returns the numeric feature encoding for this transaction type.
func (t TransactionType) Encode() float64 {
	return typeEncoding[t]
}

// Transaction is an immutable input event.
type Transaction struct {
	TransactionID string                 `json:"transaction_id"`
	UserID        string                 `json:"user_id"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	Type          TransactionType        `json:"transaction_type"`
	MerchantID    string                 `json:"merchant_id,omitempty"`
	MerchantCat   string                 `json:"merchant_category,omitempty"`
	Location      string                 `json:"location,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
	DeviceID      string                 `json:"device_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// timestampLayouts are tried in order when decoding the timestamp field.
// The RFC3339 layouts cover the offset/Z form; the last two layouts cover the
// naive ISO-8601 form the original pydantic models accept with no offset at all.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON accepts ISO-8601 timestamps with or without a trailing Z or
// UTC offset, per SPEC_FULL.md §6. A naive timestamp (no offset) is assumed
// to be UTC.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Timestamp == "" {
		t.Timestamp = time.Time{}
		return nil
	}

	var err error
	for _, layout := range timestampLayouts {
		var ts time.Time
		ts, err = time.Parse(layout, aux.Timestamp)
		if err == nil {
			t.Timestamp = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("domain: unrecognized timestamp format %q: %w", aux.Timestamp, err)
}

// Normalize fills in defaults a decoder might have left empty.
func (t *Transaction) Normalize() {
	if t.Currency == "" {
		t.Currency = "USD"
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
}

package features

import (
	"testing"
	"time"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(userID string, amount float64, at time.Time) domain.Transaction {
	return domain.Transaction{
		TransactionID: "t-" + at.String(),
		UserID:        userID,
		Amount:        amount,
		Type:          domain.TransactionPayment,
		Timestamp:     at,
	}
}

func TestFirstTransactionUsesSelfAsBaseline(t *testing.T) {
	e := New(history.New(100))
	now := time.Now()

	fv := e.Extract(tx("u1", 120, now))

	assert.Equal(t, 120.0, fv.UserAvgAmount)
	assert.InDelta(t, 1.0, fv.AmountVsAvg, 0.01)
	assert.Equal(t, 0.0, fv.TxnsLastHour)
	assert.Equal(t, 24.0, fv.TimeSinceLastTxn)
}

func TestFeatureVectorExcludesCurrentTransaction(t *testing.T) {
	e := New(history.New(100))
	now := time.Now()

	e.Extract(tx("u1", 100, now.Add(-time.Hour)))
	fv := e.Extract(tx("u1", 500, now))

	assert.Equal(t, 100.0, fv.UserAvgAmount)
	assert.Equal(t, 500.0, fv.Amount)
}

func TestVelocityCountsWithinWindows(t *testing.T) {
	e := New(history.New(100))
	now := time.Now()

	for i := 0; i < 3; i++ {
		e.Extract(tx("u1", 50, now.Add(-time.Duration(i+1)*time.Minute)))
	}
	fv := e.Extract(tx("u1", 55, now))

	assert.Equal(t, 3.0, fv.TxnsLastHour)
	assert.Equal(t, 3.0, fv.TxnsLastDay)
}

func TestIPSharedAcrossUsersComputesRatio(t *testing.T) {
	e := New(history.New(100))
	now := time.Now()

	for i, user := range []string{"u1", "u2", "u3"} {
		txn := tx(user, 80, now.Add(-time.Duration(i+1)*time.Minute))
		txn.IPAddress = "1.2.3.4"
		e.Extract(txn)
	}

	probe := tx("u4", 80, now)
	probe.IPAddress = "1.2.3.4"
	fv := e.Extract(probe)

	assert.Equal(t, 3.0, fv.IPTxnCount)
	assert.Equal(t, 3.0, fv.IPUniqueUsers)
	assert.InDelta(t, 3.0/4.0, fv.IPUserRatio, 0.001)
}

func TestEmptyMerchantAndIPDefaultToZero(t *testing.T) {
	e := New(history.New(100))
	fv := e.Extract(tx("u1", 50, time.Now()))

	assert.Equal(t, 0.0, fv.MerchantAvgAmount)
	assert.Equal(t, 0.0, fv.IPTxnCount)
	assert.Equal(t, 0.0, fv.IPUserRatio)
}

func TestReExtractingSameTransactionIsIdempotentGivenUnchangedHistory(t *testing.T) {
	e1 := New(history.New(100))
	e2 := New(history.New(100))
	now := time.Now()

	// Extract appends to history, so the same probe is run once each against
	// two stores holding identical prior history.
	e1.Extract(tx("u1", 100, now.Add(-time.Hour)))
	e2.Extract(tx("u1", 100, now.Add(-time.Hour)))

	probe := tx("u1", 200, now)
	fv1 := e1.Extract(probe)
	fv2 := e2.Extract(probe)

	require.Equal(t, 100.0, fv1.UserAvgAmount)
	assert.Equal(t, fv1, fv2)
}

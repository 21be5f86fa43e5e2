package domain

// FeatureNames is the fixed, ordered list of the 18 feature names. Wire
// encodings and the logistic model weight vector both depend on this order
// staying stable.
var FeatureNames = [18]string{
	"amount",
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"transaction_type",
	"user_avg_amount",
	"user_std_amount",
	"user_max_amount",
	"user_min_amount",
	"amount_vs_avg",
	"txns_last_hour",
	"txns_last_day",
	"time_since_last_txn",
	"merchant_avg_amount",
	"merchant_std_amount",
	"ip_txn_count",
	"ip_unique_users",
	"ip_user_ratio",
}

// FeatureVector is the fixed-order, fixed-length feature representation
// produced by the extractor and consumed by the scorer. Every field is a
// finite float; absent inputs are represented as documented zero defaults,
// never NaN.
type FeatureVector struct {
	Amount            float64
	HourOfDay         float64
	DayOfWeek         float64
	IsWeekend         float64
	TransactionType   float64
	UserAvgAmount     float64
	UserStdAmount     float64
	UserMaxAmount     float64
	UserMinAmount     float64
	AmountVsAvg       float64
	TxnsLastHour      float64
	TxnsLastDay       float64
	TimeSinceLastTxn  float64
	MerchantAvgAmount float64
	MerchantStdAmount float64
	IPTxnCount        float64
	IPUniqueUsers     float64
	IPUserRatio       float64
}

// Slice returns the 18 features as an ordered slice, matching FeatureNames.
func (f FeatureVector) Slice() [18]float64 {
	return [18]float64{
		f.Amount,
		f.HourOfDay,
		f.DayOfWeek,
		f.IsWeekend,
		f.TransactionType,
		f.UserAvgAmount,
		f.UserStdAmount,
		f.UserMaxAmount,
		f.UserMinAmount,
		f.AmountVsAvg,
		f.TxnsLastHour,
		f.TxnsLastDay,
		f.TimeSinceLastTxn,
		f.MerchantAvgAmount,
		f.MerchantStdAmount,
		f.IPTxnCount,
		f.IPUniqueUsers,
		f.IPUserRatio,
	}
}

// ToMap renders the vector as a feature-name -> value map, for the wire
// format and for the explainer's importance lookups.
func (f FeatureVector) ToMap() map[string]float64 {
	s := f.Slice()
	m := make(map[string]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		m[name] = s[i]
	}
	return m
}

// FeatureVectorFromMap rebuilds a FeatureVector from a feature-name -> value
// map, the inverse of ToMap. Callers that only hold the wire/map form (a
// previously scored transaction's features, replayed into /explain or the
// explain_transaction MCP tool) use this to recompute importances.
func FeatureVectorFromMap(m map[string]float64) FeatureVector {
	return FeatureVector{
		Amount:            m["amount"],
		HourOfDay:         m["hour_of_day"],
		DayOfWeek:         m["day_of_week"],
		IsWeekend:         m["is_weekend"],
		TransactionType:   m["transaction_type"],
		UserAvgAmount:     m["user_avg_amount"],
		UserStdAmount:     m["user_std_amount"],
		UserMaxAmount:     m["user_max_amount"],
		UserMinAmount:     m["user_min_amount"],
		AmountVsAvg:       m["amount_vs_avg"],
		TxnsLastHour:      m["txns_last_hour"],
		TxnsLastDay:       m["txns_last_day"],
		TimeSinceLastTxn:  m["time_since_last_txn"],
		MerchantAvgAmount: m["merchant_avg_amount"],
		MerchantStdAmount: m["merchant_std_amount"],
		IPTxnCount:        m["ip_txn_count"],
		IPUniqueUsers:     m["ip_unique_users"],
		IPUserRatio:       m["ip_user_ratio"],
	}
}

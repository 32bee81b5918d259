package models

import "time"

// DetectionRun records one detection pass over a dataset: the iteration
// it claimed, the weights and threshold used, and the result counts.
// The UNIQUE(dataset_id, iteration) constraint on this table is what
// serializes concurrent runs.
type DetectionRun struct {
	ID        string `db:"id" json:"id"`
	DatasetID int64  `db:"dataset_id" json:"dataset_id"`
	Iteration int    `db:"iteration" json:"iteration"`

	ConfidenceThreshold float64 `db:"confidence_threshold" json:"confidence_threshold"`
	ConfidenceWeight    float64 `db:"confidence_weight" json:"confidence_weight"`
	AnomalyWeight       float64 `db:"anomaly_weight" json:"anomaly_weight"`

	TotalSamples    int `db:"total_samples" json:"total_samples"`
	SuspiciousFound int `db:"suspicious_found" json:"suspicious_found"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Detection is one suspicious-sample result inside an iteration.
// Immutable once written; later runs create new iterations instead of
// touching prior rows.
type Detection struct {
	ID        int64  `db:"id" json:"id"`
	SampleID  int64  `db:"sample_id" json:"sample_id"`
	RunID     string `db:"run_id" json:"run_id"`
	Iteration int    `db:"iteration" json:"iteration"`

	// Confidence that the current label is wrong (disagreement
	// confidence), not the raw class probability.
	ConfidenceScore float64 `db:"confidence_score" json:"confidence_score"`
	AnomalyScore    float64 `db:"anomaly_score" json:"anomaly_score"`
	PriorityScore   float64 `db:"priority_score" json:"priority_score"`

	PredictedLabel int `db:"predicted_label" json:"predicted_label"`

	// 1-based position within the iteration, by priority descending,
	// ties broken by ascending sample id.
	Rank int `db:"rank" json:"rank"`

	DetectedAt time.Time `db:"detected_at" json:"detected_at"`
}

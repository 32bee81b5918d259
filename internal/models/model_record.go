package models

import "time"

// ModelRecord is a bookkeeping snapshot of a classifier trained by the
// signal service. Training itself happens there; we only store metrics
// for before/after comparison across iterations.
type ModelRecord struct {
	ID        int64  `db:"id" json:"id"`
	DatasetID int64  `db:"dataset_id" json:"dataset_id"`
	Name      string `db:"name" json:"name"`

	ModelType   string `db:"model_type" json:"model_type"`
	Description string `db:"description" json:"description"`

	// JSON object as delivered by the signal service.
	Hyperparameters string `db:"hyperparameters" json:"hyperparameters"`

	TrainAccuracy *float64 `db:"train_accuracy" json:"train_accuracy,omitempty"`
	TestAccuracy  *float64 `db:"test_accuracy" json:"test_accuracy,omitempty"`
	Precision     float64  `db:"precision" json:"precision"`
	Recall        float64  `db:"recall" json:"recall"`
	F1Score       float64  `db:"f1_score" json:"f1_score"`

	NumSamplesTrained   int     `db:"num_samples_trained" json:"num_samples_trained"`
	TrainingTimeSeconds float64 `db:"training_time_seconds" json:"training_time_seconds"`

	// Iteration the training data reflects; 0 for the baseline.
	Iteration  int  `db:"iteration" json:"iteration"`
	IsBaseline bool `db:"is_baseline" json:"is_baseline"`
	IsActive   bool `db:"is_active" json:"is_active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Accuracy prefers the held-out metric, falling back to train accuracy.
func (m *ModelRecord) Accuracy() float64 {
	if m.TestAccuracy != nil && *m.TestAccuracy > 0 {
		return *m.TestAccuracy
	}
	if m.TrainAccuracy != nil {
		return *m.TrainAccuracy
	}
	return 0
}

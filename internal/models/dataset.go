package models

import (
	"encoding/json"
	"time"
)

// Dataset is an uploaded labeled dataset under cleaning.
type Dataset struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`

	NumSamples  int `db:"num_samples" json:"num_samples"`
	NumFeatures int `db:"num_features" json:"num_features"`
	NumClasses  int `db:"num_classes" json:"num_classes"`

	// Original column names from upload, preserved for export.
	FeatureNames    *string `db:"feature_names" json:"feature_names,omitempty"`
	LabelColumnName *string `db:"label_column_name" json:"label_column_name,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeatureNameList decodes the stored feature column names, nil if absent.
func (d *Dataset) FeatureNameList() []string {
	if d.FeatureNames == nil || *d.FeatureNames == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(*d.FeatureNames), &names); err != nil {
		return nil
	}
	return names
}

// LabelColumn returns the label column name, defaulting to "label".
func (d *Dataset) LabelColumn() string {
	if d.LabelColumnName == nil || *d.LabelColumnName == "" {
		return "label"
	}
	return *d.LabelColumnName
}

// Sample is a single labeled data point.
// original_label never changes after ingestion; current_label is what
// corrections mutate.
type Sample struct {
	ID          int64 `db:"id" json:"id"`
	DatasetID   int64 `db:"dataset_id" json:"dataset_id"`
	SampleIndex int   `db:"sample_index" json:"sample_index"`

	// Feature vector stored as a JSON array of numbers.
	Features string `db:"features" json:"-"`

	OriginalLabel int `db:"original_label" json:"original_label"`
	CurrentLabel  int `db:"current_label" json:"current_label"`

	IsSuspicious bool `db:"is_suspicious" json:"is_suspicious"`
	IsCorrected  bool `db:"is_corrected" json:"is_corrected"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeatureVector decodes the stored feature JSON.
func (s *Sample) FeatureVector() ([]float64, error) {
	var v []float64
	if err := json.Unmarshal([]byte(s.Features), &v); err != nil {
		return nil, err
	}
	return v, nil
}

package models

// CorrectionChange is one pending label mutation derived from accepted
// or modified feedback.
type CorrectionChange struct {
	SampleID int64  `db:"sample_id" json:"sample_id"`
	OldLabel int    `db:"old_label" json:"old_label"`
	NewLabel int    `db:"new_label" json:"new_label"`
	Action   string `db:"action" json:"action"`
}

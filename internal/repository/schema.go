package repository

// sqliteSchema mirrors the postgres migrations in migrations/. Keep the
// two in sync when the schema changes.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	num_samples INTEGER NOT NULL DEFAULT 0,
	num_features INTEGER NOT NULL DEFAULT 0,
	num_classes INTEGER NOT NULL DEFAULT 0,
	feature_names TEXT,
	label_column_name TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	sample_index INTEGER NOT NULL,
	features TEXT NOT NULL,
	original_label INTEGER NOT NULL,
	current_label INTEGER NOT NULL,
	is_suspicious BOOLEAN NOT NULL DEFAULT 0,
	is_corrected BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_dataset ON samples(dataset_id);
CREATE INDEX IF NOT EXISTS idx_samples_suspicious ON samples(dataset_id, is_suspicious);

CREATE TABLE IF NOT EXISTS detection_runs (
	id TEXT PRIMARY KEY,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	iteration INTEGER NOT NULL,
	confidence_threshold DOUBLE PRECISION NOT NULL,
	confidence_weight DOUBLE PRECISION NOT NULL,
	anomaly_weight DOUBLE PRECISION NOT NULL,
	total_samples INTEGER NOT NULL,
	suspicious_found INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (dataset_id, iteration)
);

CREATE TABLE IF NOT EXISTS detections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sample_id INTEGER NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
	run_id TEXT NOT NULL REFERENCES detection_runs(id) ON DELETE CASCADE,
	iteration INTEGER NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	anomaly_score DOUBLE PRECISION NOT NULL,
	priority_score DOUBLE PRECISION NOT NULL,
	predicted_label INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	detected_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_sample ON detections(sample_id);
CREATE INDEX IF NOT EXISTS idx_detections_run ON detections(run_id);

CREATE TABLE IF NOT EXISTS suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	detection_id INTEGER NOT NULL UNIQUE REFERENCES detections(id) ON DELETE CASCADE,
	suggested_label INTEGER NOT NULL,
	reason TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	custom_label INTEGER,
	reviewer_notes TEXT,
	created_at TIMESTAMP NOT NULL,
	reviewed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status);

CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	suggestion_id INTEGER NOT NULL UNIQUE REFERENCES suggestions(id) ON DELETE CASCADE,
	sample_id INTEGER NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	iteration INTEGER NOT NULL,
	action TEXT NOT NULL,
	final_label INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_dataset_iteration ON feedback(dataset_id, iteration);

CREATE TABLE IF NOT EXISTS models (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	model_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	hyperparameters TEXT NOT NULL DEFAULT '{}',
	train_accuracy DOUBLE PRECISION,
	test_accuracy DOUBLE PRECISION,
	precision DOUBLE PRECISION NOT NULL DEFAULT 0,
	recall DOUBLE PRECISION NOT NULL DEFAULT 0,
	f1_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	num_samples_trained INTEGER NOT NULL DEFAULT 0,
	training_time_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	iteration INTEGER NOT NULL DEFAULT 0,
	is_baseline BOOLEAN NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_models_dataset ON models(dataset_id);
`

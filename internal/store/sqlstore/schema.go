package sqlstore

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS cases (
	id VARCHAR(64) PRIMARY KEY,
	kind VARCHAR(32) NOT NULL,
	citizen_name TEXT NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	citizen_email TEXT NOT NULL DEFAULT '',
	citizen_phone TEXT NOT NULL DEFAULT '',
	document_type VARCHAR(64) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status VARCHAR(32) NOT NULL,
	stage VARCHAR(16) NOT NULL,
	priority VARCHAR(16) NOT NULL,
	verdict VARCHAR(16) NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	registry_match BOOLEAN NOT NULL DEFAULT FALSE,
	registry_boosted BOOLEAN NOT NULL DEFAULT FALSE,
	feedback TEXT NOT NULL DEFAULT '',
	local_feedback TEXT NOT NULL DEFAULT '',
	officer_id VARCHAR(64) NOT NULL DEFAULT '',
	officer_notes TEXT NOT NULL DEFAULT '',
	documents TEXT NOT NULL,
	verdicts TEXT NOT NULL,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_queue ON cases (document_type, status, created_at)`,
	`CREATE TABLE IF NOT EXISTS issued_documents (
	id VARCHAR(64) PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL UNIQUE REFERENCES cases(id),
	officer_id VARCHAR(64) NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	status VARCHAR(32) NOT NULL,
	download_locator TEXT NOT NULL,
	verification_id VARCHAR(32) NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS appeals (
	id VARCHAR(64) PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	reason TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	reviewed_by VARCHAR(64) NOT NULL DEFAULT '',
	reevaluation_verdict VARCHAR(16) NOT NULL DEFAULT '',
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS registry_records (
	id VARCHAR(64) NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	document_type VARCHAR(64) NOT NULL,
	issued_date TIMESTAMPTZ NOT NULL,
	source_file_ref TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (citizen_id, document_type)
)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS cases (
	id VARCHAR(64) PRIMARY KEY,
	kind VARCHAR(32) NOT NULL,
	citizen_name TEXT NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	citizen_email VARCHAR(255) NOT NULL DEFAULT '',
	citizen_phone VARCHAR(64) NOT NULL DEFAULT '',
	document_type VARCHAR(64) NOT NULL,
	description TEXT NOT NULL,
	status VARCHAR(32) NOT NULL,
	stage VARCHAR(16) NOT NULL,
	priority VARCHAR(16) NOT NULL,
	verdict VARCHAR(16) NOT NULL DEFAULT '',
	confidence DOUBLE NOT NULL DEFAULT 0,
	registry_match BOOLEAN NOT NULL DEFAULT FALSE,
	registry_boosted BOOLEAN NOT NULL DEFAULT FALSE,
	feedback TEXT NOT NULL,
	local_feedback TEXT NOT NULL,
	officer_id VARCHAR(64) NOT NULL DEFAULT '',
	officer_notes TEXT NOT NULL,
	documents LONGTEXT NOT NULL,
	verdicts LONGTEXT NOT NULL,
	version BIGINT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	INDEX idx_cases_queue (document_type, status, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS issued_documents (
	id VARCHAR(64) PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL UNIQUE,
	officer_id VARCHAR(64) NOT NULL,
	notes TEXT NOT NULL,
	status VARCHAR(32) NOT NULL,
	download_locator TEXT NOT NULL,
	verification_id VARCHAR(32) NOT NULL,
	issued_at DATETIME(6) NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS appeals (
	id VARCHAR(64) PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	reason TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	notes TEXT NOT NULL,
	reviewed_by VARCHAR(64) NOT NULL DEFAULT '',
	reevaluation_verdict VARCHAR(16) NOT NULL DEFAULT '',
	version BIGINT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS registry_records (
	id VARCHAR(64) NOT NULL,
	citizen_id VARCHAR(64) NOT NULL,
	document_type VARCHAR(64) NOT NULL,
	issued_date DATETIME(6) NOT NULL,
	source_file_ref TEXT NOT NULL,
	metadata TEXT NOT NULL,
	PRIMARY KEY (citizen_id, document_type)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ArchiveMeta is a custom type for storing free-form job metadata as JSON in the database.
type ArchiveMeta map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the metadata.
//   - error: non-nil if marshaling fails.
func (m ArchiveMeta) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *ArchiveMeta) Scan(value interface{}) error {
	if value == nil {
		*m = ArchiveMeta{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ArchiveMeta")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// JobArchive is the persisted history row of a finished scrape job.
// The HTML body lives in object storage under HTMLKey.
type JobArchive struct {
	JobID       string      `gorm:"type:text;primaryKey" json:"job_id"`
	Status      JobStatus   `gorm:"type:text;not null;index" json:"status"`
	URL         string      `gorm:"type:text" json:"url"`
	VMURL       string      `gorm:"type:text" json:"vm_url,omitempty"`
	TraceURL    string      `gorm:"type:text" json:"trace_url,omitempty"`
	Error       string      `gorm:"type:text" json:"error,omitempty"`
	HTMLKey     string      `gorm:"type:text" json:"html_key,omitempty"`
	HTMLURL     string      `gorm:"type:text" json:"html_url,omitempty"`
	HTMLSize    int         `gorm:"default:0" json:"html_size"`
	Meta        ArchiveMeta `gorm:"type:text" json:"meta,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `gorm:"index" json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName returns the database table name for JobArchive.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (JobArchive) TableName() string {
	return "scrape_job_archives"
}

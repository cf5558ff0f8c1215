package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UserVideo links a user to a video and holds the per-user generated content.
// Summary and QuickStartQuestions stay nil until generation succeeds, which
// keeps a failed generation retryable.
type UserVideo struct {
	ID                  string       `json:"id" db:"id"`
	UserID              string       `json:"user_id" db:"user_id"`
	YoutubeID           string       `json:"youtube_id" db:"youtube_id"`
	Summary             *string      `json:"summary" db:"summary"`
	QuickStartQuestions QuestionList `json:"quick_start_questions" db:"quick_start_questions"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// HasSummary reports whether a non-empty summary has been persisted.
func (uv *UserVideo) HasSummary() bool {
	return uv.Summary != nil && *uv.Summary != ""
}

// HasQuestions reports whether quick-start questions have been persisted.
func (uv *UserVideo) HasQuestions() bool {
	return len(uv.QuickStartQuestions) > 0
}

// QuestionList is a jsonb-backed list of generated quick-start questions.
// A nil list means questions have not been generated yet.
type QuestionList []string

// Value implements driver.Valuer for database storage
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

// Scan implements sql.Scanner for database retrieval
func (q *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*q = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported type %T for question list", value)
	}
}

package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Interview stages. The collaborator reports the stage a session has moved
// to after each saved answer; stage 3 and -1 are terminal.
const (
	StageCancelled  = -1
	StageAwaitingQ1 = 0
	StageAwaitingQ2 = 1
	StageAwaitingQ3 = 2
	StageCompleted  = 3
)

// InterviewSession is one interview run for a user. Rows are closed
// (CompletedAt set), never deleted; history stays queryable.
type InterviewSession struct {
	ID             string
	ExternalUserID int64
	Stage          int

	Q1 sql.NullString
	Q2 sql.NullString
	Q3 sql.NullString

	A1 sql.NullString
	A2 sql.NullString
	A3 sql.NullString

	VoiceRef1 sql.NullString
	VoiceRef2 sql.NullString
	VoiceRef3 sql.NullString

	// Recommendation is stored verbatim; the bot never interprets it.
	Recommendation json.RawMessage

	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt sql.NullTime
}

// IsActive reports whether the session still expects answers.
func (s *InterviewSession) IsActive() bool {
	return !s.CompletedAt.Valid && s.Stage >= StageAwaitingQ1 && s.Stage < StageCompleted
}

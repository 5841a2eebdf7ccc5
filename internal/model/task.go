package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskKindSubscribe TaskKind = "subscribe"
	TaskKindView      TaskKind = "view"
	TaskKindRepost    TaskKind = "repost"
	TaskKindComment   TaskKind = "comment"
)

func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindSubscribe, TaskKindView, TaskKindRepost, TaskKindComment:
		return true
	}
	return false
}

type Task struct {
	TaskID      uuid.UUID
	Kind        TaskKind
	Title       string
	Description string
	Link        string
	Reward      int
	Active      bool
	CreatedAt   time.Time
}

type SubmissionStatus string

const (
	SubmissionStarted   SubmissionStatus = "started"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// UserTask is one user's progress on one task. ProofFileIDs are the
// Telegram file ids of the screenshots attached at submission time.
type UserTask struct {
	TaskID       uuid.UUID
	UserID       int64
	Status       SubmissionStatus
	ProofFileIDs []string
	StartedAt    time.Time
	SubmittedAt  *time.Time
	ReviewedAt   *time.Time
}

// PendingSubmission is the admin review-queue view of a submitted task.
type PendingSubmission struct {
	TaskID       uuid.UUID
	TaskTitle    string
	Reward       int
	UserID       int64
	Username     string
	ProofFileIDs []string
	SubmittedAt  time.Time
}

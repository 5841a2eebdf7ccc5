package model

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID          uuid.UUID
	UserID      int64
	Amount      int
	Destination string
	Status      WithdrawalStatus
	CreatedAt   time.Time
	ReviewedAt  *time.Time
}

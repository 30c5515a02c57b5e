package models

import (
	"time"

	"github.com/google/uuid"
)

// Назначение записи эскроу-леджера
const (
	EscrowPurposeHold       = "hold"
	EscrowPurposeRelease    = "release"
	EscrowPurposeRefund     = "refund"
	EscrowPurposeCommission = "commission"
	EscrowPurposePayout     = "payout"
)

// Статусы записи эскроу-леджера. Жизненный цикл холда:
// active_hold -> frozen_dispute | released | refunded.
// Замороженный спором холд освобождается только резолюцией спора.
const (
	EscrowStatusActiveHold    = "active_hold"
	EscrowStatusFrozenDispute = "frozen_dispute"
	EscrowStatusReleased      = "released"
	EscrowStatusRefunded      = "refunded"
	EscrowStatusCompleted     = "completed"
)

// EscrowTransaction — запись append-only леджера удержаний и выплат.
// Сумма фиксируется при создании и никогда не изменяется; переходы
// жизненного цикла выражаются только сменой статуса.
type EscrowTransaction struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ContractID   uuid.UUID  `db:"contract_id" json:"contract_id"`
	WorkLogID    *uuid.UUID `db:"worklog_id" json:"worklog_id,omitempty"`
	MilestoneID  *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	Amount       float64    `db:"amount" json:"amount"`
	Purpose      string     `db:"purpose" json:"purpose"`
	Status       string     `db:"status" json:"status"`
	Description  string     `db:"description" json:"description"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

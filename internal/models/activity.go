package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Действия в журнале активности контракта
const (
	ActivityWorklogSubmitted = "worklog_submitted"
	ActivityWorklogReviewed  = "worklog_reviewed"
	ActivityDisputeRaised    = "dispute_raised"
	ActivityDisputeResolved  = "dispute_resolved"
	ActivityContractStatus   = "contract_status_changed"
)

// ContractActivity — запись журнала активности по контракту.
// Пишется в режиме fire-and-forget, ошибки записи не прерывают операцию.
type ContractActivity struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ContractID uuid.UUID       `db:"contract_id" json:"contract_id"`
	ActorID    *uuid.UUID      `db:"actor_id" json:"actor_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

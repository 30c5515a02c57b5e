package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Статусы спора. Переходы только вперёд:
// open -> under_review -> resolved | rejected.
const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
	DisputeStatusRejected    = "rejected"
)

// Причины спора
const (
	DisputeReasonNonPayment         = "non_payment"
	DisputeReasonQualityOfWork      = "quality_of_work"
	DisputeReasonScopeDisagreement  = "scope_disagreement"
	DisputeReasonMissedDeadline     = "missed_deadline"
	DisputeReasonUnfairRejection    = "unfair_rejection"
	DisputeReasonUnfairCancellation = "unfair_cancellation"
	DisputeReasonOther              = "other"
)

// ValidDisputeReasons список валидных причин спора
var ValidDisputeReasons = map[string]struct{}{
	DisputeReasonNonPayment:         {},
	DisputeReasonQualityOfWork:      {},
	DisputeReasonScopeDisagreement:  {},
	DisputeReasonMissedDeadline:     {},
	DisputeReasonUnfairRejection:    {},
	DisputeReasonUnfairCancellation: {},
	DisputeReasonOther:              {},
}

// Исходы резолюции спора
const (
	ResolutionOutcomeRefundClient  = "refund_client"
	ResolutionOutcomePayFreelancer = "pay_freelancer"
	ResolutionOutcomeSplit         = "split"
)

// Кем принято решение по спору
const (
	ResolutionDecidedByAdmin  = "admin"
	ResolutionDecidedBySystem = "system"
)

// Виды области действия спора
const (
	ScopeKindContract  = "contract"
	ScopeKindMilestone = "milestone"
	ScopeKindWorklog   = "worklog"
)

// DisputeScope определяет область действия спора: весь контракт,
// конкретная веха или конкретный ворклог. ID равен nil только для
// области contract, в остальных случаях он обязателен.
type DisputeScope struct {
	Kind string
	ID   *uuid.UUID
}

// ContractScope возвращает область "весь контракт".
func ContractScope() DisputeScope {
	return DisputeScope{Kind: ScopeKindContract}
}

// MilestoneScope возвращает область конкретной вехи.
func MilestoneScope(id uuid.UUID) DisputeScope {
	return DisputeScope{Kind: ScopeKindMilestone, ID: &id}
}

// WorklogScope возвращает область конкретного ворклога.
func WorklogScope(id uuid.UUID) DisputeScope {
	return DisputeScope{Kind: ScopeKindWorklog, ID: &id}
}

// Validate проверяет согласованность вида области и идентификатора.
func (s DisputeScope) Validate() error {
	switch s.Kind {
	case ScopeKindContract:
		if s.ID != nil {
			return fmt.Errorf("область contract не допускает scope_id")
		}
	case ScopeKindMilestone, ScopeKindWorklog:
		if s.ID == nil {
			return fmt.Errorf("область %s требует scope_id", s.Kind)
		}
	default:
		return fmt.Errorf("неизвестная область спора: %q", s.Kind)
	}
	return nil
}

// Key возвращает ключ области для инварианта уникальности активного спора.
// Частичный уникальный индекс по этому ключу допускает не более одного
// спора в статусе open/under_review на область.
func (s DisputeScope) Key(contractID uuid.UUID) string {
	if s.Kind == ScopeKindContract {
		return ScopeKindContract + ":" + contractID.String()
	}
	return s.Kind + ":" + s.ID.String()
}

// Dispute представляет претензию по контракту, вехе или ворклогу.
// ContractType копируется из контракта в момент создания и далее не
// пересчитывается. Поля resolution_* неизменяемы после резолюции.
type Dispute struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	DisputeID    string     `db:"dispute_id" json:"dispute_id"`
	ContractID   uuid.UUID  `db:"contract_id" json:"contract_id"`
	RaisedBy     string     `db:"raised_by" json:"raised_by"`
	ScopeKind    string     `db:"scope_kind" json:"scope_kind"`
	ScopeID      *uuid.UUID `db:"scope_id" json:"scope_id,omitempty"`
	ScopeKey     string     `db:"scope_key" json:"-"`
	ContractType string     `db:"contract_type" json:"contract_type"`
	ReasonCode   string     `db:"reason_code" json:"reason_code"`
	Description  string     `db:"description" json:"description"`
	Status       string     `db:"status" json:"status"`

	ResolutionOutcome          *string    `db:"resolution_outcome" json:"resolution_outcome,omitempty"`
	ResolutionClientAmount     *float64   `db:"resolution_client_amount" json:"resolution_client_amount,omitempty"`
	ResolutionFreelancerAmount *float64   `db:"resolution_freelancer_amount" json:"resolution_freelancer_amount,omitempty"`
	ResolutionDecidedBy        *string    `db:"resolution_decided_by" json:"resolution_decided_by,omitempty"`
	ResolvedAt                 *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Scope возвращает область действия спора как значение DisputeScope.
func (d *Dispute) Scope() DisputeScope {
	return DisputeScope{Kind: d.ScopeKind, ID: d.ScopeID}
}

// IsActive сообщает, находится ли спор в активном статусе.
func (d *Dispute) IsActive() bool {
	return d.Status == DisputeStatusOpen || d.Status == DisputeStatusUnderReview
}

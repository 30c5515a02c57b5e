package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы оплаты контракта
const (
	ContractPaymentHourly              = "hourly"
	ContractPaymentFixed               = "fixed"
	ContractPaymentFixedWithMilestones = "fixed_with_milestones"
)

// Статусы контракта
const (
	ContractStatusActive    = "active"
	ContractStatusHeld      = "held"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
	ContractStatusDisputed  = "disputed"
	ContractStatusRefunded  = "refunded"
)

// ValidContractPaymentTypes список валидных типов оплаты
var ValidContractPaymentTypes = map[string]struct{}{
	ContractPaymentHourly:              {},
	ContractPaymentFixed:               {},
	ContractPaymentFixedWithMilestones: {},
}

// Contract описывает контракт между клиентом и фрилансером.
// Ядро споров и ворклогов читает контракт целиком, но пишет только
// поля status и cancelled_by.
type Contract struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	ClientID              uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID          uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	Title                 string     `db:"title" json:"title"`
	PaymentType           string     `db:"payment_type" json:"payment_type"`
	HourlyRate            *float64   `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Budget                *float64   `db:"budget" json:"budget,omitempty"`
	EstimatedHoursPerWeek *float64   `db:"estimated_hours_per_week" json:"estimated_hours_per_week,omitempty"`
	Status                string     `db:"status" json:"status"`
	CancelledBy           *string    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveHourlyRate возвращает почасовую ставку, 0 если она не задана.
func (c *Contract) EffectiveHourlyRate() float64 {
	if c.HourlyRate == nil {
		return 0
	}
	return *c.HourlyRate
}

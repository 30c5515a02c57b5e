package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-backend/internal/models"
)

// Интерфейсы хранилищ, которые нужны сервисам ядра. Реализуются
// репозиториями из internal/repository; в тестах подменяются моками.

// activityTimeout ограничивает фоновую запись журнала активности.
const activityTimeout = 5 * time.Second

type ContractStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetForFreelancer(ctx context.Context, id, freelancerID uuid.UUID) (*models.Contract, error)
	GetForClient(ctx context.Context, id, clientID uuid.UUID) (*models.Contract, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to string, cancelledBy *string) error
}

type WorklogStore interface {
	CreateWithHold(ctx context.Context, wl *models.WorkLog, hold *models.EscrowTransaction) error
	GetByWorklogID(ctx context.Context, worklogID string) (*models.WorkLog, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, status *string, limit, offset int) ([]models.WorkLog, error)
	ListFiles(ctx context.Context, worklogID uuid.UUID) ([]models.WorkLogFile, error)
	UpdateReview(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time, message *string, windowEnd *time.Time) error
	SumDurationMsBetween(ctx context.Context, contractID, freelancerID uuid.UUID, from, to time.Time) (int64, error)
	ListLapsedRejected(ctx context.Context, now time.Time, limit int) ([]models.WorkLog, error)
}

type DisputeStore interface {
	CreateWithFreeze(ctx context.Context, d *models.Dispute, freezeScope *models.DisputeScope) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByDisputeID(ctx context.Context, disputeID string) (*models.Dispute, error)
	GetActiveByScopeKey(ctx context.Context, scopeKey string) (*models.Dispute, error)
	HasActiveByContract(ctx context.Context, contractID uuid.UUID) (bool, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	BeginReview(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, id uuid.UUID, outcome string, clientAmount, freelancerAmount float64, decidedBy string) (*models.Dispute, error)
	RejectWithThaw(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
}

type EscrowStore interface {
	GetHoldByScope(ctx context.Context, contractID uuid.UUID, scope models.DisputeScope) (*models.EscrowTransaction, error)
	GetHoldByWorklog(ctx context.Context, worklogID uuid.UUID) (*models.EscrowTransaction, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error)
	ReleaseLapsedHold(ctx context.Context, worklogID uuid.UUID) (*models.EscrowTransaction, bool, error)
}

// ActivityLogger пишет журнал активности контракта (fire-and-forget)
// и отдаёт его участникам на чтение.
type ActivityLogger interface {
	Add(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, action string, details interface{}) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractActivity, error)
}

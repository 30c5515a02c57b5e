package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-backend/internal/models"
)

type mockContractStore struct {
	mock.Mock
}

func (m *mockContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) GetForFreelancer(ctx context.Context, id, freelancerID uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) GetForClient(ctx context.Context, id, clientID uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to string, cancelledBy *string) error {
	args := m.Called(ctx, id, from, to, cancelledBy)
	return args.Error(0)
}

type mockWorklogStore struct {
	mock.Mock
}

func (m *mockWorklogStore) CreateWithHold(ctx context.Context, wl *models.WorkLog, hold *models.EscrowTransaction) error {
	args := m.Called(ctx, wl, hold)
	return args.Error(0)
}

func (m *mockWorklogStore) GetByWorklogID(ctx context.Context, worklogID string) (*models.WorkLog, error) {
	args := m.Called(ctx, worklogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkLog), args.Error(1)
}

func (m *mockWorklogStore) ListByContract(ctx context.Context, contractID uuid.UUID, status *string, limit, offset int) ([]models.WorkLog, error) {
	args := m.Called(ctx, contractID, status, limit, offset)
	return args.Get(0).([]models.WorkLog), args.Error(1)
}

func (m *mockWorklogStore) ListFiles(ctx context.Context, worklogID uuid.UUID) ([]models.WorkLogFile, error) {
	args := m.Called(ctx, worklogID)
	return args.Get(0).([]models.WorkLogFile), args.Error(1)
}

func (m *mockWorklogStore) UpdateReview(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time, message *string, windowEnd *time.Time) error {
	args := m.Called(ctx, id, status, reviewedAt, message, windowEnd)
	return args.Error(0)
}

func (m *mockWorklogStore) SumDurationMsBetween(ctx context.Context, contractID, freelancerID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, contractID, freelancerID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWorklogStore) ListLapsedRejected(ctx context.Context, now time.Time, limit int) ([]models.WorkLog, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]models.WorkLog), args.Error(1)
}

type mockDisputeStore struct {
	mock.Mock
}

func (m *mockDisputeStore) CreateWithFreeze(ctx context.Context, d *models.Dispute, freezeScope *models.DisputeScope) error {
	args := m.Called(ctx, d, freezeScope)
	return args.Error(0)
}

func (m *mockDisputeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) GetByDisputeID(ctx context.Context, disputeID string) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) GetActiveByScopeKey(ctx context.Context, scopeKey string) (*models.Dispute, error) {
	args := m.Called(ctx, scopeKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) HasActiveByContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contractID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDisputeStore) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, contractID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) BeginReview(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) Resolve(ctx context.Context, id uuid.UUID, outcome string, clientAmount, freelancerAmount float64, decidedBy string) (*models.Dispute, error) {
	args := m.Called(ctx, id, outcome, clientAmount, freelancerAmount, decidedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) RejectWithThaw(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockEscrowStore struct {
	mock.Mock
}

func (m *mockEscrowStore) GetHoldByScope(ctx context.Context, contractID uuid.UUID, scope models.DisputeScope) (*models.EscrowTransaction, error) {
	args := m.Called(ctx, contractID, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowTransaction), args.Error(1)
}

func (m *mockEscrowStore) GetHoldByWorklog(ctx context.Context, worklogID uuid.UUID) (*models.EscrowTransaction, error) {
	args := m.Called(ctx, worklogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowTransaction), args.Error(1)
}

func (m *mockEscrowStore) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error) {
	args := m.Called(ctx, contractID, limit, offset)
	return args.Get(0).([]models.EscrowTransaction), args.Error(1)
}

func (m *mockEscrowStore) ReleaseLapsedHold(ctx context.Context, worklogID uuid.UUID) (*models.EscrowTransaction, bool, error) {
	args := m.Called(ctx, worklogID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.EscrowTransaction), args.Bool(1), args.Error(2)
}

// nopActivity — журнал активности для тестов: запись в фоне, проверять нечего.
type nopActivity struct{}

func (nopActivity) Add(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, action string, details interface{}) error {
	return nil
}

func (nopActivity) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractActivity, error) {
	return nil, nil
}

// mockActivityStore — мок журнала активности для тестов чтения.
type mockActivityStore struct {
	mock.Mock
}

func (m *mockActivityStore) Add(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, action string, details interface{}) error {
	args := m.Called(ctx, contractID, actorID, action, details)
	return args.Error(0)
}

func (m *mockActivityStore) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractActivity, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ContractActivity), args.Error(1)
}

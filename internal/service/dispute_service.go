package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-backend/internal/goroutine"
	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-backend/internal/repository"
	"github.com/ignatzorin/freelance-backend/internal/validation"
)

// CreateDisputeInput — данные новой претензии по контракту.
type CreateDisputeInput struct {
	ContractID  uuid.UUID
	Scope       *models.DisputeScope
	ReasonCode  string
	Description string
}

// DisputeService управляет жизненным циклом споров на стороне участников
// контракта: создание, чтение и связанные с отменой контракта сценарии.
type DisputeService struct {
	contracts ContractStore
	disputes  DisputeStore
	escrow    EscrowStore
	activity  ActivityLogger
}

func NewDisputeService(contracts ContractStore, disputes DisputeStore, escrow EscrowStore, activity ActivityLogger) *DisputeService {
	return &DisputeService{
		contracts: contracts,
		disputes:  disputes,
		escrow:    escrow,
		activity:  activity,
	}
}

// getContractForParty возвращает контракт, если requester — его участник
// в указанной роли.
func (s *DisputeService) getContractForParty(ctx context.Context, contractID, requesterID uuid.UUID, role string) (*models.Contract, error) {
	var (
		contract *models.Contract
		err      error
	)
	switch role {
	case models.RoleClient:
		contract, err = s.contracts.GetForClient(ctx, contractID, requesterID)
	case models.RoleFreelancer:
		contract, err = s.contracts.GetForFreelancer(ctx, contractID, requesterID)
	default:
		return nil, apperror.ErrForbidden
	}
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

// freezeScopeFor выбирает, какой холд замораживать при создании спора.
// Для fixed замораживается контрактный холд, для fixed_with_milestones —
// холд вехи, если спор привязан к вехе. Почасовые контракты на уровне
// контракта единого холда не имеют, спор открывается без заморозки.
func freezeScopeFor(contract *models.Contract, scope models.DisputeScope) *models.DisputeScope {
	switch scope.Kind {
	case models.ScopeKindWorklog:
		return &scope
	case models.ScopeKindMilestone:
		return &scope
	case models.ScopeKindContract:
		if contract.PaymentType == models.ContractPaymentFixed {
			cs := models.ContractScope()
			return &cs
		}
		return nil
	}
	return nil
}

// Create открывает спор по контракту. Не более одного активного спора на
// контракт: проверка здесь даёт понятную ошибку, частичный уникальный
// индекс закрывает гонку конкурентного создания.
func (s *DisputeService) Create(ctx context.Context, requesterID uuid.UUID, role string, in CreateDisputeInput) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeReasons[in.ReasonCode]; !ok {
		return nil, apperror.ErrInvalidDisputeReason
	}
	if err := validation.ValidateDisputeDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	scope := models.ContractScope()
	if in.Scope != nil {
		scope = *in.Scope
	}
	if err := scope.Validate(); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.getContractForParty(ctx, in.ContractID, requesterID, role)
	if err != nil {
		return nil, err
	}

	exists, err := s.disputes.HasActiveByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDisputeAlreadyExists
	}

	d := &models.Dispute{
		ContractID:   contract.ID,
		RaisedBy:     role,
		ScopeKind:    scope.Kind,
		ScopeID:      scope.ID,
		ContractType: contract.PaymentType,
		ReasonCode:   in.ReasonCode,
		Description:  in.Description,
		Status:       models.DisputeStatusOpen,
	}
	if err := s.disputes.CreateWithFreeze(ctx, d, freezeScopeFor(contract, scope)); err != nil {
		if errors.Is(err, repository.ErrActiveDisputeExists) {
			return nil, apperror.ErrDisputeAlreadyExists
		}
		return nil, err
	}

	s.logActivity(contract.ID, requesterID, models.ActivityDisputeRaised, map[string]interface{}{
		"dispute_id": d.DisputeID,
		"reason":     d.ReasonCode,
	})

	return d, nil
}

// Get возвращает спор по UUID или человекочитаемому номеру dspt-...
// Спор видят только участники контракта.
func (s *DisputeService) Get(ctx context.Context, requesterID uuid.UUID, disputeID string) (*models.Dispute, error) {
	var (
		d   *models.Dispute
		err error
	)
	if strings.HasPrefix(disputeID, "dspt-") {
		d, err = s.disputes.GetByDisputeID(ctx, disputeID)
	} else {
		id, parseErr := uuid.Parse(disputeID)
		if parseErr != nil {
			return nil, apperror.ErrDisputeNotFound
		}
		d, err = s.disputes.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, d.ContractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, err
	}
	if contract.ClientID != requesterID && contract.FreelancerID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return d, nil
}

// ListByContract возвращает споры контракта, новые первыми.
func (s *DisputeService) ListByContract(ctx context.Context, requesterID, contractID uuid.UUID, role string, limit, offset int) ([]models.Dispute, error) {
	if _, err := s.getContractForParty(ctx, contractID, requesterID, role); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByContract(ctx, contractID, limit, offset)
}

// ListLedger возвращает записи эскроу-леджера контракта его участнику.
func (s *DisputeService) ListLedger(ctx context.Context, requesterID, contractID uuid.UUID, role string, limit, offset int) ([]models.EscrowTransaction, error) {
	if _, err := s.getContractForParty(ctx, contractID, requesterID, role); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.escrow.ListByContract(ctx, contractID, limit, offset)
}

// ListActivity возвращает журнал активности контракта его участнику,
// старые записи первыми.
func (s *DisputeService) ListActivity(ctx context.Context, requesterID, contractID uuid.UUID, role string) ([]models.ContractActivity, error) {
	if _, err := s.getContractForParty(ctx, contractID, requesterID, role); err != nil {
		return nil, err
	}
	return s.activity.ListByContract(ctx, contractID)
}

// CancelWithDispute отменяет контракт и одновременно открывает спор об
// условиях расторжения. Обе стороны получают один статус cancelled; кто
// именно расторг, фиксируется в cancelled_by.
func (s *DisputeService) CancelWithDispute(ctx context.Context, requesterID uuid.UUID, role string, contractID uuid.UUID, reasonCode, description string) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeReasons[reasonCode]; !ok {
		return nil, apperror.ErrInvalidDisputeReason
	}
	if err := validation.ValidateDisputeDescription(description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.getContractForParty(ctx, contractID, requesterID, role)
	if err != nil {
		return nil, err
	}
	if contract.Status == models.ContractStatusCancelled || contract.Status == models.ContractStatusRefunded {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "контракт уже расторгнут")
	}

	exists, err := s.disputes.HasActiveByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDisputeAlreadyExists
	}

	d := &models.Dispute{
		ContractID:   contract.ID,
		RaisedBy:     role,
		ScopeKind:    models.ScopeKindContract,
		ContractType: contract.PaymentType,
		ReasonCode:   reasonCode,
		Description:  description,
		Status:       models.DisputeStatusOpen,
	}
	// Холд не замораживается: средства останутся доступны админу
	// через резолюцию спора.
	if err := s.disputes.CreateWithFreeze(ctx, d, nil); err != nil {
		if errors.Is(err, repository.ErrActiveDisputeExists) {
			return nil, apperror.ErrDisputeAlreadyExists
		}
		return nil, err
	}

	cancelledBy := role
	if err := s.contracts.UpdateStatusFrom(ctx, contract.ID, contract.Status, models.ContractStatusCancelled, &cancelledBy); err != nil {
		if errors.Is(err, repository.ErrContractStateChanged) {
			return nil, apperror.New(apperror.ErrCodeConflict, "статус контракта изменился, повторите запрос")
		}
		return nil, err
	}

	s.logActivity(contract.ID, requesterID, models.ActivityContractStatus, map[string]interface{}{
		"status":     models.ContractStatusCancelled,
		"dispute_id": d.DisputeID,
	})

	return d, nil
}

// RaiseForCancelledContract — спор фрилансера о несправедливой отмене.
// Доступен только когда контракт отменил клиент; контракт переводится
// cancelled -> disputed.
func (s *DisputeService) RaiseForCancelledContract(ctx context.Context, freelancerID, contractID uuid.UUID, milestoneID *uuid.UUID, description string) (*models.Dispute, error) {
	contract, err := s.getContractForParty(ctx, contractID, freelancerID, models.RoleFreelancer)
	if err != nil {
		return nil, err
	}

	if contract.Status != models.ContractStatusCancelled ||
		contract.CancelledBy == nil || *contract.CancelledBy != models.RoleClient {
		return nil, apperror.ErrCannotRaiseDispute
	}
	if contract.PaymentType == models.ContractPaymentHourly {
		return nil, apperror.ErrHourlyDisputeNotImplemented
	}
	if err := validation.ValidateDisputeDescription(description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	scope := models.ContractScope()
	if contract.PaymentType == models.ContractPaymentFixedWithMilestones {
		if milestoneID == nil {
			return nil, apperror.New(apperror.ErrCodeValidation,
				"для контракта с вехами требуется milestone_id")
		}
		scope = models.MilestoneScope(*milestoneID)
	}

	exists, err := s.disputes.HasActiveByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDisputeAlreadyExists
	}

	d := &models.Dispute{
		ContractID:   contract.ID,
		RaisedBy:     models.RoleFreelancer,
		ScopeKind:    scope.Kind,
		ScopeID:      scope.ID,
		ContractType: contract.PaymentType,
		ReasonCode:   models.DisputeReasonUnfairCancellation,
		Description:  description,
		Status:       models.DisputeStatusOpen,
	}
	if err := s.disputes.CreateWithFreeze(ctx, d, nil); err != nil {
		if errors.Is(err, repository.ErrActiveDisputeExists) {
			return nil, apperror.ErrDisputeAlreadyExists
		}
		return nil, err
	}

	if err := s.contracts.UpdateStatusFrom(ctx, contract.ID, models.ContractStatusCancelled, models.ContractStatusDisputed, nil); err != nil {
		if errors.Is(err, repository.ErrContractStateChanged) {
			return nil, apperror.New(apperror.ErrCodeConflict, "статус контракта изменился, повторите запрос")
		}
		return nil, err
	}

	s.logActivity(contract.ID, freelancerID, models.ActivityDisputeRaised, map[string]interface{}{
		"dispute_id": d.DisputeID,
		"reason":     d.ReasonCode,
	})

	return d, nil
}

func (s *DisputeService) logActivity(contractID, actorID uuid.UUID, action string, details map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityTimeout)
		defer cancel()
		_ = s.activity.Add(ctx, contractID, &actorID, action, details)
	})
}

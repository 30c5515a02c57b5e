package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-backend/internal/goroutine"
	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-backend/internal/repository"
	"github.com/ignatzorin/freelance-backend/internal/validation"
)

// AdminDisputeService — админские операции над спорами: взятие в работу,
// раздел замороженных средств и отклонение.
type AdminDisputeService struct {
	disputes DisputeStore
	escrow   EscrowStore
	activity ActivityLogger
	log      *logrus.Logger
}

func NewAdminDisputeService(disputes DisputeStore, escrow EscrowStore, activity ActivityLogger, log *logrus.Logger) *AdminDisputeService {
	return &AdminDisputeService{
		disputes: disputes,
		escrow:   escrow,
		activity: activity,
		log:      log,
	}
}

// resolveDispute находит спор по UUID или номеру dspt-...
func (s *AdminDisputeService) resolveDispute(ctx context.Context, disputeID string) (*models.Dispute, error) {
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
	return d, nil
}

// BeginReview переводит спор open -> under_review.
func (s *AdminDisputeService) BeginReview(ctx context.Context, disputeID string) (*models.Dispute, error) {
	d, err := s.resolveDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	updated, err := s.disputes.BeginReview(ctx, d.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeStateChanged) {
			return nil, apperror.New(apperror.ErrCodeInvalidState,
				"спор не в статусе open, взять в работу нельзя")
		}
		return nil, err
	}
	return updated, nil
}

// SplitFunds закрывает спор разделом замороженного холда по процентам.
// Суммы считаются от суммы холда на момент резолюции; крайние проценты
// дают исходы refund_client и pay_freelancer, остальные — split.
func (s *AdminDisputeService) SplitFunds(ctx context.Context, disputeID string, clientPct, freelancerPct float64) (*models.Dispute, error) {
	if err := validation.ValidateSplitPercentages(clientPct, freelancerPct); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	d, err := s.resolveDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
	}

	hold, err := s.escrow.GetHoldByScope(ctx, d.ContractID, d.Scope())
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.New(apperror.ErrCodeInvalidState,
				"у области спора нет холда, раздел средств невозможен")
		}
		return nil, err
	}

	clientAmount := hold.Amount * clientPct / 100
	freelancerAmount := hold.Amount * freelancerPct / 100

	outcome := models.ResolutionOutcomeSplit
	switch {
	case freelancerPct == 0:
		outcome = models.ResolutionOutcomeRefundClient
	case clientPct == 0:
		outcome = models.ResolutionOutcomePayFreelancer
	}

	resolved, err := s.disputes.Resolve(ctx, d.ID, outcome, clientAmount, freelancerAmount, models.ResolutionDecidedByAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeStateChanged) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
		}
		if errors.Is(err, repository.ErrHoldNotFound) {
			return nil, apperror.New(apperror.ErrCodeInvalidState,
				"замороженный холд не найден, раздел средств невозможен")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"dispute_id":        resolved.DisputeID,
		"outcome":           outcome,
		"client_amount":     clientAmount,
		"freelancer_amount": freelancerAmount,
	}).Info("Спор закрыт резолюцией администратора")

	s.logActivity(resolved.ContractID, models.ActivityDisputeResolved, map[string]interface{}{
		"dispute_id": resolved.DisputeID,
		"outcome":    outcome,
	})

	return resolved, nil
}

// ReleaseHoldHourly полностью выплачивает замороженный холд фрилансеру.
// Частный случай раздела средств с пропорцией 0/100.
func (s *AdminDisputeService) ReleaseHoldHourly(ctx context.Context, disputeID string) (*models.Dispute, error) {
	return s.SplitFunds(ctx, disputeID, 0, 100)
}

// Reject отклоняет спор и размораживает его холд обратно в active_hold.
func (s *AdminDisputeService) Reject(ctx context.Context, disputeID string) (*models.Dispute, error) {
	d, err := s.resolveDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	rejected, err := s.disputes.RejectWithThaw(ctx, d.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeStateChanged) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
		}
		return nil, err
	}

	s.logActivity(rejected.ContractID, models.ActivityDisputeResolved, map[string]interface{}{
		"dispute_id": rejected.DisputeID,
		"outcome":    models.DisputeStatusRejected,
	})

	return rejected, nil
}

func (s *AdminDisputeService) logActivity(contractID uuid.UUID, action string, details map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityTimeout)
		defer cancel()
		_ = s.activity.Add(ctx, contractID, nil, action, details)
	})
}

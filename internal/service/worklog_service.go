package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-backend/internal/goroutine"
	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-backend/internal/repository"
	"github.com/ignatzorin/freelance-backend/internal/validation"
)

const msPerHour = int64(time.Hour / time.Millisecond)

// SubmitWorklogInput — данные заявки фрилансера на учёт работы.
type SubmitWorklogInput struct {
	ContractID  uuid.UUID
	MilestoneID *uuid.UUID
	DurationMs  int64
	Files       []models.WorkLogFile
	Description *string
}

// WorklogEligibility — результат проверки возможности подать ворклог.
type WorklogEligibility struct {
	Eligible    bool
	Reason      string
	HoursWorked *float64
	WeeklyLimit *float64
}

// WorklogService управляет жизненным циклом ворклогов: подача, ревью,
// проверка лимитов и оспаривание отклонения.
type WorklogService struct {
	contracts     ContractStore
	worklogs      WorklogStore
	disputes      DisputeStore
	escrow        EscrowStore
	activity      ActivityLogger
	disputeWindow time.Duration

	now func() time.Time
}

func NewWorklogService(contracts ContractStore, worklogs WorklogStore, disputes DisputeStore, escrow EscrowStore, activity ActivityLogger, disputeWindow time.Duration) *WorklogService {
	return &WorklogService{
		contracts:     contracts,
		worklogs:      worklogs,
		disputes:      disputes,
		escrow:        escrow,
		activity:      activity,
		disputeWindow: disputeWindow,
		now:           time.Now,
	}
}

// Submit создаёт ворклог и холд-запись леджера одной атомарной операцией.
// Сумма холда = почасовая ставка * часы; отсутствующая ставка считается
// нулевой, нулевой холд — валидный вырожденный случай.
func (s *WorklogService) Submit(ctx context.Context, freelancerID uuid.UUID, in SubmitWorklogInput) (*models.WorkLog, error) {
	contract, err := s.contracts.GetForFreelancer(ctx, in.ContractID, freelancerID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			"ворклоги принимаются только по активному контракту")
	}

	if len(in.Files) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation,
			"требуется хотя бы один файл-доказательство")
	}
	if err := validation.ValidateWorklogDuration(in.DurationMs); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateWorklogDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	for _, f := range in.Files {
		if err := validation.ValidateWorklogFile(f.FileName, f.FileURL); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	endTime := s.now()
	startTime := endTime.Add(-time.Duration(in.DurationMs) * time.Millisecond)
	hours := float64(in.DurationMs) / float64(msPerHour)
	amount := contract.EffectiveHourlyRate() * hours

	wl := &models.WorkLog{
		WorklogID:    "wl-" + uuid.NewString(),
		ContractID:   contract.ID,
		MilestoneID:  in.MilestoneID,
		FreelancerID: freelancerID,
		StartTime:    startTime,
		EndTime:      endTime,
		DurationMs:   in.DurationMs,
		Description:  in.Description,
		Status:       models.WorkLogStatusSubmitted,
		Files:        in.Files,
	}
	hold := &models.EscrowTransaction{
		ContractID:   contract.ID,
		MilestoneID:  in.MilestoneID,
		Amount:       amount,
		Purpose:      models.EscrowPurposeHold,
		Status:       models.EscrowStatusActiveHold,
		Description:  fmt.Sprintf("Холд средств за ворклог %s", wl.WorklogID),
		ClientID:     contract.ClientID,
		FreelancerID: contract.FreelancerID,
	}

	if err := s.worklogs.CreateWithHold(ctx, wl, hold); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать ворклог")
	}

	s.logActivity(contract.ID, freelancerID, models.ActivityWorklogSubmitted, map[string]interface{}{
		"worklog_id":  wl.WorklogID,
		"hours":       hours,
		"amount_held": amount,
	})

	return wl, nil
}

// Review записывает решение клиента по ворклогу. Отклонение открывает окно
// оспаривания: дедлайн проставляется тем же UPDATE, что и смена статуса.
func (s *WorklogService) Review(ctx context.Context, clientID, contractID uuid.UUID, worklogID string, approve bool, message *string) (*models.WorkLog, error) {
	contract, err := s.contracts.GetForClient(ctx, contractID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	wl, err := s.worklogs.GetByWorklogID(ctx, worklogID)
	if err != nil {
		if errors.Is(err, repository.ErrWorklogNotFound) {
			return nil, apperror.ErrWorklogNotFound
		}
		return nil, err
	}
	if wl.ContractID != contract.ID {
		return nil, apperror.ErrWorklogNotFound
	}
	if wl.Status != models.WorkLogStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "ворклог уже прошёл ревью")
	}
	if err := validation.ValidateReviewMessage(message); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	now := s.now()
	status := models.WorkLogStatusApproved
	var windowEnd *time.Time
	if !approve {
		status = models.WorkLogStatusRejected
		end := now.Add(s.disputeWindow)
		windowEnd = &end
	}

	if err := s.worklogs.UpdateReview(ctx, wl.ID, status, now, message, windowEnd); err != nil {
		if errors.Is(err, repository.ErrWorklogStateChanged) {
			return nil, apperror.New(apperror.ErrCodeConflict, "ворклог уже прошёл ревью")
		}
		return nil, err
	}

	wl.Status = status
	wl.ReviewedAt = &now
	wl.ReviewMessage = message
	wl.DisputeWindowEndDate = windowEnd

	s.logActivity(contract.ID, clientID, models.ActivityWorklogReviewed, map[string]interface{}{
		"worklog_id": wl.WorklogID,
		"status":     status,
	})

	return wl, nil
}

// CheckValidation — read-only проверка, может ли фрилансер подать ворклог.
// Для почасовых контрактов с недельным лимитом считаются часы текущей
// календарной недели (понедельник 00:00 локального времени).
func (s *WorklogService) CheckValidation(ctx context.Context, freelancerID, contractID uuid.UUID) (*WorklogEligibility, error) {
	contract, err := s.contracts.GetForFreelancer(ctx, contractID, freelancerID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	if contract.Status == models.ContractStatusHeld {
		return &WorklogEligibility{Eligible: false, Reason: "контракт приостановлен"}, nil
	}
	if contract.Status != models.ContractStatusActive {
		return &WorklogEligibility{Eligible: false, Reason: "контракт не активен"}, nil
	}

	if contract.PaymentType == models.ContractPaymentHourly && contract.EstimatedHoursPerWeek != nil {
		weekStart := startOfWeek(s.now())
		weekEnd := weekStart.AddDate(0, 0, 7)
		totalMs, err := s.worklogs.SumDurationMsBetween(ctx, contract.ID, freelancerID, weekStart, weekEnd)
		if err != nil {
			return nil, err
		}
		hours := float64(totalMs) / float64(msPerHour)
		limit := *contract.EstimatedHoursPerWeek
		if hours >= limit {
			return &WorklogEligibility{
				Eligible:    false,
				Reason:      "недельный лимит часов исчерпан",
				HoursWorked: &hours,
				WeeklyLimit: &limit,
			}, nil
		}
		return &WorklogEligibility{Eligible: true, HoursWorked: &hours, WeeklyLimit: &limit}, nil
	}

	return &WorklogEligibility{Eligible: true}, nil
}

// RaiseDispute — последний шанс фрилансера оспорить отклонение ворклога.
// Спор и заморозка холда создаются одной транзакцией; существование
// активного спора (а не окно) дальше закрывает ворклог от сверки.
func (s *WorklogService) RaiseDispute(ctx context.Context, freelancerID, contractID uuid.UUID, worklogID, description string) (*models.Dispute, error) {
	wl, err := s.worklogs.GetByWorklogID(ctx, worklogID)
	if err != nil {
		if errors.Is(err, repository.ErrWorklogNotFound) {
			return nil, apperror.ErrWorklogNotFound
		}
		return nil, err
	}
	if wl.ContractID != contractID || wl.FreelancerID != freelancerID {
		return nil, apperror.ErrWorklogNotFound
	}

	if wl.Status != models.WorkLogStatusRejected {
		return nil, apperror.ErrWorklogNotRejected
	}
	if wl.DisputeWindowEndDate == nil || s.now().After(*wl.DisputeWindowEndDate) {
		return nil, apperror.ErrDisputeWindowExpired
	}
	if err := validation.ValidateDisputeDescription(description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	scope := models.WorklogScope(wl.ID)
	existing, err := s.disputes.GetActiveByScopeKey(ctx, scope.Key(contractID))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrWorklogDisputeExists
	}

	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	d := &models.Dispute{
		ContractID:   contractID,
		RaisedBy:     models.RoleFreelancer,
		ScopeKind:    scope.Kind,
		ScopeID:      scope.ID,
		ContractType: contract.PaymentType,
		ReasonCode:   models.DisputeReasonUnfairRejection,
		Description:  description,
		Status:       models.DisputeStatusOpen,
	}
	if err := s.disputes.CreateWithFreeze(ctx, d, &scope); err != nil {
		if errors.Is(err, repository.ErrActiveDisputeExists) {
			return nil, apperror.ErrWorklogDisputeExists
		}
		return nil, err
	}

	s.logActivity(contractID, freelancerID, models.ActivityDisputeRaised, map[string]interface{}{
		"dispute_id": d.DisputeID,
		"worklog_id": wl.WorklogID,
	})

	return d, nil
}

// List возвращает ворклоги контракта фрилансера с пагинацией и
// необязательным фильтром по статусу.
func (s *WorklogService) List(ctx context.Context, freelancerID, contractID uuid.UUID, status *string, limit, offset int) ([]models.WorkLog, error) {
	if _, err := s.contracts.GetForFreelancer(ctx, contractID, freelancerID); err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if status != nil {
		if _, ok := models.ValidWorkLogStatuses[*status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "недопустимый статус ворклога")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.worklogs.ListByContract(ctx, contractID, status, limit, offset)
}

// Get возвращает ворклог с файлами, холдом и информацией об окне
// оспаривания.
func (s *WorklogService) Get(ctx context.Context, freelancerID, contractID uuid.UUID, worklogID string) (*models.WorkLog, error) {
	wl, err := s.worklogs.GetByWorklogID(ctx, worklogID)
	if err != nil {
		if errors.Is(err, repository.ErrWorklogNotFound) {
			return nil, apperror.ErrWorklogNotFound
		}
		return nil, err
	}
	if wl.ContractID != contractID || wl.FreelancerID != freelancerID {
		return nil, apperror.ErrWorklogNotFound
	}

	files, err := s.worklogs.ListFiles(ctx, wl.ID)
	if err != nil {
		return nil, err
	}
	wl.Files = files

	hold, err := s.escrow.GetHoldByWorklog(ctx, wl.ID)
	if err != nil && !errors.Is(err, repository.ErrEscrowNotFound) {
		return nil, err
	}
	wl.Hold = hold
	return wl, nil
}

// logActivity пишет журнал активности в режиме fire-and-forget.
func (s *WorklogService) logActivity(contractID, actorID uuid.UUID, action string, details map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityTimeout)
		defer cancel()
		_ = s.activity.Add(ctx, contractID, &actorID, action, details)
	})
}

// startOfWeek возвращает понедельник 00:00 недели, содержащей t,
// в локации t.
func startOfWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -daysSinceMonday)
}

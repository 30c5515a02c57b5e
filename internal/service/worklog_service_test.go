package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-backend/internal/repository"
)

func ptrFloat(v float64) *float64    { return &v }
func ptrString(v string) *string     { return &v }
func ptrTime(v time.Time) *time.Time { return &v }

func newWorklogFixture() (*mockContractStore, *mockWorklogStore, *mockDisputeStore, *mockEscrowStore, *WorklogService) {
	contracts := new(mockContractStore)
	worklogs := new(mockWorklogStore)
	disputes := new(mockDisputeStore)
	escrow := new(mockEscrowStore)
	svc := NewWorklogService(contracts, worklogs, disputes, escrow, nopActivity{}, 72*time.Hour)
	return contracts, worklogs, disputes, escrow, svc
}

func activeHourlyContract(clientID, freelancerID uuid.UUID, rate float64) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		PaymentType:  models.ContractPaymentHourly,
		HourlyRate:   &rate,
		Status:       models.ContractStatusActive,
	}
}

func TestWorklogService_Submit_HoldAmount(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	var capturedHold *models.EscrowTransaction
	worklogs.On("CreateWithHold", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedHold = args.Get(2).(*models.EscrowTransaction)
		}).
		Return(nil)

	wl, err := svc.Submit(ctx, freelancerID, SubmitWorklogInput{
		ContractID: contract.ID,
		DurationMs: 3_600_000, // один час
		Files:      []models.WorkLogFile{{FileName: "screen.png", FileURL: "https://cdn/f/screen.png"}},
	})

	assert.NoError(t, err)
	assert.Equal(t, models.WorkLogStatusSubmitted, wl.Status)
	assert.Equal(t, int64(3_600_000), wl.DurationMs)
	assert.Equal(t, wl.StartTime.Add(time.Hour), wl.EndTime)

	assert.Equal(t, float64(20), capturedHold.Amount)
	assert.Equal(t, models.EscrowPurposeHold, capturedHold.Purpose)
	assert.Equal(t, models.EscrowStatusActiveHold, capturedHold.Status)
	assert.Equal(t, contract.ClientID, capturedHold.ClientID)
	worklogs.AssertExpectations(t)
}

func TestWorklogService_Submit_NoRate_ZeroHold(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)
	contract.HourlyRate = nil

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	var capturedHold *models.EscrowTransaction
	worklogs.On("CreateWithHold", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedHold = args.Get(2).(*models.EscrowTransaction)
		}).
		Return(nil)

	_, err := svc.Submit(ctx, freelancerID, SubmitWorklogInput{
		ContractID: contract.ID,
		DurationMs: 3_600_000,
		Files:      []models.WorkLogFile{{FileName: "a.txt", FileURL: "https://cdn/a"}},
	})

	assert.NoError(t, err)
	assert.Equal(t, float64(0), capturedHold.Amount)
}

func TestWorklogService_Submit_RequiresFiles(t *testing.T) {
	contracts, _, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.Submit(ctx, freelancerID, SubmitWorklogInput{
		ContractID: contract.ID,
		DurationMs: 3_600_000,
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestWorklogService_Submit_InactiveContract(t *testing.T) {
	contracts, _, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)
	contract.Status = models.ContractStatusCancelled

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.Submit(ctx, freelancerID, SubmitWorklogInput{
		ContractID: contract.ID,
		DurationMs: 3_600_000,
		Files:      []models.WorkLogFile{{FileName: "a.txt", FileURL: "https://cdn/a"}},
	})

	assert.True(t, apperror.IsInvalidState(err))
}

func TestWorklogService_Submit_NegativeDuration(t *testing.T) {
	contracts, _, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.Submit(ctx, freelancerID, SubmitWorklogInput{
		ContractID: contract.ID,
		DurationMs: -1,
		Files:      []models.WorkLogFile{{FileName: "a.txt", FileURL: "https://cdn/a"}},
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestWorklogService_Review_RejectOpensWindow(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := activeHourlyContract(clientID, uuid.New(), 20)

	fixedNow := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	wl := &models.WorkLog{
		ID:         uuid.New(),
		WorklogID:  "wl-1",
		ContractID: contract.ID,
		Status:     models.WorkLogStatusSubmitted,
	}

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	worklogs.On("GetByWorklogID", ctx, "wl-1").Return(wl, nil)

	expectedWindow := fixedNow.Add(72 * time.Hour)
	worklogs.On("UpdateReview", ctx, wl.ID, models.WorkLogStatusRejected,
		fixedNow, mock.Anything, ptrTime(expectedWindow)).Return(nil)

	updated, err := svc.Review(ctx, clientID, contract.ID, "wl-1", false, ptrString("мало деталей"))

	assert.NoError(t, err)
	assert.Equal(t, models.WorkLogStatusRejected, updated.Status)
	assert.Equal(t, expectedWindow, *updated.DisputeWindowEndDate)
	worklogs.AssertExpectations(t)
}

func TestWorklogService_Review_ApproveHasNoWindow(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := activeHourlyContract(clientID, uuid.New(), 20)

	wl := &models.WorkLog{
		ID:         uuid.New(),
		WorklogID:  "wl-2",
		ContractID: contract.ID,
		Status:     models.WorkLogStatusSubmitted,
	}

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	worklogs.On("GetByWorklogID", ctx, "wl-2").Return(wl, nil)
	worklogs.On("UpdateReview", ctx, wl.ID, models.WorkLogStatusApproved,
		mock.Anything, mock.Anything, (*time.Time)(nil)).Return(nil)

	updated, err := svc.Review(ctx, clientID, contract.ID, "wl-2", true, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.WorkLogStatusApproved, updated.Status)
	assert.Nil(t, updated.DisputeWindowEndDate)
}

func TestWorklogService_Review_AlreadyReviewed(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := activeHourlyContract(clientID, uuid.New(), 20)

	wl := &models.WorkLog{
		ID:         uuid.New(),
		WorklogID:  "wl-3",
		ContractID: contract.ID,
		Status:     models.WorkLogStatusApproved,
	}

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	worklogs.On("GetByWorklogID", ctx, "wl-3").Return(wl, nil)

	_, err := svc.Review(ctx, clientID, contract.ID, "wl-3", false, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestWorklogService_CheckValidation_HeldContract(t *testing.T) {
	contracts, _, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)
	contract.Status = models.ContractStatusHeld

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	res, err := svc.CheckValidation(ctx, freelancerID, contract.ID)
	assert.NoError(t, err)
	assert.False(t, res.Eligible)
}

func TestWorklogService_CheckValidation_WeeklyLimitReached(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)
	contract.EstimatedHoursPerWeek = ptrFloat(40)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	// 40 часов уже отработано на этой неделе
	worklogs.On("SumDurationMsBetween", ctx, contract.ID, freelancerID,
		mock.Anything, mock.Anything).Return(int64(40*3_600_000), nil)

	res, err := svc.CheckValidation(ctx, freelancerID, contract.ID)
	assert.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, float64(40), *res.HoursWorked)
	assert.Equal(t, float64(40), *res.WeeklyLimit)
}

func TestWorklogService_CheckValidation_UnderWeeklyLimit(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)
	contract.EstimatedHoursPerWeek = ptrFloat(40)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	worklogs.On("SumDurationMsBetween", ctx, contract.ID, freelancerID,
		mock.Anything, mock.Anything).Return(int64(10*3_600_000), nil)

	res, err := svc.CheckValidation(ctx, freelancerID, contract.ID)
	assert.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, float64(10), *res.HoursWorked)
}

func TestWorklogService_RaiseDispute_Success(t *testing.T) {
	contracts, worklogs, disputes, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	fixedNow := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	wl := &models.WorkLog{
		ID:                   uuid.New(),
		WorklogID:            "wl-9",
		ContractID:           contract.ID,
		FreelancerID:         freelancerID,
		Status:               models.WorkLogStatusRejected,
		DisputeWindowEndDate: ptrTime(fixedNow.Add(time.Hour)),
	}

	worklogs.On("GetByWorklogID", ctx, "wl-9").Return(wl, nil)
	disputes.On("GetActiveByScopeKey", ctx, models.WorklogScope(wl.ID).Key(contract.ID)).Return(nil, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			d := args.Get(1).(*models.Dispute)
			assert.Equal(t, models.ScopeKindWorklog, d.ScopeKind)
			assert.Equal(t, wl.ID, *d.ScopeID)
			assert.Equal(t, models.DisputeReasonUnfairRejection, d.ReasonCode)
			assert.Equal(t, contract.PaymentType, d.ContractType)

			freeze := args.Get(2).(*models.DisputeScope)
			assert.NotNil(t, freeze)
			assert.Equal(t, models.ScopeKindWorklog, freeze.Kind)
		}).
		Return(nil)

	d, err := svc.RaiseDispute(ctx, freelancerID, contract.ID, "wl-9", "работа выполнена по ТЗ полностью")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	disputes.AssertExpectations(t)
}

func TestWorklogService_RaiseDispute_NotRejected(t *testing.T) {
	_, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contractID := uuid.New()

	wl := &models.WorkLog{
		ID:           uuid.New(),
		WorklogID:    "wl-10",
		ContractID:   contractID,
		FreelancerID: freelancerID,
		Status:       models.WorkLogStatusApproved,
	}
	worklogs.On("GetByWorklogID", ctx, "wl-10").Return(wl, nil)

	_, err := svc.RaiseDispute(ctx, freelancerID, contractID, "wl-10", "несправедливое отклонение")
	assert.True(t, apperror.HasReason(err, apperror.ReasonWorklogNotRejected))
}

func TestWorklogService_RaiseDispute_WindowBoundary(t *testing.T) {
	// Подача ровно в момент дедлайна ещё допустима, на миллисекунду
	// позже — уже нет.
	windowEnd := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)

	makeFixture := func(now time.Time) (*WorklogService, *mockDisputeStore, uuid.UUID, uuid.UUID) {
		contracts, worklogs, disputes, _, svc := newWorklogFixture()
		svc.now = func() time.Time { return now }
		freelancerID := uuid.New()
		contract := activeHourlyContract(uuid.New(), freelancerID, 20)
		wl := &models.WorkLog{
			ID:                   uuid.New(),
			WorklogID:            "wl-11",
			ContractID:           contract.ID,
			FreelancerID:         freelancerID,
			Status:               models.WorkLogStatusRejected,
			DisputeWindowEndDate: &windowEnd,
		}
		worklogs.On("GetByWorklogID", mock.Anything, "wl-11").Return(wl, nil)
		disputes.On("GetActiveByScopeKey", mock.Anything, mock.Anything).Return(nil, nil)
		contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
		disputes.On("CreateWithFreeze", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		return svc, disputes, freelancerID, contract.ID
	}

	svc, _, freelancerID, contractID := makeFixture(windowEnd)
	_, err := svc.RaiseDispute(context.Background(), freelancerID, contractID, "wl-11", "работа сделана полностью")
	assert.NoError(t, err)

	svc, _, freelancerID, contractID = makeFixture(windowEnd.Add(time.Millisecond))
	_, err = svc.RaiseDispute(context.Background(), freelancerID, contractID, "wl-11", "работа сделана полностью")
	assert.True(t, apperror.HasReason(err, apperror.ReasonDisputeWindowExpired))
}

func TestWorklogService_RaiseDispute_ActiveDisputeExists(t *testing.T) {
	_, worklogs, disputes, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contractID := uuid.New()

	wl := &models.WorkLog{
		ID:                   uuid.New(),
		WorklogID:            "wl-12",
		ContractID:           contractID,
		FreelancerID:         freelancerID,
		Status:               models.WorkLogStatusRejected,
		DisputeWindowEndDate: ptrTime(time.Now().Add(time.Hour)),
	}
	worklogs.On("GetByWorklogID", ctx, "wl-12").Return(wl, nil)
	disputes.On("GetActiveByScopeKey", ctx, mock.Anything).
		Return(&models.Dispute{Status: models.DisputeStatusOpen}, nil)

	_, err := svc.RaiseDispute(ctx, freelancerID, contractID, "wl-12", "несправедливое отклонение")
	assert.True(t, apperror.HasReason(err, apperror.ReasonWorklogDisputeExists))
}

func TestWorklogService_RaiseDispute_LosesCreationRace(t *testing.T) {
	contracts, worklogs, disputes, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	wl := &models.WorkLog{
		ID:                   uuid.New(),
		WorklogID:            "wl-13",
		ContractID:           contract.ID,
		FreelancerID:         freelancerID,
		Status:               models.WorkLogStatusRejected,
		DisputeWindowEndDate: ptrTime(time.Now().Add(time.Hour)),
	}
	worklogs.On("GetByWorklogID", ctx, "wl-13").Return(wl, nil)
	disputes.On("GetActiveByScopeKey", ctx, mock.Anything).Return(nil, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, mock.Anything).
		Return(repository.ErrActiveDisputeExists)

	_, err := svc.RaiseDispute(ctx, freelancerID, contract.ID, "wl-13", "несправедливое отклонение")
	assert.True(t, apperror.HasReason(err, apperror.ReasonWorklogDisputeExists))
}

func TestWorklogService_RaiseDispute_ScopedPerWorklog(t *testing.T) {
	// Уникальность активного спора считается по области действия: спор
	// другой области (например, контрактной) не блокирует спор по ворклогу.
	contracts, worklogs, disputes, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	wl := &models.WorkLog{
		ID:                   uuid.New(),
		WorklogID:            "wl-17",
		ContractID:           contract.ID,
		FreelancerID:         freelancerID,
		Status:               models.WorkLogStatusRejected,
		DisputeWindowEndDate: ptrTime(time.Now().Add(time.Hour)),
	}
	worklogs.On("GetByWorklogID", ctx, "wl-17").Return(wl, nil)
	disputes.On("GetActiveByScopeKey", ctx, models.WorklogScope(wl.ID).Key(contract.ID)).Return(nil, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.RaiseDispute(ctx, freelancerID, contract.ID, "wl-17", "работа выполнена полностью")
	assert.NoError(t, err)
	disputes.AssertNotCalled(t, "HasActiveByContract", mock.Anything, mock.Anything)
}

func TestWorklogService_RaiseDispute_ForeignWorklog(t *testing.T) {
	_, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()

	wl := &models.WorkLog{
		ID:           uuid.New(),
		WorklogID:    "wl-14",
		ContractID:   uuid.New(),
		FreelancerID: uuid.New(),
		Status:       models.WorkLogStatusRejected,
	}
	worklogs.On("GetByWorklogID", ctx, "wl-14").Return(wl, nil)

	// Чужой фрилансер не должен отличить чужой ворклог от несуществующего.
	_, err := svc.RaiseDispute(ctx, uuid.New(), wl.ContractID, "wl-14", "несправедливое отклонение")
	assert.True(t, apperror.IsNotFound(err))
}

func TestWorklogService_Get_LoadsFilesAndHold(t *testing.T) {
	_, worklogs, _, escrow, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contractID := uuid.New()

	wl := &models.WorkLog{
		ID:           uuid.New(),
		WorklogID:    "wl-15",
		ContractID:   contractID,
		FreelancerID: freelancerID,
		Status:       models.WorkLogStatusSubmitted,
	}
	files := []models.WorkLogFile{{FileName: "a.png", FileURL: "https://cdn/a.png"}}
	hold := &models.EscrowTransaction{
		ContractID: contractID,
		Amount:     20,
		Purpose:    models.EscrowPurposeHold,
		Status:     models.EscrowStatusActiveHold,
	}

	worklogs.On("GetByWorklogID", ctx, "wl-15").Return(wl, nil)
	worklogs.On("ListFiles", ctx, wl.ID).Return(files, nil)
	escrow.On("GetHoldByWorklog", ctx, wl.ID).Return(hold, nil)

	got, err := svc.Get(ctx, freelancerID, contractID, "wl-15")
	assert.NoError(t, err)
	assert.Len(t, got.Files, 1)
	assert.Equal(t, float64(20), got.Hold.Amount)
}

func TestWorklogService_Get_NoHoldRecord(t *testing.T) {
	_, worklogs, _, escrow, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contractID := uuid.New()

	wl := &models.WorkLog{
		ID:           uuid.New(),
		WorklogID:    "wl-16",
		ContractID:   contractID,
		FreelancerID: freelancerID,
		Status:       models.WorkLogStatusSubmitted,
	}

	worklogs.On("GetByWorklogID", ctx, "wl-16").Return(wl, nil)
	worklogs.On("ListFiles", ctx, wl.ID).Return([]models.WorkLogFile{}, nil)
	escrow.On("GetHoldByWorklog", ctx, wl.ID).Return(nil, repository.ErrEscrowNotFound)

	got, err := svc.Get(ctx, freelancerID, contractID, "wl-16")
	assert.NoError(t, err)
	assert.Nil(t, got.Hold)
}

func TestWorklogService_List_DefaultLimit(t *testing.T) {
	contracts, worklogs, _, _, svc := newWorklogFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := activeHourlyContract(uuid.New(), freelancerID, 20)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	worklogs.On("ListByContract", ctx, contract.ID, (*string)(nil), 20, 0).
		Return([]models.WorkLog{}, nil)

	_, err := svc.List(ctx, freelancerID, contract.ID, nil, 0, -5)
	assert.NoError(t, err)
	worklogs.AssertExpectations(t)
}

func TestStartOfWeek(t *testing.T) {
	// Среда 11 марта 2026 -> понедельник 9 марта 00:00
	wed := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfWeek(wed))

	// Воскресенье относится к уходящей неделе
	sun := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfWeek(sun))

	// Понедельник 00:00 — уже новая неделя
	mon := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, startOfWeek(mon))
}

package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-backend/internal/repository"
)

func newDisputeFixture() (*mockContractStore, *mockDisputeStore, *DisputeService) {
	contracts := new(mockContractStore)
	disputes := new(mockDisputeStore)
	svc := NewDisputeService(contracts, disputes, new(mockEscrowStore), nopActivity{})
	return contracts, disputes, svc
}

func fixedContract(clientID, freelancerID uuid.UUID) *models.Contract {
	budget := 5000.0
	return &models.Contract{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		PaymentType:  models.ContractPaymentFixed,
		Budget:       &budget,
		Status:       models.ContractStatusActive,
	}
}

func TestDisputeService_Create_FixedFreezesContractHold(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(false, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			d := args.Get(1).(*models.Dispute)
			assert.Equal(t, models.ScopeKindContract, d.ScopeKind)
			assert.Equal(t, models.RoleClient, d.RaisedBy)
			assert.Equal(t, models.ContractPaymentFixed, d.ContractType)

			freeze := args.Get(2).(*models.DisputeScope)
			assert.NotNil(t, freeze)
			assert.Equal(t, models.ScopeKindContract, freeze.Kind)
		}).
		Return(nil)

	d, err := svc.Create(ctx, clientID, models.RoleClient, CreateDisputeInput{
		ContractID:  contract.ID,
		ReasonCode:  models.DisputeReasonQualityOfWork,
		Description: "результат не соответствует ТЗ",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Create_HourlyContractScopeNoFreeze(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)
	contract.PaymentType = models.ContractPaymentHourly

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(false, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, (*models.DisputeScope)(nil)).Return(nil)

	_, err := svc.Create(ctx, freelancerID, models.RoleFreelancer, CreateDisputeInput{
		ContractID:  contract.ID,
		ReasonCode:  models.DisputeReasonNonPayment,
		Description: "оплата не поступила в срок",
	})

	assert.NoError(t, err)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Create_InvalidReason(t *testing.T) {
	_, _, svc := newDisputeFixture()

	_, err := svc.Create(context.Background(), uuid.New(), models.RoleClient, CreateDisputeInput{
		ContractID:  uuid.New(),
		ReasonCode:  "because",
		Description: "причина не из словаря",
	})

	assert.True(t, apperror.HasReason(err, apperror.ReasonInvalidReason))
}

func TestDisputeService_Create_ShortDescription(t *testing.T) {
	_, _, svc := newDisputeFixture()

	_, err := svc.Create(context.Background(), uuid.New(), models.RoleClient, CreateDisputeInput{
		ContractID:  uuid.New(),
		ReasonCode:  models.DisputeReasonOther,
		Description: "мало",
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Create_ActiveDisputeExists(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(true, nil)

	_, err := svc.Create(ctx, clientID, models.RoleClient, CreateDisputeInput{
		ContractID:  contract.ID,
		ReasonCode:  models.DisputeReasonQualityOfWork,
		Description: "результат не соответствует ТЗ",
	})

	assert.True(t, apperror.HasReason(err, apperror.ReasonDisputeAlreadyExists))
}

func TestDisputeService_Create_LosesCreationRace(t *testing.T) {
	// Два участника проходят предварительную проверку одновременно,
	// вставку выигрывает только один.
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(false, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, mock.Anything).
		Return(repository.ErrActiveDisputeExists)

	_, err := svc.Create(ctx, clientID, models.RoleClient, CreateDisputeInput{
		ContractID:  contract.ID,
		ReasonCode:  models.DisputeReasonQualityOfWork,
		Description: "результат не соответствует ТЗ",
	})

	assert.True(t, apperror.HasReason(err, apperror.ReasonDisputeAlreadyExists))
}

func TestDisputeService_Get_ByHumanReadableID(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())

	d := &models.Dispute{
		ID:         uuid.New(),
		DisputeID:  "dspt-042",
		ContractID: contract.ID,
		Status:     models.DisputeStatusOpen,
	}
	disputes.On("GetByDisputeID", ctx, "dspt-042").Return(d, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	got, err := svc.Get(ctx, clientID, "dspt-042")
	assert.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDisputeService_Get_ForbiddenForOutsider(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	contract := fixedContract(uuid.New(), uuid.New())

	d := &models.Dispute{
		ID:         uuid.New(),
		DisputeID:  "dspt-043",
		ContractID: contract.ID,
		Status:     models.DisputeStatusOpen,
	}
	disputes.On("GetByDisputeID", ctx, "dspt-043").Return(d, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Get(ctx, uuid.New(), "dspt-043")
	assert.True(t, apperror.IsForbidden(err))
}

func TestDisputeService_Get_MalformedID(t *testing.T) {
	_, _, svc := newDisputeFixture()

	_, err := svc.Get(context.Background(), uuid.New(), "not-a-dispute-id")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDisputeService_ListActivity_PartyOnly(t *testing.T) {
	contracts := new(mockContractStore)
	activity := new(mockActivityStore)
	svc := NewDisputeService(contracts, new(mockDisputeStore), new(mockEscrowStore), activity)
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)
	activity.On("ListByContract", ctx, contract.ID).Return([]models.ContractActivity{
		{ContractID: contract.ID, Action: models.ActivityDisputeRaised},
	}, nil)

	items, err := svc.ListActivity(ctx, clientID, contract.ID, models.RoleClient)
	assert.NoError(t, err)
	assert.Len(t, items, 1)

	// Посторонний журнал контракта не видит.
	strangerID := uuid.New()
	contracts.On("GetForClient", ctx, contract.ID, strangerID).
		Return(nil, repository.ErrContractNotFound)
	_, err = svc.ListActivity(ctx, strangerID, contract.ID, models.RoleClient)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDisputeService_CancelWithDispute(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(false, nil)
	// Холд не замораживается при отмене со спором
	disputes.On("CreateWithFreeze", ctx, mock.Anything, (*models.DisputeScope)(nil)).Return(nil)
	contracts.On("UpdateStatusFrom", ctx, contract.ID, models.ContractStatusActive,
		models.ContractStatusCancelled, ptrString(models.RoleFreelancer)).Return(nil)

	d, err := svc.CancelWithDispute(ctx, freelancerID, models.RoleFreelancer, contract.ID,
		models.DisputeReasonScopeDisagreement, "клиент требует работы сверх ТЗ")

	assert.NoError(t, err)
	assert.Equal(t, models.RoleFreelancer, d.RaisedBy)
	contracts.AssertExpectations(t)
}

func TestDisputeService_CancelWithDispute_AlreadyCancelled(t *testing.T) {
	contracts, _, svc := newDisputeFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fixedContract(clientID, uuid.New())
	contract.Status = models.ContractStatusCancelled

	contracts.On("GetForClient", ctx, contract.ID, clientID).Return(contract, nil)

	_, err := svc.CancelWithDispute(ctx, clientID, models.RoleClient, contract.ID,
		models.DisputeReasonOther, "контракт больше не нужен")

	assert.True(t, apperror.IsInvalidState(err))
}

func TestDisputeService_RaiseForCancelledContract(t *testing.T) {
	contracts, disputes, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)
	contract.Status = models.ContractStatusCancelled
	contract.CancelledBy = ptrString(models.RoleClient)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)
	disputes.On("HasActiveByContract", ctx, contract.ID).Return(false, nil)
	disputes.On("CreateWithFreeze", ctx, mock.Anything, (*models.DisputeScope)(nil)).
		Run(func(args mock.Arguments) {
			d := args.Get(1).(*models.Dispute)
			assert.Equal(t, models.DisputeReasonUnfairCancellation, d.ReasonCode)
			assert.Equal(t, models.ScopeKindContract, d.ScopeKind)
		}).
		Return(nil)
	contracts.On("UpdateStatusFrom", ctx, contract.ID, models.ContractStatusCancelled,
		models.ContractStatusDisputed, (*string)(nil)).Return(nil)

	_, err := svc.RaiseForCancelledContract(ctx, freelancerID, contract.ID, nil,
		"отмена после сдачи всей работы")

	assert.NoError(t, err)
	contracts.AssertExpectations(t)
	disputes.AssertExpectations(t)
}

func TestDisputeService_RaiseForCancelledContract_CancelledByFreelancer(t *testing.T) {
	contracts, _, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)
	contract.Status = models.ContractStatusCancelled
	contract.CancelledBy = ptrString(models.RoleFreelancer)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.RaiseForCancelledContract(ctx, freelancerID, contract.ID, nil,
		"отмена после сдачи всей работы")

	assert.True(t, apperror.HasReason(err, apperror.ReasonCannotRaiseDispute))
}

func TestDisputeService_RaiseForCancelledContract_HourlyNotImplemented(t *testing.T) {
	contracts, _, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)
	contract.PaymentType = models.ContractPaymentHourly
	contract.Status = models.ContractStatusCancelled
	contract.CancelledBy = ptrString(models.RoleClient)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.RaiseForCancelledContract(ctx, freelancerID, contract.ID, nil,
		"отмена после сдачи всей работы")

	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.ErrCodeNotImplemented, appErr.Code)
}

func TestDisputeService_RaiseForCancelledContract_MilestoneRequired(t *testing.T) {
	contracts, _, svc := newDisputeFixture()
	ctx := context.Background()
	freelancerID := uuid.New()
	contract := fixedContract(uuid.New(), freelancerID)
	contract.PaymentType = models.ContractPaymentFixedWithMilestones
	contract.Status = models.ContractStatusCancelled
	contract.CancelledBy = ptrString(models.RoleClient)

	contracts.On("GetForFreelancer", ctx, contract.ID, freelancerID).Return(contract, nil)

	_, err := svc.RaiseForCancelledContract(ctx, freelancerID, contract.ID, nil,
		"отмена после сдачи всей работы")

	assert.True(t, apperror.IsValidation(err))
}

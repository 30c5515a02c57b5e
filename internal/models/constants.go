package models

// Роли участников
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleSystem     = "system"
	RoleAdmin      = "admin"
)

// ValidContractStatuses список валидных статусов контракта
var ValidContractStatuses = map[string]struct{}{
	ContractStatusActive:    {},
	ContractStatusHeld:      {},
	ContractStatusCompleted: {},
	ContractStatusCancelled: {},
	ContractStatusDisputed:  {},
	ContractStatusRefunded:  {},
}

// ValidDisputeStatuses список валидных статусов спора
var ValidDisputeStatuses = map[string]struct{}{
	DisputeStatusOpen:        {},
	DisputeStatusUnderReview: {},
	DisputeStatusResolved:    {},
	DisputeStatusRejected:    {},
}

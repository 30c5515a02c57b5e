package dto

// WorklogFileRequest — метаданные файла-доказательства.
type WorklogFileRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
}

// SubmitWorklogRequest — заявка фрилансера на учёт работы.
type SubmitWorklogRequest struct {
	MilestoneID *string              `json:"milestone_id,omitempty"`
	DurationMs  int64                `json:"duration_ms" binding:"required"`
	Files       []WorklogFileRequest `json:"files" binding:"required"`
	Description *string              `json:"description,omitempty"`
}

// ReviewWorklogRequest — решение контрагента по ворклогу.
type ReviewWorklogRequest struct {
	Approve bool    `json:"approve"`
	Message *string `json:"message,omitempty"`
}

// RaiseWorklogDisputeRequest — оспаривание отклонённого ворклога.
type RaiseWorklogDisputeRequest struct {
	Description string `json:"description" binding:"required"`
}

// CreateDisputeRequest — открытие спора по контракту/вехе/ворклогу.
// Scope по умолчанию contract; scope_id обязателен для milestone и worklog.
type CreateDisputeRequest struct {
	ReasonCode  string  `json:"reason_code" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Scope       *string `json:"scope,omitempty"`
	ScopeID     *string `json:"scope_id,omitempty"`
}

// CancelContractRequest — отмена контракта с одновременным открытием спора.
type CancelContractRequest struct {
	ReasonCode  string `json:"reason_code" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CancelledContractDisputeRequest — оспаривание фрилансером отмены,
// выполненной клиентом.
type CancelledContractDisputeRequest struct {
	MilestoneID *string `json:"milestone_id,omitempty"`
	Notes       string  `json:"notes" binding:"required"`
}

// ResolveDisputeRequest — раздел удержанных средств админом.
type ResolveDisputeRequest struct {
	ClientPercentage     float64 `json:"client_percentage"`
	FreelancerPercentage float64 `json:"freelancer_percentage"`
}

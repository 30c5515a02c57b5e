package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы ворклога
const (
	WorkLogStatusSubmitted = "submitted"
	WorkLogStatusApproved  = "approved"
	WorkLogStatusRejected  = "rejected"
	WorkLogStatusPaid      = "paid"
)

// ValidWorkLogStatuses список валидных статусов ворклога
var ValidWorkLogStatuses = map[string]struct{}{
	WorkLogStatusSubmitted: {},
	WorkLogStatusApproved:  {},
	WorkLogStatusRejected:  {},
	WorkLogStatusPaid:      {},
}

// WorkLog представляет единицу оплачиваемой работы фрилансера.
// DisputeWindowEndDate заполняется только при статусе rejected и задаёт
// дедлайн, после которого отклонение становится окончательным.
type WorkLog struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	WorklogID            string     `db:"worklog_id" json:"worklog_id"`
	ContractID           uuid.UUID  `db:"contract_id" json:"contract_id"`
	MilestoneID          *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	FreelancerID         uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	StartTime            time.Time  `db:"start_time" json:"start_time"`
	EndTime              time.Time  `db:"end_time" json:"end_time"`
	DurationMs           int64      `db:"duration_ms" json:"duration_ms"`
	Description          *string    `db:"description" json:"description,omitempty"`
	Status               string     `db:"status" json:"status"`
	ReviewedAt           *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewMessage        *string    `db:"review_message" json:"review_message,omitempty"`
	DisputeWindowEndDate *time.Time `db:"dispute_window_end_date" json:"dispute_window_end_date,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`

	Files []WorkLogFile      `json:"files,omitempty"`
	Hold  *EscrowTransaction `json:"hold,omitempty"`
}

// WorkLogFile описывает файл-доказательство, приложенный к ворклогу.
// Сами файлы загружаются отдельной подсистемой, здесь хранятся только метаданные.
type WorkLogFile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	WorkLogID uuid.UUID `db:"worklog_id" json:"-"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileURL   string    `db:"file_url" json:"file_url"`
}

// DurationHours возвращает длительность ворклога в часах.
func (w *WorkLog) DurationHours() float64 {
	return float64(w.DurationMs) / float64(time.Hour/time.Millisecond)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/repository/common"
)

var (
	ErrWorklogNotFound     = errors.New("worklog not found")
	ErrWorklogStateChanged = errors.New("worklog status changed concurrently")
)

type WorklogRepository struct {
	db *sqlx.DB
}

func NewWorklogRepository(db *sqlx.DB) *WorklogRepository {
	return &WorklogRepository{db: db}
}

// CreateWithHold создаёт ворклог, его файлы-доказательства и холд-запись
// леджера одной транзакцией: частично созданный ворклог без холда невозможен.
func (r *WorklogRepository) CreateWithHold(ctx context.Context, wl *models.WorkLog, hold *models.EscrowTransaction) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO worklogs (worklog_id, contract_id, milestone_id, freelancer_id,
				start_time, end_time, duration_ms, description, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`, wl.WorklogID, wl.ContractID, wl.MilestoneID, wl.FreelancerID,
			wl.StartTime, wl.EndTime, wl.DurationMs, wl.Description, wl.Status).
			Scan(&wl.ID, &wl.CreatedAt)
		if err != nil {
			return err
		}

		inserter := common.NewBatchInserter(tx,
			`INSERT INTO worklog_files (worklog_id, file_name, file_url)`, 3, 100)
		for i := range wl.Files {
			wl.Files[i].WorkLogID = wl.ID
			if err := inserter.Add(ctx, wl.ID, wl.Files[i].FileName, wl.Files[i].FileURL); err != nil {
				return err
			}
		}
		if err := inserter.Flush(ctx); err != nil {
			return err
		}

		hold.WorkLogID = &wl.ID
		return tx.QueryRowContext(ctx, `
			INSERT INTO escrow_transactions (contract_id, worklog_id, milestone_id,
				amount, purpose, status, description, client_id, freelancer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`, hold.ContractID, hold.WorkLogID, hold.MilestoneID, hold.Amount,
			hold.Purpose, hold.Status, hold.Description, hold.ClientID, hold.FreelancerID).
			Scan(&hold.ID, &hold.CreatedAt)
	})
}

func (r *WorklogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkLog, error) {
	return common.GetByField[models.WorkLog](ctx, r.db, "worklogs", "id", id, ErrWorklogNotFound)
}

// GetByWorklogID возвращает ворклог по внешнему идентификатору (wl-...).
func (r *WorklogRepository) GetByWorklogID(ctx context.Context, worklogID string) (*models.WorkLog, error) {
	return common.GetByField[models.WorkLog](ctx, r.db, "worklogs", "worklog_id", worklogID, ErrWorklogNotFound)
}

// ListByContract возвращает ворклоги контракта, новые первыми.
func (r *WorklogRepository) ListByContract(ctx context.Context, contractID uuid.UUID, status *string, limit, offset int) ([]models.WorkLog, error) {
	var worklogs []models.WorkLog
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &worklogs, `
			SELECT * FROM worklogs
			WHERE contract_id = $1 AND status = $2
			ORDER BY created_at DESC LIMIT $3 OFFSET $4
		`, contractID, *status, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &worklogs, `
			SELECT * FROM worklogs
			WHERE contract_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, contractID, limit, offset)
	}
	return worklogs, err
}

// ListFiles возвращает файлы-доказательства ворклога.
func (r *WorklogRepository) ListFiles(ctx context.Context, worklogID uuid.UUID) ([]models.WorkLogFile, error) {
	var files []models.WorkLogFile
	err := r.db.SelectContext(ctx, &files, `
		SELECT * FROM worklog_files WHERE worklog_id = $1 ORDER BY id
	`, worklogID)
	return files, err
}

// UpdateReview записывает исход ревью. Статус, метка времени, комментарий и
// окно оспаривания меняются одним UPDATE: отклонение без окна невозможно.
// Guard по статусу submitted не даёт перезаписать уже выполненное ревью.
func (r *WorklogRepository) UpdateReview(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time, message *string, windowEnd *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE worklogs
		SET status = $2, reviewed_at = $3, review_message = $4, dispute_window_end_date = $5
		WHERE id = $1 AND status = $6
	`, id, status, reviewedAt, message, windowEnd, models.WorkLogStatusSubmitted)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWorklogStateChanged
	}
	return nil
}

// SumDurationMsBetween суммирует длительность ворклогов фрилансера по
// контракту, у которых start_time попадает в полуоткрытый интервал [from, to).
func (r *WorklogRepository) SumDurationMsBetween(ctx context.Context, contractID, freelancerID uuid.UUID, from, to time.Time) (int64, error) {
	var total sql.NullInt64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(duration_ms), 0) FROM worklogs
		WHERE contract_id = $1 AND freelancer_id = $2
		  AND start_time >= $3 AND start_time < $4
	`, contractID, freelancerID, from, to)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// ListLapsedRejected возвращает отклонённые ворклоги с истёкшим окном
// оспаривания — кандидаты для фоновой сверки.
func (r *WorklogRepository) ListLapsedRejected(ctx context.Context, now time.Time, limit int) ([]models.WorkLog, error) {
	var worklogs []models.WorkLog
	err := r.db.SelectContext(ctx, &worklogs, `
		SELECT * FROM worklogs
		WHERE status = $1 AND dispute_window_end_date IS NOT NULL
		  AND dispute_window_end_date < $2
		ORDER BY dispute_window_end_date ASC
		LIMIT $3
	`, models.WorkLogStatusRejected, now, limit)
	return worklogs, err
}

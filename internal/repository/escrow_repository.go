package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/repository/common"
)

var ErrEscrowNotFound = errors.New("escrow transaction not found")

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// GetHoldByScope возвращает холд для области спора независимо от того,
// активен он или уже заморожен.
func (r *EscrowRepository) GetHoldByScope(ctx context.Context, contractID uuid.UUID, scope models.DisputeScope) (*models.EscrowTransaction, error) {
	cond, arg, err := holdCondition(scope)
	if err != nil {
		return nil, err
	}
	if arg == nil {
		arg = contractID
	}

	var e models.EscrowTransaction
	err = r.db.GetContext(ctx, &e, fmt.Sprintf(`
		SELECT * FROM escrow_transactions
		WHERE %s AND status IN ($2, $3)
	`, cond), arg, models.EscrowStatusActiveHold, models.EscrowStatusFrozenDispute)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetHoldByWorklog возвращает холд-запись ворклога.
func (r *EscrowRepository) GetHoldByWorklog(ctx context.Context, worklogID uuid.UUID) (*models.EscrowTransaction, error) {
	var e models.EscrowTransaction
	err := r.db.GetContext(ctx, &e, `
		SELECT * FROM escrow_transactions
		WHERE worklog_id = $1 AND purpose = $2
	`, worklogID, models.EscrowPurposeHold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByContract возвращает записи леджера контракта, новые первыми.
func (r *EscrowRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error) {
	var entries []models.EscrowTransaction
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM escrow_transactions WHERE contract_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	return entries, err
}

// ReleaseLapsedHold освобождает холд ворклога с истёкшим окном оспаривания.
// Перепроверка отсутствия активного спора встроена в сам UPDATE и выполняется
// последним шагом перед освобождением: гонку со свежеоткрытым спором сверка
// обязана проиграть. Уже освобождённый или замороженный холд не совпадает с
// guard-условием, поэтому повторный запуск — no-op (released == nil).
// Если контракт уже completed, той же транзакцией создаётся запись возврата
// клиенту: завершённый контракт не должен удерживать средства.
func (r *EscrowRepository) ReleaseLapsedHold(ctx context.Context, worklogID uuid.UUID) (released *models.EscrowTransaction, refunded bool, err error) {
	err = common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var hold models.EscrowTransaction
		err := tx.GetContext(ctx, &hold, `
			UPDATE escrow_transactions SET status = $2
			WHERE worklog_id = $1 AND purpose = $3 AND status = $4
			  AND NOT EXISTS (
				SELECT 1 FROM disputes
				WHERE scope_kind = $5 AND scope_id = $1 AND status IN ($6, $7)
			  )
			RETURNING *
		`, worklogID, models.EscrowStatusReleased, models.EscrowPurposeHold,
			models.EscrowStatusActiveHold, models.ScopeKindWorklog,
			models.DisputeStatusOpen, models.DisputeStatusUnderReview)
		if errors.Is(err, sql.ErrNoRows) {
			// Холд уже освобождён, заморожен спором или не существует.
			return nil
		}
		if err != nil {
			return err
		}
		released = &hold

		var contractStatus string
		if err := tx.GetContext(ctx, &contractStatus, `
			SELECT status FROM contracts WHERE id = $1
		`, hold.ContractID); err != nil {
			return err
		}
		if contractStatus != models.ContractStatusCompleted {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO escrow_transactions (contract_id, worklog_id, milestone_id,
				amount, purpose, status, description, client_id, freelancer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, hold.ContractID, hold.WorkLogID, hold.MilestoneID, hold.Amount,
			models.EscrowPurposeRefund, models.EscrowStatusCompleted,
			"Возврат клиенту: окно оспаривания истекло после завершения контракта",
			hold.ClientID, hold.FreelancerID)
		if err != nil {
			return err
		}
		refunded = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return released, refunded, nil
}

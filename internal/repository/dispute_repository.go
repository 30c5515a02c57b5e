package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/repository/common"
)

var (
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrActiveDisputeExists = errors.New("active dispute already exists for this scope")
	ErrDisputeStateChanged = errors.New("dispute status changed concurrently")
	ErrHoldNotFound        = errors.New("escrow hold not found for dispute scope")
)

// pgUniqueViolation код ошибки Postgres для нарушения уникальности.
const pgUniqueViolation = "23505"

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// holdCondition возвращает условие выбора холда для области спора.
// Единственный аргумент условия всегда $1.
func holdCondition(scope models.DisputeScope) (string, interface{}, error) {
	switch scope.Kind {
	case models.ScopeKindWorklog:
		return `worklog_id = $1 AND purpose = 'hold'`, *scope.ID, nil
	case models.ScopeKindMilestone:
		return `milestone_id = $1 AND purpose = 'hold'`, *scope.ID, nil
	case models.ScopeKindContract:
		return `contract_id = $1 AND worklog_id IS NULL AND milestone_id IS NULL AND purpose = 'hold'`, nil, nil
	default:
		return "", nil, fmt.Errorf("unknown dispute scope kind %q", scope.Kind)
	}
}

// CreateWithFreeze создаёт спор и, если задана freezeScope, замораживает
// соответствующий холд той же транзакцией. Человекочитаемый dispute_id
// выдаётся последовательностью dispute_seq: nextval атомарен, коллизии
// невозможны даже при конкурентном создании. Частичный уникальный индекс
// по scope_key гарантирует не более одного активного спора на область —
// нарушение транслируется в ErrActiveDisputeExists.
func (r *DisputeRepository) CreateWithFreeze(ctx context.Context, d *models.Dispute, freezeScope *models.DisputeScope) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('dispute_seq')`).Scan(&seq); err != nil {
			return err
		}
		d.DisputeID = fmt.Sprintf("dspt-%03d", seq)
		d.ScopeKey = d.Scope().Key(d.ContractID)

		err := tx.QueryRowContext(ctx, `
			INSERT INTO disputes (dispute_id, contract_id, raised_by, scope_kind, scope_id,
				scope_key, contract_type, reason_code, description, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`, d.DisputeID, d.ContractID, d.RaisedBy, d.ScopeKind, d.ScopeID,
			d.ScopeKey, d.ContractType, d.ReasonCode, d.Description, d.Status).
			Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return err
		}

		if freezeScope == nil {
			return nil
		}
		return freezeHoldTx(ctx, tx, d.ContractID, *freezeScope)
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrActiveDisputeExists
		}
		return err
	}
	return nil
}

// freezeHoldTx переводит активный холд области в frozen_dispute.
// Отсутствие активного холда — ошибка: спор не должен существовать без
// замороженных средств, которыми он управляет.
func freezeHoldTx(ctx context.Context, tx *sqlx.Tx, contractID uuid.UUID, scope models.DisputeScope) error {
	cond, arg, err := holdCondition(scope)
	if err != nil {
		return err
	}
	if arg == nil {
		arg = contractID
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE escrow_transactions SET status = $2 WHERE %s AND status = $3
	`, cond), arg, models.EscrowStatusFrozenDispute, models.EscrowStatusActiveHold)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHoldNotFound
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "id", id, ErrDisputeNotFound)
}

// GetByDisputeID возвращает спор по человекочитаемому номеру (dspt-...).
func (r *DisputeRepository) GetByDisputeID(ctx context.Context, disputeID string) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "dispute_id", disputeID, ErrDisputeNotFound)
}

// GetActiveByScopeKey возвращает активный спор области, nil если его нет.
func (r *DisputeRepository) GetActiveByScopeKey(ctx context.Context, scopeKey string) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM disputes
		WHERE scope_key = $1 AND status IN ($2, $3)
	`, scopeKey, models.DisputeStatusOpen, models.DisputeStatusUnderReview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasActiveByContract сообщает, есть ли по контракту активный спор
// любой области действия.
func (r *DisputeRepository) HasActiveByContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE contract_id = $1 AND status IN ($2, $3)
		)
	`, contractID, models.DisputeStatusOpen, models.DisputeStatusUnderReview)
	return exists, err
}

func (r *DisputeRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE contract_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	return disputes, err
}

// BeginReview переводит спор open -> under_review.
func (r *DisputeRepository) BeginReview(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		UPDATE disputes SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, id, models.DisputeStatusUnderReview, models.DisputeStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeStateChanged
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Resolve закрывает активный спор и разводит удержанные средства одной
// транзакцией: резолюция спора, освобождение холда и записи release/refund
// либо происходят вместе, либо не происходят вовсе. Холд принимается и в
// active_hold, и в frozen_dispute: споры об отмене контракта открываются
// без заморозки, но резолюция обязана добраться до их средств.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, outcome string, clientAmount, freelancerAmount float64, decidedBy string) (*models.Dispute, error) {
	var d models.Dispute
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now()
		err := tx.GetContext(ctx, &d, `
			UPDATE disputes
			SET status = $2, resolution_outcome = $3, resolution_client_amount = $4,
				resolution_freelancer_amount = $5, resolution_decided_by = $6,
				resolved_at = $7, updated_at = NOW()
			WHERE id = $1 AND status IN ($8, $9)
			RETURNING *
		`, id, models.DisputeStatusResolved, outcome, clientAmount, freelancerAmount,
			decidedBy, now, models.DisputeStatusOpen, models.DisputeStatusUnderReview)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDisputeStateChanged
		}
		if err != nil {
			return err
		}

		cond, arg, err := holdCondition(d.Scope())
		if err != nil {
			return err
		}
		if arg == nil {
			arg = d.ContractID
		}

		var hold models.EscrowTransaction
		err = tx.GetContext(ctx, &hold, fmt.Sprintf(`
			UPDATE escrow_transactions SET status = $2 WHERE %s AND status IN ($3, $4)
			RETURNING *
		`, cond), arg, models.EscrowStatusReleased,
			models.EscrowStatusActiveHold, models.EscrowStatusFrozenDispute)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrHoldNotFound
		}
		if err != nil {
			return err
		}

		if freelancerAmount > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO escrow_transactions (contract_id, worklog_id, milestone_id,
					amount, purpose, status, description, client_id, freelancer_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, hold.ContractID, hold.WorkLogID, hold.MilestoneID, freelancerAmount,
				models.EscrowPurposeRelease, models.EscrowStatusCompleted,
				"Выплата фрилансеру по резолюции спора "+d.DisputeID,
				hold.ClientID, hold.FreelancerID)
			if err != nil {
				return err
			}
		}
		if clientAmount > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO escrow_transactions (contract_id, worklog_id, milestone_id,
					amount, purpose, status, description, client_id, freelancer_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, hold.ContractID, hold.WorkLogID, hold.MilestoneID, clientAmount,
				models.EscrowPurposeRefund, models.EscrowStatusCompleted,
				"Возврат клиенту по резолюции спора "+d.DisputeID,
				hold.ClientID, hold.FreelancerID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RejectWithThaw отклоняет активный спор и размораживает его холд обратно
// в active_hold. Отсутствие замороженного холда допустимо: споры об отмене
// контракта и контрактные споры по почасовым ничего не замораживали.
func (r *DisputeRepository) RejectWithThaw(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &d, `
			UPDATE disputes SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status IN ($3, $4)
			RETURNING *
		`, id, models.DisputeStatusRejected,
			models.DisputeStatusOpen, models.DisputeStatusUnderReview)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDisputeStateChanged
		}
		if err != nil {
			return err
		}

		cond, arg, err := holdCondition(d.Scope())
		if err != nil {
			return err
		}
		if arg == nil {
			arg = d.ContractID
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE escrow_transactions SET status = $2 WHERE %s AND status = $3
		`, cond), arg, models.EscrowStatusActiveHold, models.EscrowStatusFrozenDispute)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

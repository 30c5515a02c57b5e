package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/repository/common"
)

var (
	ErrContractNotFound     = errors.New("contract not found")
	ErrContractStateChanged = errors.New("contract status changed concurrently")
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return common.GetByField[models.Contract](ctx, r.db, "contracts", "id", id, ErrContractNotFound)
}

// GetForFreelancer возвращает контракт, принадлежащий фрилансеру.
// Чужой контракт неотличим от несуществующего.
func (r *ContractRepository) GetForFreelancer(ctx context.Context, id, freelancerID uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := r.db.GetContext(ctx, &c, `
		SELECT * FROM contracts WHERE id = $1 AND freelancer_id = $2
	`, id, freelancerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetForClient возвращает контракт, принадлежащий клиенту.
func (r *ContractRepository) GetForClient(ctx context.Context, id, clientID uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := r.db.GetContext(ctx, &c, `
		SELECT * FROM contracts WHERE id = $1 AND client_id = $2
	`, id, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatusFrom переводит контракт из статуса from в статус to.
// Guard по предыдущему статусу закрывает гонку двух конкурентных переходов:
// проигравший получает ErrContractStateChanged.
func (r *ContractRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to string, cancelledBy *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET status = $3, cancelled_by = COALESCE($4, cancelled_by), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, cancelledBy)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContractStateChanged
	}
	return nil
}

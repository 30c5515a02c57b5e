package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-backend/internal/models"
)

type ActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Add(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, action string, details interface{}) error {
	detailsJSON, _ := json.Marshal(details)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contract_activity (contract_id, actor_id, action, details)
		VALUES ($1, $2, $3, $4)
	`, contractID, actorID, action, detailsJSON)
	return err
}

func (r *ActivityRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractActivity, error) {
	var activity []models.ContractActivity
	err := r.db.SelectContext(ctx, &activity, `
		SELECT * FROM contract_activity WHERE contract_id = $1 ORDER BY created_at ASC
	`, contractID)
	return activity, err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notes-bin/imageshare/internal/model"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Activate 读取或创建用户资料并置为活跃，一条 upsert 完成
func (r *ProfileRepository) Activate(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, active)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET active = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("activate profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, active FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

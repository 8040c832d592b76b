package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notes-bin/imageshare/internal/model"
)

// ActionRepository 行为日志，只追加。
// 读取端属于动态流功能，不在本服务范围内。
type ActionRepository struct {
	pool *pgxpool.Pool
}

func NewActionRepository(pool *pgxpool.Pool) *ActionRepository {
	return &ActionRepository{pool: pool}
}

func (r *ActionRepository) Create(ctx context.Context, userID, verb, targetID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO actions (id, user_id, verb, target_id)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, verb, targetID)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// ListByTarget 集成测试用，校验删除后的级联清理
func (r *ActionRepository) ListByTarget(ctx context.Context, targetID string) ([]model.Action, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, verb, target_id, created_at
		FROM actions WHERE target_id = $1
		ORDER BY created_at`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	actions := []model.Action{}
	for rows.Next() {
		var a model.Action
		if err := rows.Scan(&a.ID, &a.UserID, &a.Verb, &a.TargetID, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

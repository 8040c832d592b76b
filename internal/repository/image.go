package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notes-bin/imageshare/internal/model"
)

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

const imageColumns = "id, user_id, title, slug, url, url_user, description, filename, is_private, created_at"

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	err := row.Scan(&img.ID, &img.UserID, &img.Title, &img.Slug, &img.URL, &img.URLUser,
		&img.Description, &img.Filename, &img.IsPrivate, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func collectImages(rows pgx.Rows) ([]model.Image, error) {
	defer rows.Close()
	images := []model.Image{}
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.Title, &img.Slug, &img.URL, &img.URLUser,
			&img.Description, &img.Filename, &img.IsPrivate, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *ImageRepository) Create(ctx context.Context, img *model.Image) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO images (`+imageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		img.ID, img.UserID, img.Title, img.Slug, img.URL, img.URLUser,
		img.Description, img.Filename, img.IsPrivate, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (*model.Image, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id)
	return scanImage(row)
}

// GetByIDSlug 详情页按 id 和 slug 同时匹配
func (r *ImageRepository) GetByIDSlug(ctx context.Context, id, slug string) (*model.Image, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1 AND slug = $2`, id, slug)
	return scanImage(row)
}

func (r *ImageRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM images`).Scan(&n)
	return n, err
}

func (r *ImageRepository) List(ctx context.Context, offset, limit int) ([]model.Image, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+imageColumns+` FROM images
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

func (r *ImageRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM images WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *ImageRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Image, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+imageColumns+` FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// PublicByIDs 按 ID 集合查公开图片，结果顺序不定
func (r *ImageRepository) PublicByIDs(ctx context.Context, ids []string) ([]model.Image, error) {
	if len(ids) == 0 {
		return []model.Image{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+imageColumns+` FROM images
		WHERE id = ANY($1) AND is_private = FALSE`, ids)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// ExistingIDs 过滤出仍然存在的图片 ID，供排行榜清理使用
func (r *ImageRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM images WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	existing := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

func (r *ImageRepository) AddLike(ctx context.Context, imageID, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO image_likes (image_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, imageID, userID)
	if err != nil {
		return fmt.Errorf("add like: %w", err)
	}
	return nil
}

func (r *ImageRepository) RemoveLike(ctx context.Context, imageID, userID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM image_likes WHERE image_id = $1 AND user_id = $2`, imageID, userID)
	if err != nil {
		return fmt.Errorf("remove like: %w", err)
	}
	return nil
}

func (r *ImageRepository) CountLikes(ctx context.Context, imageID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM image_likes WHERE image_id = $1`, imageID).Scan(&n)
	return n, err
}

// DeleteWithActions 在一个事务里删除图片及指向它的行为记录，
// 任一步失败整体回滚。点赞记录由外键级联删除。
func (r *ImageRepository) DeleteWithActions(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM actions WHERE target_id = $1`, id); err != nil {
		return fmt.Errorf("delete actions: %w", err)
	}
	return tx.Commit(ctx)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/notes-bin/imageshare/internal/auth"
	"github.com/notes-bin/imageshare/internal/config"
	"github.com/notes-bin/imageshare/internal/fetch"
	"github.com/notes-bin/imageshare/internal/model"
	"github.com/notes-bin/imageshare/internal/pagination"
	"github.com/notes-bin/imageshare/internal/redis"
	"github.com/notes-bin/imageshare/internal/repository"
	"github.com/notes-bin/imageshare/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 固定页大小和榜单长度
const (
	pageSize       = 1000
	topViewedCount = 10
)

// ImageStore 主存储的图片操作
type ImageStore interface {
	Create(ctx context.Context, img *model.Image) error
	GetByID(ctx context.Context, id string) (*model.Image, error)
	GetByIDSlug(ctx context.Context, id, slug string) (*model.Image, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]model.Image, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Image, error)
	PublicByIDs(ctx context.Context, ids []string) ([]model.Image, error)
	AddLike(ctx context.Context, imageID, userID string) error
	RemoveLike(ctx context.Context, imageID, userID string) error
	CountLikes(ctx context.Context, imageID string) (int, error)
	DeleteWithActions(ctx context.Context, id string) error
}

// ActionStore 行为日志写入
type ActionStore interface {
	Create(ctx context.Context, userID, verb, targetID string) error
}

// ProfileStore 用户资料
type ProfileStore interface {
	Activate(ctx context.Context, userID string) error
}

// ViewTracker 浏览计数和排行榜
type ViewTracker interface {
	RecordView(ctx context.Context, imageID string) (int64, error)
	TopViewed(ctx context.Context, n int) ([]string, error)
}

// FileStore 图片文件存储
type FileStore interface {
	SaveFile(file io.Reader, filename string) error
	DeleteFile(filename string) error
	Exists(filename string) bool
	GetFilePath(filename string) string
}

type Handler struct {
	config   *config.Config
	auth     *auth.Auth
	views    ViewTracker
	images   ImageStore
	actions  ActionStore
	profiles ProfileStore
	files    FileStore
	fetcher  *fetch.Fetcher
}

func NewHandler(config *config.Config, auth *auth.Auth, views ViewTracker,
	images ImageStore, actions ActionStore, profiles ProfileStore,
	files FileStore, fetcher *fetch.Fetcher) *Handler {
	return &Handler{
		config:   config,
		auth:     auth,
		views:    views,
		images:   images,
		actions:  actions,
		profiles: profiles,
		files:    files,
		fetcher:  fetcher,
	}
}

func SetupRouter(cfg *config.Config, rdb *redis.Client, pool *pgxpool.Pool) http.Handler {
	authService := auth.NewAuth(cfg.JWTSecret, rdb)
	storageService, err := storage.NewStorage(cfg.UploadDir)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	fetcher := fetch.NewFetcher(time.Duration(cfg.FetchTimeout)*time.Second, cfg.MaxFetchSize)

	h := NewHandler(cfg, authService, rdb,
		repository.NewImageRepository(pool),
		repository.NewActionRepository(pool),
		repository.NewProfileRepository(pool),
		storageService, fetcher)
	return routes(cfg, h)
}

func routes(cfg *config.Config, h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Duration))

	// 公共路由
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	// 详情和删除不要求登录
	r.Get("/images/{id}/{slug}", h.ImageDetail)
	r.Delete("/images/{id}", h.DeleteImage)

	// 需要认证的路由
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Post("/images", h.CreateImage)
		r.Get("/images", h.ListImages)
		r.Post("/images/like", h.LikeImage)
		r.Get("/users/{user_id}/images", h.UserImages)
		r.Get("/images/{id}/download", h.DownloadImage)
	})

	return r
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "User registered", "user_id": user.ID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	expiresIn := time.Duration(req.ExpiresIn) * time.Second
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	token, err := h.auth.Login(r.Context(), req.Username, req.Password, expiresIn)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateImage 提交外部图片地址，下载后入库。
// 扩展名校验在任何网络访问之前，下载失败按类别返回表单错误。
func (h *Handler) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		URLUser     string `json:"url_user"`
		Description string `json:"description"`
		IsPrivate   bool   `json:"is_private"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Title) == "" {
		fieldErrors["title"] = "This field is required."
	}
	var ext string
	if req.URL == "" {
		fieldErrors["url"] = "This field is required."
	} else {
		var err error
		ext, err = fetch.ExtensionOf(req.URL)
		if err != nil {
			fieldErrors["url"] = "The given URL does not match valid image extensions."
		}
	}
	if len(fieldErrors) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrors})
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"errors": map[string]string{"url": fetchErrorMessage(err)}})
		return
	}

	userID := r.Context().Value("user_id").(string)
	id := uuid.NewString()
	filename := fetch.Filename(req.Title, ext)
	// 文件名被占用时追加记录 ID，避免覆盖
	if h.files.Exists(filename) {
		filename = fetch.FilenameWithID(req.Title, ext, id)
	}
	if err := h.files.SaveFile(bytes.NewReader(data), filename); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	img := &model.Image{
		ID:          id,
		UserID:      userID,
		Title:       req.Title,
		Slug:        fetch.Slugify(req.Title),
		URL:         req.URL,
		URLUser:     req.URLUser,
		Description: req.Description,
		Filename:    filename,
		IsPrivate:   req.IsPrivate,
		CreatedAt:   time.Now(),
	}
	if err := h.images.Create(r.Context(), img); err != nil {
		h.files.DeleteFile(filename)
		slog.Error("Failed to save image", "image_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	// 提交过图片的用户标记为活跃
	if err := h.profiles.Activate(r.Context(), userID); err != nil {
		slog.Error("Failed to activate profile", "user_id", userID, "error", err)
	}
	// 非私有的提交记入行为日志
	if !req.IsPrivate {
		if err := h.actions.Create(r.Context(), userID, model.VerbShared, id); err != nil {
			slog.Error("Failed to record action", "image_id", id, "error", err)
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"image": img,
		"url":   fmt.Sprintf("/images/%s/%s", img.ID, img.Slug),
	})
}

// ImageDetail 详情页，浏览计数和排行榜分数在一次事务里同时加一。
// 未找到记录时不动计数。
func (h *Handler) ImageDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slug := chi.URLParam(r, "slug")

	img, err := h.images.GetByIDSlug(r.Context(), id, slug)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load image", "image_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load image")
		return
	}

	totalViews, err := h.views.RecordView(r.Context(), img.ID)
	if err != nil {
		slog.Error("Failed to record view", "image_id", img.ID, "error", err)
	}
	likes, err := h.images.CountLikes(r.Context(), img.ID)
	if err != nil {
		slog.Error("Failed to count likes", "image_id", img.ID, "error", err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"image":       img,
		"total_views": totalViews,
		"likes":       likes,
	})
}

// LikeImage 点赞或取消点赞，action 非 "like" 一律按取消处理。
// 结果只有 ok / error 两种状态。
func (h *Handler) LikeImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.Action == "" {
		respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	img, err := h.images.GetByID(r.Context(), req.ID)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	userID := r.Context().Value("user_id").(string)
	if req.Action == "like" {
		if err := h.images.AddLike(r.Context(), img.ID, userID); err != nil {
			slog.Error("Failed to add like", "image_id", img.ID, "error", err)
			respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
			return
		}
		// 行为日志和点赞是两次独立写入，不回滚
		if err := h.actions.Create(r.Context(), userID, model.VerbLiked, img.ID); err != nil {
			slog.Error("Failed to record action", "image_id", img.ID, "error", err)
		}
	} else {
		if err := h.images.RemoveLike(r.Context(), img.ID, userID); err != nil {
			slog.Error("Failed to remove like", "image_id", img.ID, "error", err)
			respondJSON(w, http.StatusOK, map[string]string{"status": "error"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListImages 分页列表加 Top10 公开图片。
// Top10 先按排行榜取 ID，再查库过滤私有图片，最后按榜单顺序重排。
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	total, err := h.images.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	fragment := r.URL.Query().Get("images_only") != ""
	pager := pagination.New(total, pageSize)
	page, err := pager.Resolve(r.URL.Query().Get("page"), fragment)
	if errors.Is(err, pagination.ErrEmptyPage) {
		respondJSON(w, http.StatusOK, map[string]any{"images": []model.Image{}})
		return
	}

	offset, limit := pager.Bounds(page)
	images, err := h.images.List(r.Context(), offset, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"images":      images,
		"page":        page,
		"num_pages":   pager.NumPages(),
		"most_viewed": h.mostViewed(r.Context()),
	})
}

func (h *Handler) mostViewed(ctx context.Context) []model.Image {
	ids, err := h.views.TopViewed(ctx, topViewedCount)
	if err != nil {
		slog.Error("Failed to read ranking", "error", err)
		return []model.Image{}
	}
	images, err := h.images.PublicByIDs(ctx, ids)
	if err != nil {
		slog.Error("Failed to load most viewed", "error", err)
		return []model.Image{}
	}
	return redis.SortByRanking(ids, images)
}

// UserImages 用户自己的图片列表，别人访问一律返回 404 而不是 403
func (h *Handler) UserImages(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "user_id")
	userID := r.Context().Value("user_id").(string)
	if ownerID != userID {
		respondError(w, http.StatusNotFound, "Page not found")
		return
	}

	total, err := h.images.CountByUser(r.Context(), ownerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	fragment := r.URL.Query().Get("images_only") != ""
	pager := pagination.New(total, pageSize)
	page, err := pager.Resolve(r.URL.Query().Get("page"), fragment)
	if errors.Is(err, pagination.ErrEmptyPage) {
		respondJSON(w, http.StatusOK, map[string]any{"images": []model.Image{}})
		return
	}

	offset, limit := pager.Bounds(page)
	images, err := h.images.ListByUser(r.Context(), ownerID, offset, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"images":    images,
		"page":      page,
		"num_pages": pager.NumPages(),
	})
}

// DeleteImage 事务里删除记录和关联的行为日志，失败向调用方返回错误。
// 文件删除在事务提交后尽力而为，Redis 残留计数交给后台清理。
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, err := h.images.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}

	if err := h.images.DeleteWithActions(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Image not found")
			return
		}
		slog.Error("Failed to delete image", "image_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}

	if err := h.files.DeleteFile(img.Filename); err != nil {
		slog.Error("Failed to delete file", "filename", img.Filename, "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted"})
}

func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, err := h.images.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Filename))
	http.ServeFile(w, r, h.files.GetFilePath(img.Filename))
}

// fetchErrorMessage 下载失败映射为表单错误文案
func fetchErrorMessage(err error) string {
	switch {
	case errors.Is(err, fetch.ErrBadStatus):
		return "The remote server did not return the image."
	case errors.Is(err, fetch.ErrTooLarge):
		return "The image is too large."
	case errors.Is(err, fetch.ErrNotImage):
		return "The URL does not point to a supported image."
	default:
		return "Could not download the image from the given URL."
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	slog.Error("Request failed", "status", status, "message", message)
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

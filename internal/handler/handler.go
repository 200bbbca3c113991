// Package handler содержит HTTP-обработчики API сервиса clipstream.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/clipstream-system/internal/currency"
	"github.com/mmeshcher/clipstream-system/internal/ledger"
	"github.com/mmeshcher/clipstream-system/internal/middleware"
	"github.com/mmeshcher/clipstream-system/internal/model"
	"github.com/mmeshcher/clipstream-system/internal/repository"
	"github.com/mmeshcher/clipstream-system/internal/service"
	"github.com/mmeshcher/clipstream-system/internal/settings"
	"github.com/mmeshcher/clipstream-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, password string) (int64, error)
	AuthenticateUser(ctx context.Context, username, password string) (int64, error)
	GetProfile(ctx context.Context, username string) (*model.Profile, error)
	GetRewardStatus(ctx context.Context, userID int64) (*service.RewardStatus, error)
	ClaimDailyReward(ctx context.Context, userID int64) (int64, error)
	GetTasksOverview(ctx context.Context, userID int64) (*service.TasksOverview, error)
	CompleteTask(ctx context.Context, userID, taskID int64) (*model.Task, error)
	StartAdView(ctx context.Context, userID, taskID int64) (string, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.WalletTransaction, error)
	CreatePayout(ctx context.Context, userID int64, card string, amount int64) error
	PurchaseCoinPack(ctx context.Context, userID, packID int64) (*settings.CoinPack, error)
	UploadVideo(ctx context.Context, video model.Video) (int64, error)
	AddComment(ctx context.Context, comment model.Comment) (int64, error)
	GetCommentsByVideo(ctx context.Context, videoID int64) ([]model.Comment, error)
	ListLiveStreams(ctx context.Context) ([]model.LiveStream, error)
	CreateLiveStream(ctx context.Context, userID int64, title string) (*model.LiveStream, error)
	GetMessagesByUser(ctx context.Context, userID int64) ([]model.Message, error)
	GetSettingJSON(ctx context.Context, key string) ([]byte, error)
	PutSettingJSON(ctx context.Context, key string, raw []byte) error
}

// Handler реализует HTTP-обработчики API сервиса clipstream.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// GetProfile возвращает открытый профиль пользователя по имени.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.service.GetProfile(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get profile error", zap.Error(err), zap.String("username", username))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetRewardStatus возвращает доступность ежедневной награды для текущего пользователя.
func (h *Handler) GetRewardStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	status, err := h.service.GetRewardStatus(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrEmptyRewardTiers) {
			h.logger.Error("reward tiers are empty", zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.logger.Error("get reward status error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type claimResponse struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// ClaimDailyReward применяет заявку текущего пользователя на ежедневную награду.
func (h *Handler) ClaimDailyReward(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	amount, err := h.service.ClaimDailyReward(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardDisabled):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrRewardAlreadyClaimed):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, ledger.ErrEmptyRewardTiers):
			h.logger.Error("reward tiers are empty", zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		default:
			h.logger.Error("claim reward error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{
		Amount:  amount,
		Message: "You received " + strconv.FormatInt(amount, 10) + " coins!",
	})
}

type taskResponse struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	RewardType   string     `json:"reward_type"`
	RewardAmount int64      `json:"reward_amount"`
	Frequency    string     `json:"frequency"`
	AdID         string     `json:"ad_id,omitempty"`
	AdDuration   int        `json:"ad_duration,omitempty"`
	AdsToWatch   int        `json:"ads_to_watch,omitempty"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type tasksOverviewResponse struct {
	Enabled            bool           `json:"enabled"`
	Title              string         `json:"title"`
	Subtitle           string         `json:"subtitle"`
	Tasks              []taskResponse `json:"tasks"`
	HasIncompleteDaily bool           `json:"has_incomplete_daily"`
}

// GetTasks возвращает активные задания текущего пользователя с состоянием выполнения.
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	overview, err := h.service.GetTasksOverview(r.Context(), userID)
	if err != nil {
		h.logger.Error("get tasks error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := tasksOverviewResponse{
		Enabled:            overview.Enabled,
		Title:              overview.Title,
		Subtitle:           overview.Subtitle,
		Tasks:              make([]taskResponse, 0, len(overview.Tasks)),
		HasIncompleteDaily: overview.HasIncompleteDaily,
	}
	for _, ts := range overview.Tasks {
		resp.Tasks = append(resp.Tasks, taskResponse{
			ID:           ts.Task.ID,
			Title:        ts.Task.Title,
			Description:  ts.Task.Description,
			RewardType:   string(ts.Task.RewardType),
			RewardAmount: ts.Task.RewardAmount,
			Frequency:    string(ts.Task.Frequency),
			AdID:         ts.Task.AdID,
			AdDuration:   ts.Task.AdDuration,
			AdsToWatch:   ts.Task.AdsToWatch,
			Completed:    ts.Completed,
			CompletedAt:  ts.CompletedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func taskIDFromURL(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type completeTaskResponse struct {
	TaskID       int64  `json:"task_id"`
	RewardType   string `json:"reward_type"`
	RewardAmount int64  `json:"reward_amount"`
	Message      string `json:"message"`
}

// CompleteTask применяет выполнение задания текущим пользователем.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	taskID, ok := taskIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	task, err := h.service.CompleteTask(r.Context(), userID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrTasksDisabled), errors.Is(err, service.ErrTaskInactive):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrTaskAlreadyCompleted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("complete task error", zap.Error(err), zap.Int64("userID", userID), zap.Int64("taskID", taskID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, completeTaskResponse{
		TaskID:       task.ID,
		RewardType:   string(task.RewardType),
		RewardAmount: task.RewardAmount,
		Message:      "Reward for: " + task.Title,
	})
}

// StartAdView регистрирует просмотр рекламы по заданию для последующего
// подтверждения провайдером.
func (h *Handler) StartAdView(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	taskID, ok := taskIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	viewID, err := h.service.StartAdView(r.Context(), userID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrTasksDisabled), errors.Is(err, service.ErrTaskInactive):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("start ad view error", zap.Error(err), zap.Int64("userID", userID), zap.Int64("taskID", taskID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"view_id": viewID})
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.logger.Error("get balance error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

type transactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// GetTransactions возвращает журнал кошелька текущего пользователя,
// новые записи первыми.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.GetTransactionsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get transactions error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, txn := range transactions {
		resp = append(resp, transactionResponse{
			ID:          txn.ID,
			Type:        string(txn.Type),
			Amount:      txn.Amount,
			Description: txn.Description,
			CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type payoutRequest struct {
	Card   string `json:"card"`
	Amount int64  `json:"amount"`
}

// Payout создаёт выплату монет на карту текущего пользователя.
func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCardNumber(req.Card) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	if req.Amount <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.CreatePayout(r.Context(), userID, req.Card, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
		case errors.Is(err, service.ErrPayoutsDisabled):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, service.ErrPayoutBelowMinimum):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("payout error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type purchaseRequest struct {
	PackID int64 `json:"pack_id"`
}

type purchaseResponse struct {
	PackID int64  `json:"pack_id"`
	Coins  int64  `json:"coins"`
	Price  string `json:"price"`
}

// Purchase начисляет монеты купленного пакета текущему пользователю.
// Параметр ?locale= задаёт валюту отображаемой цены; без него цена в долларах.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pack, err := h.service.PurchaseCoinPack(r.Context(), userID, req.PackID)
	if err != nil {
		if errors.Is(err, service.ErrCoinPackNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("purchase error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		PackID: pack.ID,
		Coins:  pack.Coins,
		Price:  currency.Format(pack.Price, r.URL.Query().Get("locale")),
	})
}

type uploadVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// UploadVideo сохраняет метаданные загруженного ролика текущего пользователя.
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req uploadVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.UploadVideo(r.Context(), model.Video{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	})
	if err != nil {
		h.logger.Error("upload video error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func videoIDFromURL(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type commentResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// GetComments возвращает комментарии к ролику.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	comments, err := h.service.GetCommentsByVideo(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get comments error", zap.Error(err), zap.Int64("videoID", videoID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(comments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, commentResponse{
			ID:        c.ID,
			Username:  c.Username,
			Text:      c.Text,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// AddComment добавляет комментарий текущего пользователя к ролику.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	videoID, ok := videoIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.AddComment(r.Context(), model.Comment{
		VideoID: videoID,
		UserID:  userID,
		Text:    req.Text,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add comment error", zap.Error(err), zap.Int64("videoID", videoID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type livestreamResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	StartedAt string `json:"started_at"`
}

// ListLiveStreams возвращает активные трансляции.
func (h *Handler) ListLiveStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := h.service.ListLiveStreams(r.Context())
	if err != nil {
		h.logger.Error("list livestreams error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]livestreamResponse, 0, len(streams))
	for _, s := range streams {
		resp = append(resp, livestreamResponse{
			ID:        s.ID,
			Title:     s.Title,
			StartedAt: s.StartedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type createLiveStreamRequest struct {
	Title string `json:"title"`
}

type createLiveStreamResponse struct {
	ID        int64  `json:"id"`
	StreamKey string `json:"stream_key"`
}

// CreateLiveStream создаёт трансляцию текущего пользователя.
func (h *Handler) CreateLiveStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createLiveStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	stream, err := h.service.CreateLiveStream(r.Context(), userID, req.Title)
	if err != nil {
		h.logger.Error("create livestream error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createLiveStreamResponse{
		ID:        stream.ID,
		StreamKey: stream.StreamKey,
	})
}

type messageResponse struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// GetMessages возвращает входящие сообщения текущего пользователя.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	messages, err := h.service.GetMessagesByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get messages error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(messages) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, messageResponse{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Text,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSetting возвращает действующий документ настроек по ключу.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	raw, err := h.service.GetSettingJSON(r.Context(), key)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get setting error", zap.Error(err), zap.String("key", key))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// PutSetting сохраняет документ настроек по ключу.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	defer r.Body.Close()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.PutSettingJSON(r.Context(), key, raw); err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("put setting error", zap.Error(err), zap.String("key", key))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Package service реализует бизнес-логику сервиса clipstream.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/clipstream-system/internal/adwatch"
	"github.com/mmeshcher/clipstream-system/internal/ledger"
	"github.com/mmeshcher/clipstream-system/internal/model"
	"github.com/mmeshcher/clipstream-system/internal/repository"
	"github.com/mmeshcher/clipstream-system/internal/settings"
)

// ErrInvalidCredentials возвращается при неверном имени пользователя или пароле.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRewardDisabled возвращается, если ежедневные награды выключены администратором.
	ErrRewardDisabled = errors.New("daily rewards are disabled")
	// ErrTasksDisabled возвращается, если раздел заданий выключен администратором.
	ErrTasksDisabled = errors.New("tasks are disabled")
	// ErrTaskInactive возвращается при попытке выполнить неактивное задание.
	ErrTaskInactive = errors.New("task is inactive")
	// ErrPayoutsDisabled возвращается, если монетизация выключена администратором.
	ErrPayoutsDisabled = errors.New("payouts are disabled")
	// ErrPayoutBelowMinimum возвращается, если сумма выплаты меньше настроенного минимума.
	ErrPayoutBelowMinimum = errors.New("payout below configured minimum")
	// ErrCoinPackNotFound возвращается, если пакет монет не найден.
	ErrCoinPackNotFound = errors.New("coin pack not found")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, username string, passwordHash []byte) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ClaimDailyReward(ctx context.Context, userID int64, txID string, amount int64, claimDate, description string) error
	CompleteTask(ctx context.Context, userID int64, task model.Task, txID string, now time.Time, loc *time.Location, systemMessage string) error
	CreditWallet(ctx context.Context, userID int64, txID string, txType model.TransactionType, amount int64, description string) error
	CreatePayout(ctx context.Context, userID int64, txID string, amount int64, description string) error
	GetBalance(ctx context.Context, userID int64) (int64, int64, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.WalletTransaction, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	GetTaskCompletions(ctx context.Context, userID int64) (map[int64]time.Time, error)
	CreateAdView(ctx context.Context, view model.AdView) error
	GetPendingAdViews(ctx context.Context, limit int) ([]model.AdView, error)
	UpdateAdView(ctx context.Context, id string, status model.AdViewStatus, viewsConfirmed int) error
	CreateVideo(ctx context.Context, video model.Video) (int64, error)
	GetVideoByID(ctx context.Context, id int64) (*model.Video, error)
	CreateComment(ctx context.Context, comment model.Comment) (int64, error)
	GetCommentsByVideo(ctx context.Context, videoID int64) ([]model.Comment, error)
	ListLiveStreams(ctx context.Context) ([]model.LiveStream, error)
	CreateLiveStream(ctx context.Context, stream model.LiveStream) (int64, error)
	GetMessagesByUser(ctx context.Context, userID int64) ([]model.Message, error)
}

// Service содержит бизнес-логику сервиса clipstream.
type Service struct {
	repo     Repository
	settings *settings.Manager
	adClient *adwatch.Client
	loc      *time.Location
	now      func() time.Time
}

// NewService создаёт новый сервис. Часовой пояс задаёт календарный день
// для серий чекинов и ежедневных заданий.
func NewService(repo Repository, settingsMgr *settings.Manager, adClient *adwatch.Client, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:     repo,
		settings: settingsMgr,
		adClient: adClient,
		loc:      loc,
		now:      time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (int64, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, username, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет имя и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (int64, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

// GetProfile возвращает открытый профиль пользователя по имени.
func (s *Service) GetProfile(ctx context.Context, username string) (*model.Profile, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &model.Profile{
		Username:    u.Username,
		StreakCount: u.StreakCount,
		XP:          u.XP,
		CreatedAt:   u.CreatedAt,
	}, nil
}

func claimDateString(lastClaim *time.Time) string {
	if lastClaim == nil {
		return ""
	}
	// Колонка date сканируется как полночь UTC.
	return lastClaim.UTC().Format("2006-01-02")
}

// RewardStatus описывает доступность ежедневной награды для пользователя.
type RewardStatus struct {
	Eligible      bool   `json:"eligible"`
	NextAmount    int64  `json:"next_amount"`
	StreakCount   int    `json:"streak_count"`
	ModalTitle    string `json:"modal_title"`
	ModalSubtitle string `json:"modal_subtitle"`
}

// GetRewardStatus возвращает, доступна ли пользователю ежедневная награда
// и сколько монет принесёт следующая заявка.
func (s *Service) GetRewardStatus(ctx context.Context, userID int64) (*RewardStatus, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg := s.settings.DailyReward(ctx)
	today := ledger.LocalDate(s.now(), s.loc)

	status := &RewardStatus{
		Eligible:      ledger.RewardEligible(cfg, claimDateString(u.LastRewardClaim), today),
		StreakCount:   u.StreakCount,
		ModalTitle:    cfg.ModalTitle,
		ModalSubtitle: cfg.ModalSubtitle,
	}

	if status.Eligible {
		amount, err := ledger.TierAmount(cfg.Rewards, u.StreakCount)
		if err != nil {
			return nil, err
		}
		status.NextAmount = amount
	}

	return status, nil
}

// ClaimDailyReward применяет заявку на ежедневную награду и возвращает
// начисленную сумму.
func (s *Service) ClaimDailyReward(ctx context.Context, userID int64) (int64, error) {
	cfg := s.settings.DailyReward(ctx)
	if !cfg.IsEnabled {
		return 0, ErrRewardDisabled
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	amount, err := ledger.TierAmount(cfg.Rewards, u.StreakCount)
	if err != nil {
		return 0, err
	}

	today := ledger.LocalDate(s.now(), s.loc)
	err = s.repo.ClaimDailyReward(ctx, userID, uuid.NewString(), amount, today, "Daily Check-in Reward")
	if err != nil {
		return 0, err
	}

	return amount, nil
}

// TaskStatus описывает задание вместе с состоянием его выполнения.
type TaskStatus struct {
	Task        model.Task
	Completed   bool
	CompletedAt *time.Time
}

// TasksOverview содержит доступные задания пользователя и флаг наличия
// невыполненных ежедневных заданий для индикации в интерфейсе.
type TasksOverview struct {
	Enabled            bool
	Title              string
	Subtitle           string
	Tasks              []TaskStatus
	HasIncompleteDaily bool
}

// GetTasksOverview возвращает активные задания с состоянием выполнения.
func (s *Service) GetTasksOverview(ctx context.Context, userID int64) (*TasksOverview, error) {
	cfg := s.settings.Tasks(ctx)

	overview := &TasksOverview{
		Enabled:  cfg.IsEnabled,
		Title:    cfg.Title,
		Subtitle: cfg.Subtitle,
	}
	if !cfg.IsEnabled {
		return overview, nil
	}

	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	completions, err := s.repo.GetTaskCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, task := range tasks {
		if !task.IsActive {
			continue
		}

		var completedAt *time.Time
		if t, ok := completions[task.ID]; ok {
			t := t
			completedAt = &t
		}

		overview.Tasks = append(overview.Tasks, TaskStatus{
			Task:        task,
			Completed:   ledger.IsTaskCompleted(task, completedAt, now, s.loc),
			CompletedAt: completedAt,
		})
	}

	overview.HasIncompleteDaily = ledger.HasIncompleteDailyTasks(cfg, tasks, completions, now, s.loc)

	return overview, nil
}

// CompleteTask применяет выполнение задания и возвращает его.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	cfg := s.settings.Tasks(ctx)
	if !cfg.IsEnabled {
		return nil, ErrTasksDisabled
	}

	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}

	unit := "coins"
	if task.RewardType == model.RewardXP {
		unit = "XP"
	}
	msg := fmt.Sprintf("You completed %q and earned %d %s!", task.Title, task.RewardAmount, unit)

	err = s.repo.CompleteTask(ctx, userID, *task, uuid.NewString(), s.now(), s.loc, msg)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// StartAdView регистрирует просмотр рекламы по заданию и возвращает его
// идентификатор для провайдера.
func (s *Service) StartAdView(ctx context.Context, userID, taskID int64) (string, error) {
	cfg := s.settings.Tasks(ctx)
	if !cfg.IsEnabled {
		return "", ErrTasksDisabled
	}

	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	if !task.IsActive {
		return "", ErrTaskInactive
	}

	view := model.AdView{
		ID:     uuid.NewString(),
		UserID: userID,
		TaskID: taskID,
	}
	if err := s.repo.CreateAdView(ctx, view); err != nil {
		return "", err
	}

	return view.ID, nil
}

// GetBalance возвращает баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	balance, withdrawn, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{
		Balance:   balance,
		Withdrawn: withdrawn,
	}, nil
}

// GetTransactionsByUser возвращает журнал кошелька пользователя.
func (s *Service) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.WalletTransaction, error) {
	return s.repo.GetTransactionsByUser(ctx, userID)
}

// CreatePayout создаёт выплату на карту.
func (s *Service) CreatePayout(ctx context.Context, userID int64, card string, amount int64) error {
	cfg := s.settings.Monetization(ctx)
	if !cfg.IsEnabled {
		return ErrPayoutsDisabled
	}
	if amount < cfg.MinPayoutCoins {
		return ErrPayoutBelowMinimum
	}

	last4 := card
	if len(card) > 4 {
		last4 = card[len(card)-4:]
	}
	description := "Payout to card ending " + last4

	return s.repo.CreatePayout(ctx, userID, uuid.NewString(), amount, description)
}

// PurchaseCoinPack начисляет монеты купленного пакета.
// Сам платёж обрабатывает внешний платёжный провайдер.
func (s *Service) PurchaseCoinPack(ctx context.Context, userID, packID int64) (*settings.CoinPack, error) {
	packs := s.settings.CoinPacks(ctx)

	var pack *settings.CoinPack
	for i := range packs {
		if packs[i].ID == packID {
			pack = &packs[i]
			break
		}
	}
	if pack == nil {
		return nil, ErrCoinPackNotFound
	}

	description := fmt.Sprintf("Purchased %s pack (%d coins)", pack.Label, pack.Coins)
	err := s.repo.CreditWallet(ctx, userID, uuid.NewString(), model.TransactionPurchase, pack.Coins, description)
	if err != nil {
		return nil, err
	}

	return pack, nil
}

// UploadVideo сохраняет метаданные загруженного ролика.
func (s *Service) UploadVideo(ctx context.Context, video model.Video) (int64, error) {
	return s.repo.CreateVideo(ctx, video)
}

// AddComment добавляет комментарий к существующему ролику.
func (s *Service) AddComment(ctx context.Context, comment model.Comment) (int64, error) {
	if _, err := s.repo.GetVideoByID(ctx, comment.VideoID); err != nil {
		return 0, err
	}
	return s.repo.CreateComment(ctx, comment)
}

// GetCommentsByVideo возвращает комментарии к существующему ролику.
func (s *Service) GetCommentsByVideo(ctx context.Context, videoID int64) ([]model.Comment, error) {
	if _, err := s.repo.GetVideoByID(ctx, videoID); err != nil {
		return nil, err
	}
	return s.repo.GetCommentsByVideo(ctx, videoID)
}

// ListLiveStreams возвращает активные трансляции.
func (s *Service) ListLiveStreams(ctx context.Context) ([]model.LiveStream, error) {
	return s.repo.ListLiveStreams(ctx)
}

// CreateLiveStream создаёт трансляцию и возвращает её со сгенерированным ключом.
func (s *Service) CreateLiveStream(ctx context.Context, userID int64, title string) (*model.LiveStream, error) {
	stream := model.LiveStream{
		UserID:    userID,
		Title:     title,
		StreamKey: uuid.NewString(),
		IsLive:    true,
	}

	id, err := s.repo.CreateLiveStream(ctx, stream)
	if err != nil {
		return nil, err
	}
	stream.ID = id

	return &stream, nil
}

// GetMessagesByUser возвращает входящие сообщения пользователя.
func (s *Service) GetMessagesByUser(ctx context.Context, userID int64) ([]model.Message, error) {
	return s.repo.GetMessagesByUser(ctx, userID)
}

// GetSettingJSON возвращает действующий документ настроек по ключу.
func (s *Service) GetSettingJSON(ctx context.Context, key string) ([]byte, error) {
	return s.settings.MergedJSON(ctx, key)
}

// PutSettingJSON сохраняет документ настроек по ключу.
func (s *Service) PutSettingJSON(ctx context.Context, key string, raw []byte) error {
	return s.settings.PutJSON(ctx, key, raw)
}

// StartAdViewUpdates запускает фоновый процесс подтверждения просмотров
// рекламы через провайдера.
func (s *Service) StartAdViewUpdates(ctx context.Context) {
	if s.adClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processAdViewBatch(ctx)
			}
		}
	}()
}

func (s *Service) processAdViewBatch(ctx context.Context) {
	views, err := s.repo.GetPendingAdViews(ctx, 100)
	if err != nil {
		return
	}

	for _, view := range views {
		resp, statusCode, retryAfter, err := s.adClient.GetViewStatus(ctx, view.ID)
		if err != nil {
			continue
		}

		if statusCode == 0 {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		switch resp.Status {
		case "REGISTERED", "PROCESSING":
			_ = s.repo.UpdateAdView(ctx, view.ID, model.AdViewStatusProcessing, resp.Views)
		case "INVALID":
			_ = s.repo.UpdateAdView(ctx, view.ID, model.AdViewStatusInvalid, resp.Views)
		case "VIEWED":
			s.finalizeAdView(ctx, view, resp.Views)
		}
	}
}

// finalizeAdView закрывает просмотр: если набрано нужное число показов,
// выполняет задание от имени пользователя.
func (s *Service) finalizeAdView(ctx context.Context, view model.AdView, views int) {
	task, err := s.repo.GetTaskByID(ctx, view.TaskID)
	if err != nil {
		_ = s.repo.UpdateAdView(ctx, view.ID, model.AdViewStatusInvalid, views)
		return
	}

	if views < task.AdsToWatch {
		_ = s.repo.UpdateAdView(ctx, view.ID, model.AdViewStatusProcessing, views)
		return
	}

	_, err = s.CompleteTask(ctx, view.UserID, view.TaskID)
	if err != nil && !errors.Is(err, repository.ErrTaskAlreadyCompleted) {
		return
	}

	_ = s.repo.UpdateAdView(ctx, view.ID, model.AdViewStatusViewed, views)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clipstream-system/internal/adwatch"
	"github.com/mmeshcher/clipstream-system/internal/ledger"
	"github.com/mmeshcher/clipstream-system/internal/model"
	"github.com/mmeshcher/clipstream-system/internal/repository"
	"github.com/mmeshcher/clipstream-system/internal/settings"
)

var testZone = time.FixedZone("UTC+5", 5*60*60)

type memSettings struct {
	data map[string][]byte
}

func (s *memSettings) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, settings.ErrNotFound
	}
	return v, nil
}

func (s *memSettings) Set(ctx context.Context, key string, value []byte) error {
	s.data[key] = value
	return nil
}

// stubRepo воспроизводит в памяти транзакционную семантику репозитория:
// этого достаточно, чтобы проверять сценарии сервиса без БД.
type stubRepo struct {
	user         *model.User
	tasks        map[int64]model.Task
	completions  map[int64]time.Time
	transactions []model.WalletTransaction
	messages     []string
	adViews      []model.AdView
	pendingViews []model.AdView
	viewStatuses map[string]model.AdViewStatus
	viewCounts   map[string]int
	loc          *time.Location
}

func newStubRepo(loc *time.Location) *stubRepo {
	return &stubRepo{
		user:         &model.User{ID: 1, Username: "user"},
		tasks:        map[int64]model.Task{},
		completions:  map[int64]time.Time{},
		viewStatuses: map[string]model.AdViewStatus{},
		viewCounts:   map[string]int{},
		loc:          loc,
	}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, username string, passwordHash []byte) (int64, error) {
	s.user.Username = username
	s.user.PasswordHash = passwordHash
	return s.user.ID, nil
}

func (s *stubRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, repository.ErrUserNotFound
	}
	u := *s.user
	return &u, nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, repository.ErrUserNotFound
	}
	u := *s.user
	return &u, nil
}

func (s *stubRepo) ClaimDailyReward(ctx context.Context, userID int64, txID string, amount int64, claimDate, description string) error {
	if s.user.LastRewardClaim != nil && s.user.LastRewardClaim.UTC().Format("2006-01-02") == claimDate {
		return repository.ErrRewardAlreadyClaimed
	}

	date, err := time.ParseInLocation("2006-01-02", claimDate, time.UTC)
	if err != nil {
		return err
	}

	s.transactions = append([]model.WalletTransaction{{
		ID:          txID,
		Type:        model.TransactionReward,
		Amount:      amount,
		Description: description,
	}}, s.transactions...)
	s.user.Balance += amount
	s.user.StreakCount++
	s.user.LastRewardClaim = &date
	return nil
}

func (s *stubRepo) CompleteTask(ctx context.Context, userID int64, task model.Task, txID string, now time.Time, loc *time.Location, systemMessage string) error {
	var completedAt *time.Time
	if t, ok := s.completions[task.ID]; ok {
		completedAt = &t
	}
	if ledger.IsTaskCompleted(task, completedAt, now, loc) {
		return repository.ErrTaskAlreadyCompleted
	}

	switch task.RewardType {
	case model.RewardCoins:
		s.transactions = append([]model.WalletTransaction{{
			ID:          txID,
			Type:        model.TransactionTask,
			Amount:      task.RewardAmount,
			Description: "Reward for: " + task.Title,
		}}, s.transactions...)
		s.user.Balance += task.RewardAmount
	case model.RewardXP:
		s.user.XP += task.RewardAmount
	}

	s.completions[task.ID] = now
	s.messages = append(s.messages, systemMessage)
	return nil
}

func (s *stubRepo) CreditWallet(ctx context.Context, userID int64, txID string, txType model.TransactionType, amount int64, description string) error {
	s.transactions = append([]model.WalletTransaction{{
		ID:          txID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	}}, s.transactions...)
	s.user.Balance += amount
	return nil
}

func (s *stubRepo) CreatePayout(ctx context.Context, userID int64, txID string, amount int64, description string) error {
	if amount > s.user.Balance {
		return repository.ErrInsufficientBalance
	}
	s.transactions = append([]model.WalletTransaction{{
		ID:          txID,
		Type:        model.TransactionPayout,
		Amount:      -amount,
		Description: description,
	}}, s.transactions...)
	s.user.Balance -= amount
	return nil
}

func (s *stubRepo) GetBalance(ctx context.Context, userID int64) (int64, int64, error) {
	var withdrawn int64
	for _, txn := range s.transactions {
		if txn.Type == model.TransactionPayout {
			withdrawn -= txn.Amount
		}
	}
	return s.user.Balance, withdrawn, nil
}

func (s *stubRepo) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.WalletTransaction, error) {
	return s.transactions, nil
}

func (s *stubRepo) ListTasks(ctx context.Context) ([]model.Task, error) {
	var res []model.Task
	for _, t := range s.tasks {
		res = append(res, t)
	}
	return res, nil
}

func (s *stubRepo) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return &t, nil
}

func (s *stubRepo) GetTaskCompletions(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	res := make(map[int64]time.Time, len(s.completions))
	for k, v := range s.completions {
		res[k] = v
	}
	return res, nil
}

func (s *stubRepo) CreateAdView(ctx context.Context, view model.AdView) error {
	s.adViews = append(s.adViews, view)
	return nil
}

func (s *stubRepo) GetPendingAdViews(ctx context.Context, limit int) ([]model.AdView, error) {
	if len(s.pendingViews) > limit {
		return s.pendingViews[:limit], nil
	}
	return s.pendingViews, nil
}

func (s *stubRepo) UpdateAdView(ctx context.Context, id string, status model.AdViewStatus, viewsConfirmed int) error {
	s.viewStatuses[id] = status
	s.viewCounts[id] = viewsConfirmed
	return nil
}

func (s *stubRepo) CreateVideo(ctx context.Context, video model.Video) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetVideoByID(ctx context.Context, id int64) (*model.Video, error) {
	return nil, repository.ErrVideoNotFound
}

func (s *stubRepo) CreateComment(ctx context.Context, comment model.Comment) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetCommentsByVideo(ctx context.Context, videoID int64) ([]model.Comment, error) {
	return nil, nil
}

func (s *stubRepo) ListLiveStreams(ctx context.Context) ([]model.LiveStream, error) {
	return nil, nil
}

func (s *stubRepo) CreateLiveStream(ctx context.Context, stream model.LiveStream) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetMessagesByUser(ctx context.Context, userID int64) ([]model.Message, error) {
	return nil, nil
}

func newTestService(repo *stubRepo, stored map[string][]byte) *Service {
	if stored == nil {
		stored = map[string][]byte{}
	}
	mgr := settings.NewManager(&memSettings{data: stored}, zap.NewNop())
	return NewService(repo, mgr, nil, testZone)
}

// at возвращает момент времени в тестовом поясе.
func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, testZone)
}

func TestClaimDailyReward_StreakProgression(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, map[string][]byte{
		settings.KeyDailyReward: []byte(`{"isEnabled":true,"rewards":[{"amount":50},{"amount":75},{"amount":100}]}`),
	})

	// Четыре заявки в четыре последовательных дня; на четвёртый день
	// уровень ограничивается последним настроенным.
	wantBalance := []int64{50, 125, 225, 325}
	for i := 0; i < 4; i++ {
		day := 10 + i
		svc.now = func() time.Time { return at(day, 12) }

		amount, err := svc.ClaimDailyReward(context.Background(), 1)
		if err != nil {
			t.Fatalf("claim day %d: %v", day, err)
		}

		wantAmount := wantBalance[i]
		if i > 0 {
			wantAmount = wantBalance[i] - wantBalance[i-1]
		}
		if amount != wantAmount {
			t.Fatalf("day %d amount = %d, want %d", day, amount, wantAmount)
		}
		if repo.user.Balance != wantBalance[i] {
			t.Fatalf("day %d balance = %d, want %d", day, repo.user.Balance, wantBalance[i])
		}
		if repo.user.StreakCount != i+1 {
			t.Fatalf("day %d streak = %d, want %d", day, repo.user.StreakCount, i+1)
		}
	}

	if len(repo.transactions) != 4 {
		t.Fatalf("transactions = %d, want 4", len(repo.transactions))
	}
	if repo.transactions[0].Description != "Daily Check-in Reward" {
		t.Fatalf("unexpected description: %q", repo.transactions[0].Description)
	}
}

func TestClaimDailyReward_SameDayRejected(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return at(10, 9) }

	if _, err := svc.ClaimDailyReward(context.Background(), 1); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// После заявки статус дважды сообщает о недоступности.
	for i := 0; i < 2; i++ {
		status, err := svc.GetRewardStatus(context.Background(), 1)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Eligible {
			t.Fatalf("check %d: eligible = true after claim", i)
		}
	}

	_, err := svc.ClaimDailyReward(context.Background(), 1)
	if !errors.Is(err, repository.ErrRewardAlreadyClaimed) {
		t.Fatalf("second claim err = %v, want ErrRewardAlreadyClaimed", err)
	}
	if repo.user.StreakCount != 1 {
		t.Fatalf("streak = %d, want 1", repo.user.StreakCount)
	}
}

func TestClaimDailyReward_Disabled(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, map[string][]byte{
		settings.KeyDailyReward: []byte(`{"isEnabled":false}`),
	})

	_, err := svc.ClaimDailyReward(context.Background(), 1)
	if !errors.Is(err, ErrRewardDisabled) {
		t.Fatalf("err = %v, want ErrRewardDisabled", err)
	}
}

func TestClaimDailyReward_EmptyTiers(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, map[string][]byte{
		settings.KeyDailyReward: []byte(`{"isEnabled":true,"rewards":[]}`),
	})

	_, err := svc.ClaimDailyReward(context.Background(), 1)
	if !errors.Is(err, ledger.ErrEmptyRewardTiers) {
		t.Fatalf("err = %v, want ErrEmptyRewardTiers", err)
	}
	if repo.user.Balance != 0 {
		t.Fatalf("balance = %d, want 0", repo.user.Balance)
	}
}

func TestCompleteTask_OnceNotDoubleCredited(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.tasks[1] = model.Task{
		ID: 1, Title: "Follow us", RewardType: model.RewardCoins,
		RewardAmount: 100, Frequency: model.FrequencyOnce, IsActive: true,
	}
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return at(10, 12) }

	if _, err := svc.CompleteTask(context.Background(), 1, 1); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if repo.user.Balance != 100 {
		t.Fatalf("balance = %d, want 100", repo.user.Balance)
	}
	if len(repo.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(repo.messages))
	}

	// Повторное выполнение даже на следующий день не проходит.
	svc.now = func() time.Time { return at(11, 12) }
	_, err := svc.CompleteTask(context.Background(), 1, 1)
	if !errors.Is(err, repository.ErrTaskAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrTaskAlreadyCompleted", err)
	}
	if repo.user.Balance != 100 {
		t.Fatalf("balance after retry = %d, want 100", repo.user.Balance)
	}
}

func TestCompleteTask_DailyResetsNextLocalDay(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.tasks[1] = model.Task{
		ID: 1, Title: "Watch ads", RewardType: model.RewardCoins,
		RewardAmount: 100, Frequency: model.FrequencyDaily, IsActive: true,
	}
	svc := newTestService(repo, nil)

	t0 := at(10, 1)
	svc.now = func() time.Time { return t0 }
	if _, err := svc.CompleteTask(context.Background(), 1, 1); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	// Спустя 23 часа — тот же локальный день, задание закрыто.
	svc.now = func() time.Time { return t0.Add(23 * time.Hour) }
	if _, err := svc.CompleteTask(context.Background(), 1, 1); !errors.Is(err, repository.ErrTaskAlreadyCompleted) {
		t.Fatalf("same day err = %v, want ErrTaskAlreadyCompleted", err)
	}

	// Спустя 25 часов — следующий локальный день, задание снова доступно.
	svc.now = func() time.Time { return t0.Add(25 * time.Hour) }
	if _, err := svc.CompleteTask(context.Background(), 1, 1); err != nil {
		t.Fatalf("next day completion: %v", err)
	}
	if repo.user.Balance != 200 {
		t.Fatalf("balance = %d, want 200", repo.user.Balance)
	}
}

func TestCompleteTask_XPSkipsWallet(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.tasks[1] = model.Task{
		ID: 1, Title: "Daily login", RewardType: model.RewardXP,
		RewardAmount: 25, Frequency: model.FrequencyDaily, IsActive: true,
	}
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return at(10, 12) }

	if _, err := svc.CompleteTask(context.Background(), 1, 1); err != nil {
		t.Fatalf("completion: %v", err)
	}

	if repo.user.XP != 25 {
		t.Fatalf("xp = %d, want 25", repo.user.XP)
	}
	if repo.user.Balance != 0 {
		t.Fatalf("balance = %d, want 0", repo.user.Balance)
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("transactions = %d, want 0", len(repo.transactions))
	}
}

func TestCompleteTask_Inactive(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.tasks[1] = model.Task{ID: 1, IsActive: false, RewardType: model.RewardCoins}
	svc := newTestService(repo, nil)

	_, err := svc.CompleteTask(context.Background(), 1, 1)
	if !errors.Is(err, ErrTaskInactive) {
		t.Fatalf("err = %v, want ErrTaskInactive", err)
	}
}

func TestGetTasksOverview_BadgeFlag(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.tasks[1] = model.Task{
		ID: 1, Title: "Watch ads", RewardType: model.RewardCoins,
		RewardAmount: 100, Frequency: model.FrequencyDaily, IsActive: true,
	}
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return at(10, 12) }

	overview, err := svc.GetTasksOverview(context.Background(), 1)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !overview.HasIncompleteDaily {
		t.Fatalf("HasIncompleteDaily = false before completion")
	}
	if len(overview.Tasks) != 1 || overview.Tasks[0].Completed {
		t.Fatalf("unexpected tasks: %+v", overview.Tasks)
	}

	if _, err := svc.CompleteTask(context.Background(), 1, 1); err != nil {
		t.Fatalf("completion: %v", err)
	}

	overview, err = svc.GetTasksOverview(context.Background(), 1)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.HasIncompleteDaily {
		t.Fatalf("HasIncompleteDaily = true after completion")
	}
	if !overview.Tasks[0].Completed {
		t.Fatalf("task not marked completed")
	}
}

func TestCreatePayout_Gates(t *testing.T) {
	repo := newStubRepo(testZone)
	repo.user.Balance = 5000
	svc := newTestService(repo, map[string][]byte{
		settings.KeyMonetization: []byte(`{"isEnabled":true,"minPayoutCoins":1000}`),
	})

	if err := svc.CreatePayout(context.Background(), 1, "79927398713", 500); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("below minimum err = %v", err)
	}

	if err := svc.CreatePayout(context.Background(), 1, "79927398713", 10000); !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("insufficient err = %v", err)
	}

	if err := svc.CreatePayout(context.Background(), 1, "79927398713", 2000); err != nil {
		t.Fatalf("payout: %v", err)
	}
	if repo.user.Balance != 3000 {
		t.Fatalf("balance = %d, want 3000", repo.user.Balance)
	}
	if repo.transactions[0].Amount != -2000 {
		t.Fatalf("payout amount = %d, want -2000", repo.transactions[0].Amount)
	}
}

func TestCreatePayout_Disabled(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, map[string][]byte{
		settings.KeyMonetization: []byte(`{"isEnabled":false}`),
	})

	err := svc.CreatePayout(context.Background(), 1, "79927398713", 2000)
	if !errors.Is(err, ErrPayoutsDisabled) {
		t.Fatalf("err = %v, want ErrPayoutsDisabled", err)
	}
}

func TestPurchaseCoinPack(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, nil)

	pack, err := svc.PurchaseCoinPack(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if repo.user.Balance != pack.Coins {
		t.Fatalf("balance = %d, want %d", repo.user.Balance, pack.Coins)
	}
	if repo.transactions[0].Type != model.TransactionPurchase {
		t.Fatalf("tx type = %s, want purchase", repo.transactions[0].Type)
	}

	_, err = svc.PurchaseCoinPack(context.Background(), 1, 999)
	if !errors.Is(err, ErrCoinPackNotFound) {
		t.Fatalf("err = %v, want ErrCoinPackNotFound", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	repo := newStubRepo(testZone)
	svc := newTestService(repo, nil)

	id, err := svc.RegisterUser(context.Background(), "user", "correct")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	gotID, err := svc.AuthenticateUser(context.Background(), "user", "correct")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if gotID != id {
		t.Fatalf("id = %d, want %d", gotID, id)
	}

	_, err = svc.AuthenticateUser(context.Background(), "user", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}

	_, err = svc.AuthenticateUser(context.Background(), "ghost", "correct")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestProcessAdViewBatch_Transitions(t *testing.T) {
	// Провайдер отвечает заранее заданным статусом на каждый просмотр.
	statuses := map[string]adwatch.ViewStatus{
		"v-viewed":     {Status: "VIEWED", Views: 3},
		"v-duplicate":  {Status: "VIEWED", Views: 3},
		"v-partial":    {Status: "VIEWED", Views: 2},
		"v-processing": {Status: "PROCESSING", Views: 1},
		"v-invalid":    {Status: "INVALID", Views: 0},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/views/")
		st, ok := statuses[id]
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		st.View = id
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}))
	defer server.Close()

	repo := newStubRepo(testZone)
	repo.tasks[7] = model.Task{
		ID:           7,
		Title:        "Watch rewarded ads",
		RewardType:   model.RewardCoins,
		RewardAmount: 30,
		Frequency:    model.FrequencyDaily,
		IsActive:     true,
		AdsToWatch:   3,
	}
	repo.pendingViews = []model.AdView{
		{ID: "v-viewed", UserID: 1, TaskID: 7},
		{ID: "v-duplicate", UserID: 1, TaskID: 7},
		{ID: "v-partial", UserID: 1, TaskID: 7},
		{ID: "v-processing", UserID: 1, TaskID: 7},
		{ID: "v-invalid", UserID: 1, TaskID: 7},
	}

	svc := newTestService(repo, map[string][]byte{
		settings.KeyTasks: []byte(`{"isEnabled":true}`),
	})
	svc.adClient = adwatch.NewClient(server.URL)
	svc.now = func() time.Time { return at(10, 12) }

	svc.processAdViewBatch(context.Background())

	want := map[string]model.AdViewStatus{
		"v-viewed":     model.AdViewStatusViewed,
		"v-duplicate":  model.AdViewStatusViewed,
		"v-partial":    model.AdViewStatusProcessing,
		"v-processing": model.AdViewStatusProcessing,
		"v-invalid":    model.AdViewStatusInvalid,
	}
	for id, status := range want {
		if got := repo.viewStatuses[id]; got != status {
			t.Fatalf("view %s status = %q, want %q", id, got, status)
		}
	}

	// Недобравший показов просмотр остаётся с подтверждённым счётчиком.
	if repo.viewCounts["v-partial"] != 2 {
		t.Fatalf("v-partial views = %d, want 2", repo.viewCounts["v-partial"])
	}

	// Задание выполнено один раз: повторный VIEWED в тот же день
	// не приносит второго начисления.
	if repo.user.Balance != 30 {
		t.Fatalf("balance = %d, want 30", repo.user.Balance)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(repo.transactions))
	}
}

func TestStartAdViewUpdates_NoClient(t *testing.T) {
	svc := &Service{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartAdViewUpdates(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartAdViewUpdates did not return without client")
	}
}

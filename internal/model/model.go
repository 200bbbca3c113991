// Package model содержит доменные сущности сервиса clipstream.
package model

import "time"

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID              int64
	Username        string
	PasswordHash    []byte
	Balance         int64
	StreakCount     int
	XP              int64
	LastRewardClaim *time.Time
	CreatedAt       time.Time
}

// TransactionType описывает причину движения монет по кошельку.
type TransactionType string

const (
	TransactionPurchase     TransactionType = "purchase"
	TransactionGiftReceived TransactionType = "gift_received"
	TransactionGiftSent     TransactionType = "gift_sent"
	TransactionReward       TransactionType = "reward"
	TransactionPayout       TransactionType = "payout"
	TransactionTask         TransactionType = "task"
)

// WalletTransaction описывает одну запись журнала кошелька.
// Журнал только пополняется; списания хранятся с отрицательной суммой.
type WalletTransaction struct {
	ID          string
	Type        TransactionType
	Amount      int64
	Description string
	CreatedAt   time.Time
}

// RewardType описывает вид награды за задание.
type RewardType string

const (
	RewardCoins RewardType = "coins"
	RewardXP    RewardType = "xp"
)

// TaskFrequency описывает периодичность выполнения задания.
type TaskFrequency string

const (
	FrequencyOnce  TaskFrequency = "once"
	FrequencyDaily TaskFrequency = "daily"
)

// Task описывает задание, настроенное администратором.
type Task struct {
	ID           int64
	Title        string
	Description  string
	RewardType   RewardType
	RewardAmount int64
	Frequency    TaskFrequency
	AdID         string
	IsActive     bool
	AdDuration   int
	AdsToWatch   int
}

// TaskCompletion хранит момент последнего выполнения задания пользователем.
// История не ведётся: повторное выполнение перезаписывает отметку.
type TaskCompletion struct {
	TaskID      int64
	CompletedAt time.Time
}

// AdViewStatus описывает статус проверки просмотра рекламы.
type AdViewStatus string

const (
	AdViewStatusNew        AdViewStatus = "NEW"
	AdViewStatusProcessing AdViewStatus = "PROCESSING"
	AdViewStatusViewed     AdViewStatus = "VIEWED"
	AdViewStatusInvalid    AdViewStatus = "INVALID"
)

// AdView описывает ожидающий подтверждения просмотр рекламы по заданию.
type AdView struct {
	ID             string
	UserID         int64
	TaskID         int64
	Status         AdViewStatus
	ViewsConfirmed int
	CreatedAt      time.Time
}

// Balance содержит текущий баланс пользователя и сумму всех выплат.
type Balance struct {
	Balance   int64 `json:"balance"`
	Withdrawn int64 `json:"withdrawn"`
}

// Video описывает метаданные загруженного ролика.
type Video struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	URL         string
	UploadedAt  time.Time
}

// Comment описывает комментарий к ролику.
type Comment struct {
	ID        int64
	VideoID   int64
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
}

// LiveStream описывает прямую трансляцию.
type LiveStream struct {
	ID        int64
	UserID    int64
	Title     string
	StreamKey string
	IsLive    bool
	StartedAt time.Time
}

// Message описывает сообщение в диалоге пользователя.
// Системные уведомления приходят от синтетического отправителя system.
type Message struct {
	ID        int64
	UserID    int64
	Sender    string
	Text      string
	CreatedAt time.Time
}

// Profile содержит открытую часть данных пользователя.
type Profile struct {
	Username    string    `json:"username"`
	StreakCount int       `json:"streak_count"`
	XP          int64     `json:"xp"`
	CreatedAt   time.Time `json:"created_at"`
}

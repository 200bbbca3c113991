// Package settings содержит документы настроек, управляемые администратором,
// и логику их загрузки из долговременного хранилища со слиянием со значениями
// по умолчанию.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Ключи документов настроек в хранилище.
const (
	KeyDailyReward  = "dailyRewardSettings"
	KeyTasks        = "taskSettings"
	KeyMonetization = "monetizationSettings"
	KeyAds          = "adSettings"
	KeyCoinPacks    = "coinPacks"
	KeySiteName     = "siteName"
)

// ErrNotFound возвращается хранилищем, если документ по ключу отсутствует.
var ErrNotFound = errors.New("setting not found")

// ErrUnknownKey возвращается при обращении к неизвестному ключу настроек.
var ErrUnknownKey = errors.New("unknown settings key")

// Store описывает контракт долговременного key-value хранилища настроек.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// RewardTier описывает награду за один день серии чекинов.
// Уровень i (с нуля) соответствует дню серии i+1; при превышении числа
// уровней последний повторяется.
type RewardTier struct {
	Amount int64 `json:"amount"`
}

// DailyReward содержит настройки ежедневной награды за чекин.
type DailyReward struct {
	IsEnabled     bool         `json:"isEnabled"`
	ModalTitle    string       `json:"modalTitle"`
	ModalSubtitle string       `json:"modalSubtitle"`
	Rewards       []RewardTier `json:"rewards"`
}

// Tasks содержит настройки раздела заданий.
type Tasks struct {
	IsEnabled bool   `json:"isEnabled"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
}

// CreatorCriteria содержит пороги для участия в монетизации.
type CreatorCriteria struct {
	MinFollowers int64 `json:"minFollowers"`
	MinViews     int64 `json:"minViews"`
}

// Monetization содержит настройки монетизации и выплат.
type Monetization struct {
	IsEnabled       bool            `json:"isEnabled"`
	PayoutRate      float64         `json:"payoutRate"`
	MinPayoutCoins  int64           `json:"minPayoutCoins"`
	CreatorCriteria CreatorCriteria `json:"creatorCriteria"`
}

// AdMob содержит идентификаторы рекламных блоков AdMob.
type AdMob struct {
	AppID                string `json:"appId"`
	BannerAdUnitID       string `json:"bannerAdUnitId"`
	InterstitialAdUnitID string `json:"interstitialAdUnitId"`
	RewardedAdUnitID     string `json:"rewardedAdUnitId"`
}

// Ads содержит настройки показа рекламы.
type Ads struct {
	IsEnabled             bool  `json:"isEnabled"`
	InterstitialFrequency int   `json:"interstitialFrequency"`
	AdMob                 AdMob `json:"adMob"`
}

// CoinPack описывает пакет монет, доступный к покупке.
type CoinPack struct {
	ID    int64   `json:"id"`
	Coins int64   `json:"coins"`
	Price float64 `json:"price"`
	Label string  `json:"label"`
}

// DefaultDailyReward возвращает настройки ежедневной награды по умолчанию.
func DefaultDailyReward() DailyReward {
	return DailyReward{
		IsEnabled:     true,
		ModalTitle:    "Daily Check-in",
		ModalSubtitle: "Come back every day to earn more coins!",
		Rewards: []RewardTier{
			{Amount: 10}, {Amount: 20}, {Amount: 30},
			{Amount: 40}, {Amount: 50}, {Amount: 75}, {Amount: 100},
		},
	}
}

// DefaultTasks возвращает настройки раздела заданий по умолчанию.
func DefaultTasks() Tasks {
	return Tasks{
		IsEnabled: true,
		Title:     "Earn Rewards",
		Subtitle:  "Complete tasks to earn coins and XP",
	}
}

// DefaultMonetization возвращает настройки монетизации по умолчанию.
func DefaultMonetization() Monetization {
	return Monetization{
		IsEnabled:      true,
		PayoutRate:     0.01,
		MinPayoutCoins: 1000,
		CreatorCriteria: CreatorCriteria{
			MinFollowers: 1000,
			MinViews:     10000,
		},
	}
}

// DefaultAds возвращает настройки рекламы по умолчанию.
func DefaultAds() Ads {
	return Ads{
		IsEnabled:             true,
		InterstitialFrequency: 5,
		AdMob: AdMob{
			AppID:                "ca-app-pub-3940256099942544~3347511713",
			BannerAdUnitID:       "ca-app-pub-3940256099942544/6300978111",
			InterstitialAdUnitID: "ca-app-pub-3940256099942544/1033173712",
			RewardedAdUnitID:     "ca-app-pub-3940256099942544/5224354917",
		},
	}
}

// DefaultCoinPacks возвращает пакеты монет по умолчанию.
func DefaultCoinPacks() []CoinPack {
	return []CoinPack{
		{ID: 1, Coins: 100, Price: 0.99, Label: "Starter"},
		{ID: 2, Coins: 550, Price: 4.99, Label: "Popular"},
		{ID: 3, Coins: 1200, Price: 9.99, Label: "Best Value"},
	}
}

// DefaultSiteName возвращает название площадки по умолчанию.
func DefaultSiteName() string { return "Clipstream" }

// Manager загружает и сохраняет документы настроек через хранилище.
// Чтение всегда сливает сохранённый JSON поверх значений по умолчанию,
// поэтому добавление нового поля в поздней версии не требует миграции
// данных. Повреждённый JSON приводит к откату на значения по умолчанию,
// никогда — к ошибке для вызывающего.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager создаёт менеджер настроек поверх указанного хранилища.
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// load сливает сохранённый документ поверх dst, уже заполненного значениями
// по умолчанию. json.Unmarshal трогает только присутствующие в документе
// поля, включая вложенные объекты, что и даёт пофазовое слияние.
func (m *Manager) load(ctx context.Context, key string, dst any) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("load setting", zap.String("key", key), zap.Error(err))
		}
		return
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		m.logger.Error("malformed setting, using defaults", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// DailyReward возвращает действующие настройки ежедневной награды.
func (m *Manager) DailyReward(ctx context.Context) DailyReward {
	v := DefaultDailyReward()
	m.load(ctx, KeyDailyReward, &v)
	return v
}

// SaveDailyReward сохраняет настройки ежедневной награды.
func (m *Manager) SaveDailyReward(ctx context.Context, v DailyReward) error {
	return m.save(ctx, KeyDailyReward, v)
}

// Tasks возвращает действующие настройки раздела заданий.
func (m *Manager) Tasks(ctx context.Context) Tasks {
	v := DefaultTasks()
	m.load(ctx, KeyTasks, &v)
	return v
}

// SaveTasks сохраняет настройки раздела заданий.
func (m *Manager) SaveTasks(ctx context.Context, v Tasks) error {
	return m.save(ctx, KeyTasks, v)
}

// Monetization возвращает действующие настройки монетизации.
func (m *Manager) Monetization(ctx context.Context) Monetization {
	v := DefaultMonetization()
	m.load(ctx, KeyMonetization, &v)
	return v
}

// SaveMonetization сохраняет настройки монетизации.
func (m *Manager) SaveMonetization(ctx context.Context, v Monetization) error {
	return m.save(ctx, KeyMonetization, v)
}

// Ads возвращает действующие настройки рекламы.
func (m *Manager) Ads(ctx context.Context) Ads {
	v := DefaultAds()
	m.load(ctx, KeyAds, &v)
	return v
}

// SaveAds сохраняет настройки рекламы.
func (m *Manager) SaveAds(ctx context.Context, v Ads) error {
	return m.save(ctx, KeyAds, v)
}

// CoinPacks возвращает действующий список пакетов монет.
// Список заменяется целиком: слияние по элементам для массивов не применяется.
func (m *Manager) CoinPacks(ctx context.Context) []CoinPack {
	raw, err := m.store.Get(ctx, KeyCoinPacks)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("load setting", zap.String("key", KeyCoinPacks), zap.Error(err))
		}
		return DefaultCoinPacks()
	}

	var packs []CoinPack
	if err := json.Unmarshal(raw, &packs); err != nil {
		m.logger.Error("malformed setting, using defaults", zap.String("key", KeyCoinPacks), zap.Error(err))
		return DefaultCoinPacks()
	}
	return packs
}

// SaveCoinPacks сохраняет список пакетов монет.
func (m *Manager) SaveCoinPacks(ctx context.Context, v []CoinPack) error {
	return m.save(ctx, KeyCoinPacks, v)
}

// SiteName возвращает действующее название площадки.
func (m *Manager) SiteName(ctx context.Context) string {
	v := DefaultSiteName()
	m.load(ctx, KeySiteName, &v)
	return v
}

// MergedJSON возвращает действующий документ по ключу в виде JSON.
func (m *Manager) MergedJSON(ctx context.Context, key string) ([]byte, error) {
	var v any
	switch key {
	case KeyDailyReward:
		v = m.DailyReward(ctx)
	case KeyTasks:
		v = m.Tasks(ctx)
	case KeyMonetization:
		v = m.Monetization(ctx)
	case KeyAds:
		v = m.Ads(ctx)
	case KeyCoinPacks:
		v = m.CoinPacks(ctx)
	case KeySiteName:
		v = m.SiteName(ctx)
	default:
		return nil, ErrUnknownKey
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal setting %s: %w", key, err)
	}
	return raw, nil
}

// PutJSON сохраняет документ по ключу, проверив корректность JSON.
// Запись сквозная: каждое изменение сразу уходит в хранилище.
func (m *Manager) PutJSON(ctx context.Context, key string, raw []byte) error {
	switch key {
	case KeyDailyReward, KeyTasks, KeyMonetization, KeyAds, KeyCoinPacks, KeySiteName:
	default:
		return ErrUnknownKey
	}

	if !json.Valid(raw) {
		return fmt.Errorf("setting %s: invalid JSON", key)
	}

	if err := m.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

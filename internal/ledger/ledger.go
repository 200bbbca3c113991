// Package ledger содержит чистые правила начисления наград: выбор уровня
// ежедневной награды и определение доступности заданий. Все сравнения дат
// выполняются по локальному календарному дню в заданном часовом поясе.
package ledger

import (
	"errors"
	"time"

	"github.com/mmeshcher/clipstream-system/internal/model"
	"github.com/mmeshcher/clipstream-system/internal/settings"
)

// ErrEmptyRewardTiers возвращается, если список уровней награды пуст.
var ErrEmptyRewardTiers = errors.New("reward tiers are empty")

// SameLocalDay сообщает, приходятся ли два момента времени на один
// календарный день в указанном поясе. Сравниваются именно даты, а не
// усечённые отметки времени.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// LocalDate возвращает календарную дату момента времени в указанном поясе.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// TierAmount возвращает сумму награды для серии длиной streak.
// Уровень выбирается как min(streak, len(rewards)-1): после исчерпания
// настроенных уровней последний повторяется бесконечно.
func TierAmount(rewards []settings.RewardTier, streak int) (int64, error) {
	if len(rewards) == 0 {
		return 0, ErrEmptyRewardTiers
	}

	idx := streak
	if idx > len(rewards)-1 {
		idx = len(rewards) - 1
	}
	return rewards[idx].Amount, nil
}

// RewardEligible сообщает, доступна ли пользователю ежедневная награда:
// награды включены и дата последней заявки не совпадает с сегодняшней.
// Обе даты — календарные строки вида YYYY-MM-DD; пустая строка означает,
// что заявок ещё не было.
func RewardEligible(cfg settings.DailyReward, lastClaimDate, today string) bool {
	if !cfg.IsEnabled {
		return false
	}
	return lastClaimDate != today
}

// IsTaskCompleted сообщает, считается ли задание выполненным на момент now.
// Задание once выполнено навсегда после первой отметки; задание daily —
// только если отметка приходится на сегодняшний календарный день.
func IsTaskCompleted(task model.Task, completedAt *time.Time, now time.Time, loc *time.Location) bool {
	if completedAt == nil {
		return false
	}
	if task.Frequency == model.FrequencyOnce {
		return true
	}
	return SameLocalDay(*completedAt, now, loc)
}

// HasIncompleteDailyTasks сообщает, есть ли у пользователя активные
// ежедневные задания, не выполненные сегодня. Используется только для
// индикации в интерфейсе.
func HasIncompleteDailyTasks(cfg settings.Tasks, tasks []model.Task, completions map[int64]time.Time, now time.Time, loc *time.Location) bool {
	if !cfg.IsEnabled {
		return false
	}

	for _, task := range tasks {
		if !task.IsActive || task.Frequency != model.FrequencyDaily {
			continue
		}

		var completedAt *time.Time
		if t, ok := completions[task.ID]; ok {
			completedAt = &t
		}
		if !IsTaskCompleted(task, completedAt, now, loc) {
			return true
		}
	}
	return false
}

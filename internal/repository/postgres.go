// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/clipstream-system/internal/ledger"
	"github.com/mmeshcher/clipstream-system/internal/model"
	"github.com/mmeshcher/clipstream-system/internal/settings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим именем.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound возвращается, если задание не найдено.
	ErrTaskNotFound = errors.New("task not found")
	// ErrVideoNotFound возвращается, если ролик не найден.
	ErrVideoNotFound = errors.New("video not found")
	// ErrRewardAlreadyClaimed возвращается при повторной заявке на награду в тот же день.
	ErrRewardAlreadyClaimed = errors.New("daily reward already claimed")
	// ErrTaskAlreadyCompleted возвращается при повторном выполнении недоступного задания.
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	// ErrInsufficientBalance возвращается при попытке выплаты суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, дедлоках и сетевых
// сбоях. Логические ошибки (ErrInsufficientBalance и т.п.) не ретраятся.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, username string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance,
		&u.StreakCount, &u.XP, &u.LastRewardClaim, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

const userColumns = `id, username, password_hash, balance, streak_count, xp, last_reward_claim, created_at`

// GetUserByUsername возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// ClaimDailyReward атомарно применяет заявку на ежедневную награду:
// начисляет монеты, добавляет запись журнала, увеличивает серию и
// фиксирует дату заявки. Строка пользователя блокируется, чтобы две
// параллельные заявки в один день не прошли обе.
func (r *PostgresRepository) ClaimDailyReward(ctx context.Context, userID int64, txID string, amount int64, claimDate, description string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var lastClaim *time.Time
		err = tx.QueryRow(ctx,
			`SELECT last_reward_claim FROM users WHERE id = $1 FOR UPDATE`,
			userID,
		).Scan(&lastClaim)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		if lastClaim != nil && lastClaim.UTC().Format("2006-01-02") == claimDate {
			return ErrRewardAlreadyClaimed
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO wallet_transactions (id, user_id, type, amount, description)
			 VALUES ($1, $2, $3, $4, $5)`,
			txID, userID, string(model.TransactionReward), amount, description,
		)
		if err != nil {
			return fmt.Errorf("insert reward transaction: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE users
			 SET balance = balance + $2,
			     streak_count = streak_count + 1,
			     last_reward_claim = $3
			 WHERE id = $1`,
			userID, amount, claimDate,
		)
		if err != nil {
			return fmt.Errorf("apply reward: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// CompleteTask атомарно применяет выполнение задания: проверяет доступность
// под блокировкой строки пользователя, начисляет монеты или опыт,
// перезаписывает отметку выполнения и добавляет системное сообщение.
func (r *PostgresRepository) CompleteTask(ctx context.Context, userID int64, task model.Task, txID string, now time.Time, loc *time.Location, systemMessage string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		var completedAt *time.Time
		err = tx.QueryRow(ctx,
			`SELECT completed_at FROM task_completions WHERE user_id = $1 AND task_id = $2`,
			userID, task.ID,
		).Scan(&completedAt)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("select completion: %w", err)
		}

		if ledger.IsTaskCompleted(task, completedAt, now, loc) {
			return ErrTaskAlreadyCompleted
		}

		switch task.RewardType {
		case model.RewardCoins:
			_, err = tx.Exec(ctx,
				`INSERT INTO wallet_transactions (id, user_id, type, amount, description)
				 VALUES ($1, $2, $3, $4, $5)`,
				txID, userID, string(model.TransactionTask), task.RewardAmount, "Reward for: "+task.Title,
			)
			if err != nil {
				return fmt.Errorf("insert task transaction: %w", err)
			}

			_, err = tx.Exec(ctx,
				`UPDATE users SET balance = balance + $2 WHERE id = $1`,
				userID, task.RewardAmount,
			)
			if err != nil {
				return fmt.Errorf("credit coins: %w", err)
			}
		case model.RewardXP:
			// Опыт не проходит через кошелёк: запись журнала не создаётся.
			_, err = tx.Exec(ctx,
				`UPDATE users SET xp = xp + $2 WHERE id = $1`,
				userID, task.RewardAmount,
			)
			if err != nil {
				return fmt.Errorf("credit xp: %w", err)
			}
		default:
			return fmt.Errorf("unknown reward type: %s", task.RewardType)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO task_completions (user_id, task_id, completed_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, task_id) DO UPDATE SET completed_at = EXCLUDED.completed_at`,
			userID, task.ID, now,
		)
		if err != nil {
			return fmt.Errorf("upsert completion: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO messages (user_id, sender, text) VALUES ($1, 'system', $2)`,
			userID, systemMessage,
		)
		if err != nil {
			return fmt.Errorf("insert system message: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// CreditWallet начисляет монеты пользователю с записью в журнал кошелька.
func (r *PostgresRepository) CreditWallet(ctx context.Context, userID int64, txID string, txType model.TransactionType, amount int64, description string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO wallet_transactions (id, user_id, type, amount, description)
			 VALUES ($1, $2, $3, $4, $5)`,
			txID, userID, string(txType), amount, description,
		)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1`,
			userID, amount,
		)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// CreatePayout создаёт выплату: списывает монеты под блокировкой строки
// пользователя, чтобы параллельные выплаты не увели баланс в минус.
func (r *PostgresRepository) CreatePayout(ctx context.Context, userID int64, txID string, amount int64, description string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var balance int64
		err = tx.QueryRow(ctx,
			`SELECT balance FROM users WHERE id = $1 FOR UPDATE`,
			userID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		if amount > balance {
			return ErrInsufficientBalance
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO wallet_transactions (id, user_id, type, amount, description)
			 VALUES ($1, $2, $3, $4, $5)`,
			txID, userID, string(model.TransactionPayout), -amount, description,
		)
		if err != nil {
			return fmt.Errorf("insert payout transaction: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET balance = balance - $2 WHERE id = $1`,
			userID, amount,
		)
		if err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetBalance возвращает текущий баланс и сумму всех выплат пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrUserNotFound
		}
		return 0, 0, fmt.Errorf("select balance: %w", err)
	}

	var withdrawn int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(-SUM(amount), 0)
		 FROM wallet_transactions
		 WHERE user_id = $1 AND type = $2`,
		userID, string(model.TransactionPayout),
	).Scan(&withdrawn)
	if err != nil {
		return 0, 0, fmt.Errorf("sum payouts: %w", err)
	}

	return balance, withdrawn, nil
}

// GetTransactionsByUser возвращает журнал кошелька пользователя, новые записи первыми.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.WalletTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, amount, description, created_at
		 FROM wallet_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.WalletTransaction
	for rows.Next() {
		var (
			txn    model.WalletTransaction
			txType string
		)
		if err := rows.Scan(&txn.ID, &txType, &txn.Amount, &txn.Description, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txn.Type = model.TransactionType(txType)
		res = append(res, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListTasks возвращает все задания.
func (r *PostgresRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, reward_type, reward_amount, frequency,
		        ad_id, is_active, ad_duration, ads_to_watch
		 FROM tasks
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var res []model.Task
	for rows.Next() {
		var (
			task       model.Task
			rewardType string
			frequency  string
		)
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &rewardType,
			&task.RewardAmount, &frequency, &task.AdID, &task.IsActive,
			&task.AdDuration, &task.AdsToWatch); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.RewardType = model.RewardType(rewardType)
		task.Frequency = model.TaskFrequency(frequency)
		res = append(res, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetTaskByID возвращает задание по идентификатору.
func (r *PostgresRepository) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	var (
		task       model.Task
		rewardType string
		frequency  string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, reward_type, reward_amount, frequency,
		        ad_id, is_active, ad_duration, ads_to_watch
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(&task.ID, &task.Title, &task.Description, &rewardType,
		&task.RewardAmount, &frequency, &task.AdID, &task.IsActive,
		&task.AdDuration, &task.AdsToWatch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	task.RewardType = model.RewardType(rewardType)
	task.Frequency = model.TaskFrequency(frequency)
	return &task, nil
}

// GetTaskCompletions возвращает отметки выполнения заданий пользователя.
func (r *PostgresRepository) GetTaskCompletions(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT task_id, completed_at FROM task_completions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select completions: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]time.Time)
	for rows.Next() {
		var (
			taskID      int64
			completedAt time.Time
		)
		if err := rows.Scan(&taskID, &completedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		res[taskID] = completedAt
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateAdView регистрирует ожидающий подтверждения просмотр рекламы.
func (r *PostgresRepository) CreateAdView(ctx context.Context, view model.AdView) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ad_views (id, user_id, task_id, status) VALUES ($1, $2, $3, $4)`,
		view.ID, view.UserID, view.TaskID, string(model.AdViewStatusNew),
	)
	if err != nil {
		return fmt.Errorf("insert ad view: %w", err)
	}
	return nil
}

// GetPendingAdViews возвращает просмотры, ожидающие подтверждения провайдером.
func (r *PostgresRepository) GetPendingAdViews(ctx context.Context, limit int) ([]model.AdView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, task_id, status, views_confirmed, created_at
		 FROM ad_views
		 WHERE status IN ($1, $2)
		 ORDER BY created_at
		 LIMIT $3`,
		string(model.AdViewStatusNew),
		string(model.AdViewStatusProcessing),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending ad views: %w", err)
	}
	defer rows.Close()

	var res []model.AdView
	for rows.Next() {
		var (
			view   model.AdView
			status string
		)
		if err := rows.Scan(&view.ID, &view.UserID, &view.TaskID, &status,
			&view.ViewsConfirmed, &view.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ad view: %w", err)
		}
		view.Status = model.AdViewStatus(status)
		res = append(res, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateAdView обновляет статус и число подтверждённых просмотров.
func (r *PostgresRepository) UpdateAdView(ctx context.Context, id string, status model.AdViewStatus, viewsConfirmed int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ad_views SET status = $2, views_confirmed = $3 WHERE id = $1`,
		id, string(status), viewsConfirmed,
	)
	if err != nil {
		return fmt.Errorf("update ad view: %w", err)
	}
	return nil
}

// CreateVideo сохраняет метаданные загруженного ролика.
func (r *PostgresRepository) CreateVideo(ctx context.Context, video model.Video) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO videos (user_id, title, description, url) VALUES ($1, $2, $3, $4) RETURNING id`,
		video.UserID, video.Title, video.Description, video.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert video: %w", err)
	}
	return id, nil
}

// GetVideoByID возвращает метаданные ролика.
func (r *PostgresRepository) GetVideoByID(ctx context.Context, id int64) (*model.Video, error) {
	var v model.Video
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, description, url, uploaded_at FROM videos WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.UserID, &v.Title, &v.Description, &v.URL, &v.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return &v, nil
}

// CreateComment сохраняет комментарий к ролику.
func (r *PostgresRepository) CreateComment(ctx context.Context, comment model.Comment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (video_id, user_id, text) VALUES ($1, $2, $3) RETURNING id`,
		comment.VideoID, comment.UserID, comment.Text,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

// GetCommentsByVideo возвращает комментарии к ролику в порядке добавления.
func (r *PostgresRepository) GetCommentsByVideo(ctx context.Context, videoID int64) ([]model.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.video_id, c.user_id, u.username, c.text, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.video_id = $1
		 ORDER BY c.created_at`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	defer rows.Close()

	var res []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.VideoID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListLiveStreams возвращает активные трансляции.
func (r *PostgresRepository) ListLiveStreams(ctx context.Context) ([]model.LiveStream, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, stream_key, is_live, started_at
		 FROM livestreams
		 WHERE is_live
		 ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select livestreams: %w", err)
	}
	defer rows.Close()

	var res []model.LiveStream
	for rows.Next() {
		var s model.LiveStream
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.StreamKey, &s.IsLive, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("scan livestream: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateLiveStream создаёт запись о трансляции.
func (r *PostgresRepository) CreateLiveStream(ctx context.Context, stream model.LiveStream) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO livestreams (user_id, title, stream_key) VALUES ($1, $2, $3) RETURNING id`,
		stream.UserID, stream.Title, stream.StreamKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert livestream: %w", err)
	}
	return id, nil
}

// GetMessagesByUser возвращает сообщения пользователя, новые первыми.
func (r *PostgresRepository) GetMessagesByUser(ctx context.Context, userID int64) ([]model.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, sender, text, created_at
		 FROM messages
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var res []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// Settings возвращает адаптер хранилища настроек поверх таблицы settings.
func (r *PostgresRepository) Settings() settings.Store {
	return settingsStore{r: r}
}

type settingsStore struct {
	r *PostgresRepository
}

func (s settingsStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.r.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("select setting: %w", err)
	}
	return value, nil
}

func (s settingsStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.r.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

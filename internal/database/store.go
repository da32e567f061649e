package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"itsm-text-bot/internal/logger"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"
)

type (
	// User - учетная запись пользователя бота. Права и блокировки
	// живут локально, в ITSM их нет.
	User struct {
		ID         int64
		TelegramID int64
		Username   string
		Phone      string
		IsAdmin    bool
		IsBan      bool
		CreatedAt  time.Time
	}

	// Store - sqlite хранилище пользователей и журнала команд
	Store struct {
		db *sql.DB
	}
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id INTEGER NOT NULL UNIQUE,
	username TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	is_admin INTEGER NOT NULL DEFAULT 0,
	is_ban INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	command TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

func Connect(path string) *Store {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Crit("Не удалось открыть базу данных:", err)
	}

	if _, err = db.Exec(schema); err != nil {
		logger.Crit("Не удалось применить схему базы данных:", err)
	}

	return &Store{db: db}
}

// NewWithDB используется в тестах с базой в памяти
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// UpsertUser создает пользователя при первом обращении к боту
func (s *Store) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users(telegram_id, username) VALUES(?, ?)
ON CONFLICT(telegram_id) DO UPDATE SET username = excluded.username`,
		telegramID, username)
	return err
}

func (s *Store) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	return s.getUser(ctx, `SELECT id, telegram_id, username, phone, is_admin, is_ban, created_at
FROM users WHERE telegram_id = ?`, telegramID)
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return s.getUser(ctx, `SELECT id, telegram_id, username, phone, is_admin, is_ban, created_at
FROM users WHERE phone = ?`, phone)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.TelegramID, &u.Username, &u.Phone, &u.IsAdmin, &u.IsBan, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return &u, nil
}

func (s *Store) UpdatePhone(ctx context.Context, telegramID int64, phone string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET phone = ? WHERE telegram_id = ?`, phone, telegramID)
	return err
}

func (s *Store) SetAdmin(ctx context.Context, telegramID int64, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE telegram_id = ?`, isAdmin, telegramID)
	return err
}

func (s *Store) SetBan(ctx context.Context, telegramID int64, isBan bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_ban = ? WHERE telegram_id = ?`, isBan, telegramID)
	return err
}

func (s *Store) Admins(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, telegram_id, username, phone, is_admin, is_ban, created_at
FROM users WHERE is_admin = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var createdAt string
		if err = rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.Phone, &u.IsAdmin, &u.IsBan, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// RecordCommand пишет команду в журнал, ошибки только логируются
func (s *Store) RecordCommand(ctx context.Context, telegramID int64, command string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands(user_id, command) VALUES(?, ?)`, telegramID, command)
	if err != nil {
		logger.Warning("Не удалось записать команду в журнал:", err)
	}
}

func Inject(key string, store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, store)
	}
}

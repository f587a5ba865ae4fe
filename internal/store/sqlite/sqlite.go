package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/causerie-chat/server/internal/store"
)

// autoBanReports is the report count at which a user is banned automatically.
const autoBanReports = 5

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	photo         TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'user',
	is_banned     BOOLEAN NOT NULL DEFAULT 0,
	reports       INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    INTEGER NOT NULL REFERENCES rooms(id),
	author_id  INTEGER NOT NULL REFERENCES users(id),
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS private_messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	from_user_id INTEGER NOT NULL REFERENCES users(id),
	to_user_id   INTEGER NOT NULL REFERENCES users(id),
	content      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blocked_users (
	blocker_id INTEGER NOT NULL REFERENCES users(id),
	blocked_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (blocker_id, blocked_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at);
CREATE INDEX IF NOT EXISTS idx_private_messages_pair
	ON private_messages(from_user_id, to_user_id, created_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Seed inserts the default rooms if they are absent.
func (s *SQLiteStore) Seed(ctx context.Context) error {
	defaults := []store.Room{
		{Name: "Général", Description: "Salon général pour tous."},
		{Name: "Développement", Description: "Discussions techniques."},
		{Name: "Détente", Description: "Salon détente."},
	}
	for _, room := range defaults {
		query := `INSERT OR IGNORE INTO rooms (name, description) VALUES (?, ?)`
		if _, err := s.db.ExecContext(ctx, query, room.Name, room.Description); err != nil {
			return fmt.Errorf("seed room %q: %w", room.Name, err)
		}
	}
	return nil
}

const userColumns = `id, username, email, password_hash, photo, bio, role, is_banned, reports, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Photo,
		&user.Bio,
		&user.Role,
		&user.IsBanned,
		&user.Reports,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves the users matching the given IDs, username-ordered.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []int64) ([]*store.User, error) {
	if len(ids) == 0 {
		return []*store.User{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders + `) ORDER BY username`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// ListUsers lists all users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// UpdateProfile updates a user's username and email.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	query := `UPDATE users SET username = ?, email = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, username, email, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// BlockUser records that blocker has blocked blocked. Idempotent.
func (s *SQLiteStore) BlockUser(ctx context.Context, blockerID, blockedID int64) error {
	query := `INSERT OR IGNORE INTO blocked_users (blocker_id, blocked_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

// UnblockUser removes a block relation. Unknown relation is a no-op.
func (s *SQLiteStore) UnblockUser(ctx context.Context, blockerID, blockedID int64) error {
	query := `DELETE FROM blocked_users WHERE blocker_id = ? AND blocked_id = ?`
	if _, err := s.db.ExecContext(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// ListBlockedUsers lists the users blocked by the given user.
func (s *SQLiteStore) ListBlockedUsers(ctx context.Context, userID int64) ([]*store.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE id IN (SELECT blocked_id FROM blocked_users WHERE blocker_id = ?)
		ORDER BY username
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query blocked users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// HasBlocked reports whether blocker has blocked blocked.
func (s *SQLiteStore) HasBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	query := `SELECT 1 FROM blocked_users WHERE blocker_id = ? AND blocked_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, blockerID, blockedID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query block relation: %w", err)
	}
	return true, nil
}

// BanUser flags a user as banned.
func (s *SQLiteStore) BanUser(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_banned = 1 WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ReportUser increments the report counter in a single statement so that
// concurrent reports cannot lose updates, auto-banning at the threshold.
func (s *SQLiteStore) ReportUser(ctx context.Context, id int64) (*store.User, error) {
	query := `
		UPDATE users
		SET reports = reports + 1,
		    is_banned = CASE WHEN reports + 1 >= ? THEN 1 ELSE is_banned END
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, autoBanReports, id)
	if err != nil {
		return nil, fmt.Errorf("report user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

func collectUsers(rows *sql.Rows) ([]*store.User, error) {
	users := []*store.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ==== RoomStore implementation ====

// CreateRoom creates a new room. Name must be unique.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, description string) (*store.Room, error) {
	query := `INSERT INTO rooms (name, description) VALUES (?, ?)`
	result, err := s.db.ExecContext(ctx, query, name, description)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `SELECT id, name, description, created_at FROM rooms WHERE id = ?`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// GetRoomByName retrieves a room by name.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*store.Room, error) {
	query := `SELECT id, name, description, created_at FROM rooms WHERE name = ?`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// ListRooms lists all rooms, newest first.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `SELECT id, name, description, created_at FROM rooms ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*store.Room{}
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a room message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, roomID, authorID int64, content string) (*store.Message, error) {
	query := `INSERT INTO messages (room_id, author_id, content) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, roomID, authorID, content)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessageByID(ctx, id)
}

func (s *SQLiteStore) getMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	query := `SELECT id, room_id, author_id, content, created_at FROM messages WHERE id = ?`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.AuthorID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return &msg, nil
}

// ListRoomMessages retrieves a room's messages, oldest first.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID int64) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, author_id, content, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []*store.Message{}
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.AuthorID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ==== PrivateMessageStore implementation ====

// SavePrivateMessage persists a direct message.
func (s *SQLiteStore) SavePrivateMessage(ctx context.Context, fromUserID, toUserID int64, content string) (*store.PrivateMessage, error) {
	query := `INSERT INTO private_messages (from_user_id, to_user_id, content) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, fromUserID, toUserID, content)
	if err != nil {
		return nil, fmt.Errorf("insert private message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	query = `SELECT id, from_user_id, to_user_id, content, created_at FROM private_messages WHERE id = ?`
	var msg store.PrivateMessage
	err = s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.FromUserID,
		&msg.ToUserID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query private message: %w", err)
	}
	return &msg, nil
}

// ListConversation retrieves all messages exchanged between two users in
// either direction, oldest first.
func (s *SQLiteStore) ListConversation(ctx context.Context, userA, userB int64) ([]*store.PrivateMessage, error) {
	query := `
		SELECT id, from_user_id, to_user_id, content, created_at
		FROM private_messages
		WHERE (from_user_id = ? AND to_user_id = ?)
		   OR (from_user_id = ? AND to_user_id = ?)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	messages := []*store.PrivateMessage{}
	for rows.Next() {
		var msg store.PrivateMessage
		if err := rows.Scan(&msg.ID, &msg.FromUserID, &msg.ToUserID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate private messages: %w", err)
	}
	return messages, nil
}

package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// defaultReminderHorizon is the due time applied to reminders created
// without one.
const defaultReminderHorizon = 60 * time.Minute

// store implements the session record store on sqlite
type store struct {
	db *sql.DB
}

// NewStore opens (or creates) the sqlite database and prepares the
// schema.
func NewStore(dbPath string) (repo.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			last_activity INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			text TEXT NOT NULL,
			due_at INTEGER NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS checkins (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			mood TEXT NOT NULL,
			energy INTEGER NOT NULL,
			focus INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS inbound_messages (
			session_id TEXT NOT NULL,
			id TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			raw TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, id)
		);
		CREATE TABLE IF NOT EXISTS outbound_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			text TEXT NOT NULL,
			reason TEXT NOT NULL,
			delivered INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			delivered_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id);
		CREATE INDEX IF NOT EXISTS idx_reminders_session ON reminders(session_id);
		CREATE INDEX IF NOT EXISTS idx_checkins_session ON checkins(session_id);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
		CREATE INDEX IF NOT EXISTS idx_outbound_session ON outbound_messages(session_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_channel ON sessions(channel_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &store{db: db}, nil
}

// ensureSession creates the session row on first touch and bumps its
// activity timestamp on every later one.
func (s *store) ensureSession(ctx context.Context, sessionID string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, last_activity) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_activity = excluded.last_activity
	`, sessionID, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

func (s *store) AddTask(ctx context.Context, sessionID, title string) (*domain.Task, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	task := &domain.Task{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Title:     title,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, session_id, title, completed, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, task.ID, task.SessionID, task.Title, task.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return task, nil
}

func (s *store) ListTasks(ctx context.Context, sessionID string) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, created_at
		FROM tasks WHERE session_id = ? ORDER BY rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t := &domain.Task{SessionID: sessionID}
		var completed int
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Title, &completed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Completed = completed != 0
		t.CreatedAt = time.Unix(createdAt, 0)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *store) CompleteTask(ctx context.Context, sessionID, taskID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed = 1 WHERE session_id = ? AND id = ?
	`, sessionID, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *store) AddReminder(ctx context.Context, sessionID, text string, due *time.Time) (*domain.Reminder, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	now := time.Now()
	dueAt := now.Add(defaultReminderHorizon)
	if due != nil {
		dueAt = *due
	}
	rem := &domain.Reminder{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      text,
		DueAt:     dueAt,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, session_id, text, due_at, completed, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, rem.ID, rem.SessionID, rem.Text, rem.DueAt.Unix(), rem.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}
	return rem, nil
}

func (s *store) ListReminders(ctx context.Context, sessionID string) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, due_at, completed, created_at
		FROM reminders WHERE session_id = ? ORDER BY rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		r := &domain.Reminder{SessionID: sessionID}
		var completed int
		var dueAt, createdAt int64
		if err := rows.Scan(&r.ID, &r.Text, &dueAt, &completed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.DueAt = time.Unix(dueAt, 0)
		r.Completed = completed != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *store) CompleteReminder(ctx context.Context, sessionID, reminderID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET completed = 1 WHERE session_id = ? AND id = ?
	`, sessionID, reminderID)
	if err != nil {
		return false, fmt.Errorf("failed to complete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *store) AddCheckIn(ctx context.Context, sessionID, mood string, energy, focus int, note string) (*domain.CheckIn, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	c := &domain.CheckIn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Mood:      mood,
		Energy:    energy,
		Focus:     focus,
		Note:      note,
		Timestamp: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, session_id, mood, energy, focus, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SessionID, c.Mood, c.Energy, c.Focus, c.Note, c.Timestamp.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert check-in: %w", err)
	}
	return c, nil
}

func (s *store) ListCheckIns(ctx context.Context, sessionID string, limit int) ([]*domain.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mood, energy, focus, note, created_at
		FROM checkins WHERE session_id = ? ORDER BY rowid DESC LIMIT ?
	`, sessionID, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer rows.Close()

	var checkins []*domain.CheckIn
	for rows.Next() {
		c := &domain.CheckIn{SessionID: sessionID}
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Mood, &c.Energy, &c.Focus, &c.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		c.Timestamp = time.Unix(createdAt, 0)
		checkins = append(checkins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(checkins)-1; i < j; i, j = i+1, j-1 {
		checkins[i], checkins[j] = checkins[j], checkins[i]
	}
	return checkins, nil
}

func (s *store) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, role, content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *store) History(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
	`, sessionID, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m := &domain.Message{SessionID: sessionID}
		var createdAt int64
		if err := rows.Scan(&m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Timestamp = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query, chronological for callers.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *store) AddInbound(ctx context.Context, rec *domain.InboundRecord) (bool, error) {
	if err := s.ensureSession(ctx, rec.SessionID); err != nil {
		return false, err
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO inbound_messages (session_id, id, author, text, source, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.ID, rec.Author, rec.Text, rec.Source, rec.Raw, ts.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert inbound record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *store) HasInbound(ctx context.Context, sessionID, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM inbound_messages WHERE session_id = ? AND id = ?
	`, sessionID, externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query inbound record: %w", err)
	}
	return true, nil
}

func (s *store) ListInbound(ctx context.Context, sessionID string, limit int) ([]*domain.InboundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, text, source, raw, created_at
		FROM inbound_messages WHERE session_id = ? ORDER BY rowid DESC LIMIT ?
	`, sessionID, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query inbound records: %w", err)
	}
	defer rows.Close()

	var records []*domain.InboundRecord
	for rows.Next() {
		r := &domain.InboundRecord{SessionID: sessionID}
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Author, &r.Text, &r.Source, &r.Raw, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan inbound record: %w", err)
		}
		r.Timestamp = time.Unix(createdAt, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (s *store) AddOutbox(ctx context.Context, sessionID, text, reason string) (*domain.OutboxEntry, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	entry := &domain.OutboxEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      text,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbound_messages (id, session_id, text, reason, delivered, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)
	`, entry.ID, entry.SessionID, entry.Text, entry.Reason, entry.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert outbox entry: %w", err)
	}
	return entry, nil
}

const outboxColumns = `id, text, reason, delivered, attempts, created_at, delivered_at`

func (s *store) scanOutbox(rows *sql.Rows, sessionID string) (*domain.OutboxEntry, error) {
	e := &domain.OutboxEntry{SessionID: sessionID}
	var delivered int
	var createdAt int64
	var deliveredAt sql.NullInt64
	if err := rows.Scan(&e.ID, &e.Text, &e.Reason, &delivered, &e.Attempts, &createdAt, &deliveredAt); err != nil {
		return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
	}
	e.Delivered = delivered != 0
	e.CreatedAt = time.Unix(createdAt, 0)
	if deliveredAt.Valid {
		at := time.Unix(deliveredAt.Int64, 0)
		e.DeliveredAt = &at
	}
	return e, nil
}

func (s *store) ListOutbox(ctx context.Context, sessionID string, limit int) ([]*domain.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outboxColumns+`
		FROM outbound_messages WHERE session_id = ? ORDER BY rowid DESC LIMIT ?
	`, sessionID, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []*domain.OutboxEntry
	for rows.Next() {
		e, err := s.scanOutbox(rows, sessionID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *store) ListUndelivered(ctx context.Context, sessionID string) ([]*domain.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outboxColumns+`
		FROM outbound_messages WHERE session_id = ? AND delivered = 0 ORDER BY rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query undelivered outbox: %w", err)
	}
	defer rows.Close()

	var entries []*domain.OutboxEntry
	for rows.Next() {
		e, err := s.scanOutbox(rows, sessionID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *store) LatestOutbox(ctx context.Context, sessionID string) (*domain.OutboxEntry, error) {
	entries, err := s.ListOutbox(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (s *store) MarkDelivered(ctx context.Context, sessionID, entryID string, deliveredAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET delivered = 1, delivered_at = COALESCE(delivered_at, ?)
		WHERE session_id = ? AND id = ?
	`, deliveredAt.Unix(), sessionID, entryID)
	if err != nil {
		return false, fmt.Errorf("failed to mark delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *store) RecordAttempt(ctx context.Context, sessionID, entryID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages SET attempts = attempts + 1
		WHERE session_id = ? AND id = ?
	`, sessionID, entryID)
	if err != nil {
		return -1, fmt.Errorf("failed to record attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return -1, nil
	}

	var attempts int
	err = s.db.QueryRowContext(ctx, `
		SELECT attempts FROM outbound_messages WHERE session_id = ? AND id = ?
	`, sessionID, entryID).Scan(&attempts)
	if err != nil {
		return -1, fmt.Errorf("failed to read attempt count: %w", err)
	}
	return attempts, nil
}

func (s *store) BindChannel(ctx context.Context, sessionID, channelID string) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET channel_id = ? WHERE id = ?
	`, channelID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to bind channel: %w", err)
	}
	return nil
}

func (s *store) SessionByChannel(ctx context.Context, channelID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions WHERE channel_id = ?
	`, channelID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query channel binding: %w", err)
	}
	return sessionID, nil
}

func (s *store) ListChannelBindings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, id FROM sessions WHERE channel_id != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel bindings: %w", err)
	}
	defer rows.Close()

	bindings := make(map[string]string)
	for rows.Next() {
		var channelID, sessionID string
		if err := rows.Scan(&channelID, &sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan channel binding: %w", err)
		}
		bindings[channelID] = sessionID
	}
	return bindings, rows.Err()
}

func (s *store) Clear(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM tasks WHERE session_id = ?`,
		`DELETE FROM reminders WHERE session_id = ?`,
		`DELETE FROM checkins WHERE session_id = ?`,
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM inbound_messages WHERE session_id = ?`,
		`DELETE FROM outbound_messages WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, sessionID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return tx.Commit()
}

func (s *store) Close() error {
	return s.db.Close()
}

// queryLimit maps "no limit" to sqlite's unbounded LIMIT value.
func queryLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

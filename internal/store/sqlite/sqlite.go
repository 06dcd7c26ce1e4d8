package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// Open opens (or creates) a SQLite database at the given path, enables WAL
// journal mode and applies the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*sql.DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(ON)"
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT    NOT NULL,
    fields     TEXT    NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);

CREATE TABLE IF NOT EXISTS messages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL,
    email       TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    body        TEXT    NOT NULL,
    status      TEXT    NOT NULL DEFAULT 'unread',
    is_read     INTEGER NOT NULL DEFAULT 0,
    priority    TEXT    NOT NULL DEFAULT 'normal',
    admin_notes TEXT,
    created_at  TIMESTAMP NOT NULL,
    read_at     TIMESTAMP,
    replied_at  TIMESTAMP,
    archived_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// New constructs a SQLite-backed store from an open connection.
func New(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Records() store.Records   { return &records{db: s.db} }
func (s *sqliteStore) Messages() store.Messages { return &messages{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Records ---

type records struct{ db *sql.DB }

func (r *records) Create(ctx context.Context, collection string, fields model.Fields) (*model.Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", model.ErrValidation)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields not encodable: %v", model.ErrValidation, err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO records (collection, fields, created_at, updated_at)
        VALUES (?,?,?,?)
    `, collection, string(raw), now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, collection, id)
}

func (r *records) Update(ctx context.Context, collection string, id int64, fields model.Fields) (*model.Record, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields not encodable: %v", model.ErrValidation, err)
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE records SET fields=?, updated_at=? WHERE collection=? AND id=?
    `, string(raw), time.Now().UTC(), collection, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("record %d in %q: %w", id, collection, model.ErrNotFound)
	}
	return r.get(ctx, collection, id)
}

func (r *records) Delete(ctx context.Context, collection string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=? AND id=?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %d in %q: %w", id, collection, model.ErrNotFound)
	}
	return nil
}

func (r *records) List(ctx context.Context, collection string) ([]*model.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, fields, created_at, updated_at
        FROM records WHERE collection=? ORDER BY id ASC
    `, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *records) BulkDelete(ctx context.Context, collection string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ph, args := placeholders(ids)
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM records WHERE collection=? AND id IN (`+ph+`)`,
		append([]interface{}{collection}, args...)...)
	if err != nil {
		return nil, err
	}
	var present []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		present = append(present, id)
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection=? AND id IN (`+ph+`)`,
		append([]interface{}{collection}, args...)...); err != nil {
		return nil, err
	}
	return present, tx.Commit()
}

func (r *records) get(ctx context.Context, collection string, id int64) (*model.Record, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, fields, created_at, updated_at
        FROM records WHERE collection=? AND id=?
    `, collection, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %d in %q: %w", id, collection, model.ErrNotFound)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*model.Record, error) {
	var (
		id               int64
		raw              string
		created, updated time.Time
	)
	if err := row.Scan(&id, &raw, &created, &updated); err != nil {
		return nil, err
	}
	var fields model.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("record %d: corrupt fields: %w", id, err)
	}
	return &model.Record{
		Identity:  model.PersistentID(id),
		Fields:    fields,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}, nil
}

// --- Messages ---

type messages struct{ db *sql.DB }

const messageColumns = `id, name, email, subject, body, status, is_read, priority, admin_notes, created_at, read_at, replied_at, archived_at`

func (m *messages) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	status := msg.Status
	if status == "" {
		status = model.StatusUnread
	}
	priority := msg.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	// Creation time is store-assigned, matching the postgres DEFAULT now().
	created := time.Now().UTC()
	res, err := m.db.ExecContext(ctx, `
        INSERT INTO messages (name, email, subject, body, status, is_read, priority, admin_notes, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, msg.Name, msg.Email, msg.Subject, msg.Body, status, msg.IsRead, priority, msg.AdminNotes, created)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, id)
}

func (m *messages) Get(ctx context.Context, id int64) (*model.Message, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=?`, id)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	return msg, err
}

func (m *messages) List(ctx context.Context) ([]*model.Message, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (m *messages) Update(ctx context.Context, id int64, patch model.MessagePatch) (*model.Message, error) {
	if patch.IsZero() {
		return m.Get(ctx, id)
	}
	set, args := patchClauses(patch)
	args = append(args, id)
	res, err := m.db.ExecContext(ctx, `UPDATE messages SET `+set+` WHERE id=?`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *messages) Delete(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM messages WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (m *messages) BulkUpdate(ctx context.Context, ids []int64, patch model.MessagePatch) ([]*model.Message, error) {
	if len(ids) == 0 || patch.IsZero() {
		return nil, nil
	}
	set, args := patchClauses(patch)
	ph, idArgs := placeholders(ids)
	if _, err := m.db.ExecContext(ctx,
		`UPDATE messages SET `+set+` WHERE id IN (`+ph+`)`,
		append(args, idArgs...)...); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id IN (`+ph+`) ORDER BY created_at DESC, id DESC`,
		idArgs...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (m *messages) BulkDelete(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ph, args := placeholders(ids)
	rows, err := tx.QueryContext(ctx, `SELECT id FROM messages WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	var present []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		present = append(present, id)
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id IN (`+ph+`)`, args...); err != nil {
		return nil, err
	}
	return present, tx.Commit()
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		msg                       model.Message
		notes                     sql.NullString
		readAt, repliedAt, archAt sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Body,
		&msg.Status, &msg.IsRead, &msg.Priority, &notes, &msg.CreatedAt,
		&readAt, &repliedAt, &archAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		msg.AdminNotes = &notes.String
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	if repliedAt.Valid {
		t := repliedAt.Time
		msg.RepliedAt = &t
	}
	if archAt.Valid {
		t := archAt.Time
		msg.ArchivedAt = &t
	}
	return &msg, nil
}

// patchClauses renders a MessagePatch into SET clauses. The set-once
// timestamps use COALESCE so an already-populated column always wins.
func patchClauses(p model.MessagePatch) (string, []interface{}) {
	var (
		set  []string
		args []interface{}
	)
	if p.Status != nil {
		set = append(set, "status=?")
		args = append(args, *p.Status)
	}
	if p.IsRead != nil {
		set = append(set, "is_read=?")
		args = append(args, *p.IsRead)
	}
	if p.Priority != nil {
		set = append(set, "priority=?")
		args = append(args, *p.Priority)
	}
	if p.AdminNotes != nil {
		set = append(set, "admin_notes=?")
		args = append(args, *p.AdminNotes)
	}
	if p.ReadAt != nil {
		set = append(set, "read_at=COALESCE(read_at, ?)")
		args = append(args, *p.ReadAt)
	}
	if p.RepliedAt != nil {
		set = append(set, "replied_at=COALESCE(replied_at, ?)")
		args = append(args, *p.RepliedAt)
	}
	if p.ArchivedAt != nil {
		set = append(set, "archived_at=COALESCE(archived_at, ?)")
		args = append(args, *p.ArchivedAt)
	}
	return strings.Join(set, ", "), args
}

func placeholders(ids []int64) (string, []interface{}) {
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return strings.Join(ph, ","), args
}

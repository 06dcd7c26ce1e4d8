package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Schema is the DDL for the two tables the store owns. Deployments normally
// apply it via migrations; tests apply it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    id         BIGSERIAL PRIMARY KEY,
    collection TEXT      NOT NULL,
    fields     JSONB     NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);

CREATE TABLE IF NOT EXISTS messages (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL,
    subject     TEXT NOT NULL,
    body        TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'unread',
    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
    priority    TEXT NOT NULL DEFAULT 'normal',
    admin_notes TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    read_at     TIMESTAMPTZ,
    replied_at  TIMESTAMPTZ,
    archived_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// New constructs a Postgres-backed store from an open connection.
func New(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Records() store.Records   { return &records{db: s.db} }
func (s *pgStore) Messages() store.Messages { return &messages{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
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
	var (
		id               int64
		stored           []byte
		created, updated time.Time
	)
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO records (collection, fields)
        VALUES ($1,$2)
        RETURNING id, fields, created_at, updated_at
    `, collection, raw)
	if err := row.Scan(&id, &stored, &created, &updated); err != nil {
		return nil, err
	}
	return recordFromRow(id, stored, created, updated)
}

func (r *records) Update(ctx context.Context, collection string, id int64, fields model.Fields) (*model.Record, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields not encodable: %v", model.ErrValidation, err)
	}
	var (
		stored           []byte
		created, updated time.Time
	)
	row := r.db.QueryRowContext(ctx, `
        UPDATE records SET fields=$1, updated_at=now()
        WHERE collection=$2 AND id=$3
        RETURNING fields, created_at, updated_at
    `, raw, collection, id)
	if err := row.Scan(&stored, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record %d in %q: %w", id, collection, model.ErrNotFound)
		}
		return nil, err
	}
	return recordFromRow(id, stored, created, updated)
}

func (r *records) Delete(ctx context.Context, collection string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=$1 AND id=$2`, collection, id)
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
        FROM records WHERE collection=$1 ORDER BY id ASC
    `, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Record
	for rows.Next() {
		var (
			id               int64
			stored           []byte
			created, updated time.Time
		)
		if err := rows.Scan(&id, &stored, &created, &updated); err != nil {
			return nil, err
		}
		rec, err := recordFromRow(id, stored, created, updated)
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
	rows, err := r.db.QueryContext(ctx, `
        DELETE FROM records WHERE collection=$1 AND id = ANY($2) RETURNING id
    `, collection, ids)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var deleted []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}
	return deleted, rows.Err()
}

func recordFromRow(id int64, stored []byte, created, updated time.Time) (*model.Record, error) {
	var fields model.Fields
	if err := json.Unmarshal(stored, &fields); err != nil {
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
	row := m.db.QueryRowContext(ctx, `
        INSERT INTO messages (name, email, subject, body, status, is_read, priority, admin_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING `+messageColumns+`
    `, msg.Name, msg.Email, msg.Subject, msg.Body, status, msg.IsRead, priority, msg.AdminNotes)
	return scanMessage(row)
}

func (m *messages) Get(ctx context.Context, id int64) (*model.Message, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id)
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
	return collectMessages(rows)
}

func (m *messages) Update(ctx context.Context, id int64, patch model.MessagePatch) (*model.Message, error) {
	if patch.IsZero() {
		return m.Get(ctx, id)
	}
	set, args := patchClauses(patch)
	args = append(args, id)
	row := m.db.QueryRowContext(ctx,
		`UPDATE messages SET `+set+fmt.Sprintf(` WHERE id=$%d RETURNING `, len(args))+messageColumns,
		args...)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	return msg, err
}

func (m *messages) Delete(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, id)
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
	args = append(args, ids)
	rows, err := m.db.QueryContext(ctx,
		`UPDATE messages SET `+set+fmt.Sprintf(` WHERE id = ANY($%d) RETURNING `, len(args))+messageColumns,
		args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectMessages(rows)
}

func (m *messages) BulkDelete(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := m.db.QueryContext(ctx, `DELETE FROM messages WHERE id = ANY($1) RETURNING id`, ids)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var deleted []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}
	return deleted, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
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

func collectMessages(rows *sql.Rows) ([]*model.Message, error) {
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

// patchClauses renders a MessagePatch into SET clauses with $n placeholders.
// The set-once timestamps use COALESCE so an already-populated column wins.
func patchClauses(p model.MessagePatch) (string, []interface{}) {
	var (
		set  []string
		args []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf(clause, len(args)))
	}
	if p.Status != nil {
		add("status=$%d", *p.Status)
	}
	if p.IsRead != nil {
		add("is_read=$%d", *p.IsRead)
	}
	if p.Priority != nil {
		add("priority=$%d", *p.Priority)
	}
	if p.AdminNotes != nil {
		add("admin_notes=$%d", *p.AdminNotes)
	}
	if p.ReadAt != nil {
		add("read_at=COALESCE(read_at, $%d)", *p.ReadAt)
	}
	if p.RepliedAt != nil {
		add("replied_at=COALESCE(replied_at, $%d)", *p.RepliedAt)
	}
	if p.ArchivedAt != nil {
		add("archived_at=COALESCE(archived_at, $%d)", *p.ArchivedAt)
	}
	return strings.Join(set, ", "), args
}

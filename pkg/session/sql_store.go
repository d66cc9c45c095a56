package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

// DefaultTable is the table SQLStore uses unless configured otherwise.
const DefaultTable = "sessions"

type sqlRecord struct {
	ID           string    `db:"id"`
	Token        string    `db:"token"`
	UserID       *string   `db:"user_id"`
	Payload      string    `db:"payload"`
	IP           string    `db:"ip"`
	UserAgent    string    `db:"user_agent"`
	CreatedAt    time.Time `db:"created_at"`
	LastActiveAt time.Time `db:"last_active_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// SQLStore persists sessions in a database table through pkg/orm.
// Values are stored as a JSON payload column.
type SQLStore struct {
	db    *orm.DB
	table string
}

// NewSQLStore creates a store over table (DefaultTable when empty).
// CreateTable creates the table if needed.
func NewSQLStore(db *orm.DB, table string) *SQLStore {
	if table == "" {
		table = DefaultTable
	}
	return &SQLStore{db: db, table: table}
}

// CreateTable creates the sessions table and its user index if missing.
func (st *SQLStore) CreateTable(ctx context.Context) error {
	d := st.db.Dialect()
	table := d.QuoteIdent(st.table)
	index := "CREATE INDEX IF NOT EXISTS " + d.QuoteIdent(st.table+"_user_id_idx") + " ON " + table + " (user_id)"
	inline := ""
	if d.Name() == orm.MySQL.Name() {
		// no CREATE INDEX IF NOT EXISTS on MySQL
		inline, index = ",\n    INDEX (user_id)", ""
	}

	stmts := []string{`CREATE TABLE IF NOT EXISTS ` + table + ` (
    id VARCHAR(64) PRIMARY KEY,
    token VARCHAR(255) NOT NULL UNIQUE,
    user_id VARCHAR(64),
    payload TEXT NOT NULL,
    ip VARCHAR(64) NOT NULL,
    user_agent TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    last_active_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL` + inline + `
)`}
	if index != "" {
		stmts = append(stmts, index)
	}
	for _, stmt := range stmts {
		if _, err := st.db.Exec(ctx, orm.RawQuery(stmt)); err != nil {
			return errors.Join(ErrStoreFailed, err)
		}
	}
	return nil
}

func (st *SQLStore) Create(ctx context.Context, s *Session) error {
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	_, err = st.db.Exec(ctx, orm.Insert(st.table).Values(map[string]any{
		"id":             rec.ID,
		"token":          rec.Token,
		"user_id":        rec.UserID,
		"payload":        rec.Payload,
		"ip":             rec.IP,
		"user_agent":     rec.UserAgent,
		"created_at":     rec.CreatedAt,
		"last_active_at": rec.LastActiveAt,
		"expires_at":     rec.ExpiresAt,
	}))
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (st *SQLStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var rec sqlRecord
	err := st.db.Get(ctx, &rec, orm.Select(st.table).Where("token", "=", token))
	if errors.Is(err, orm.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	s, err := rec.session()
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		_ = st.Delete(ctx, s.ID)
		return nil, ErrExpired
	}
	return s, nil
}

func (st *SQLStore) Update(ctx context.Context, s *Session) error {
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	return st.affectOne(ctx, orm.Update(st.table).Values(map[string]any{
		"token":          rec.Token,
		"user_id":        rec.UserID,
		"payload":        rec.Payload,
		"ip":             rec.IP,
		"user_agent":     rec.UserAgent,
		"last_active_at": rec.LastActiveAt,
		"expires_at":     rec.ExpiresAt,
	}).Where("id", "=", rec.ID))
}

func (st *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := st.db.Exec(ctx, orm.Delete(st.table).Where("id", "=", id)); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (st *SQLStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := st.db.Exec(ctx, orm.Delete(st.table).Where("user_id", "=", userID)); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (st *SQLStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	return st.affectOne(ctx, orm.Update(st.table).
		Set("last_active_at", lastActiveAt.UTC()).
		Where("id", "=", id))
}

// Prune deletes expired sessions and reports how many were removed.
func (st *SQLStore) Prune(ctx context.Context) (int64, error) {
	res, err := st.db.Exec(ctx, orm.Delete(st.table).Where("expires_at", "<", time.Now().UTC()))
	if err != nil {
		return 0, errors.Join(ErrStoreFailed, err)
	}
	return res.RowsAffected()
}

func (st *SQLStore) affectOne(ctx context.Context, q orm.Query) error {
	res, err := st.db.Exec(ctx, q)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toRecord(s *Session) (sqlRecord, error) {
	payload, err := json.Marshal(s.Values)
	if err != nil {
		return sqlRecord{}, errors.Join(ErrStoreFailed, err)
	}
	rec := sqlRecord{
		ID:           s.ID,
		Token:        s.Token,
		Payload:      string(payload),
		IP:           s.IP,
		UserAgent:    s.UserAgent,
		CreatedAt:    s.CreatedAt.UTC(),
		LastActiveAt: s.LastActiveAt.UTC(),
		ExpiresAt:    s.ExpiresAt.UTC(),
	}
	if s.IsAuthenticated() {
		uid := *s.UserID
		rec.UserID = &uid
	}
	return rec, nil
}

func (rec sqlRecord) session() (*Session, error) {
	s := &Session{
		ID:           rec.ID,
		Token:        rec.Token,
		UserID:       rec.UserID,
		IP:           rec.IP,
		UserAgent:    rec.UserAgent,
		CreatedAt:    rec.CreatedAt,
		LastActiveAt: rec.LastActiveAt,
		ExpiresAt:    rec.ExpiresAt,
	}
	if err := json.Unmarshal([]byte(rec.Payload), &s.Values); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return s, nil
}

var _ Store = (*SQLStore)(nil)

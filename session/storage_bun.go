package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Record is a row of the session_states table
type Record struct {
	bun.BaseModel `bun:"table:session_states,alias:ss"`

	Namespace string    `bun:"namespace,pk"`
	Data      string    `bun:"data,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunStorage keeps session records in a database table
type BunStorage struct {
	db  bun.IDB
	now func() time.Time
}

// NewBunStorage returns a storage on db. Call CreateTable once before use.
func NewBunStorage(db bun.IDB) *BunStorage {
	return &BunStorage{db: db, now: time.Now}
}

// CreateTable creates session_states when missing
func (s *BunStorage) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create session_states")
	}
	return nil
}

func (s *BunStorage) Load(ctx context.Context, namespace string) ([]byte, error) {
	rec := new(Record)
	err := s.db.NewSelect().
		Model(rec).
		Where("?TableAlias.namespace = ?", namespace).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}
	return []byte(rec.Data), nil
}

func (s *BunStorage) Save(ctx context.Context, namespace string, data []byte) error {
	rec := &Record{
		Namespace: namespace,
		Data:      string(data),
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (namespace) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to save session")
	}
	return nil
}

func (s *BunStorage) Delete(ctx context.Context, namespace string) error {
	_, err := s.db.NewDelete().
		Model((*Record)(nil)).
		Where("namespace = ?", namespace).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}
	return nil
}

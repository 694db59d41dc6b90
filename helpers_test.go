package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	auth "github.com/goliatone/go-pharmacy-auth"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-signing-secret-0123456789abcdef"

// newTestDB opens an in-memory SQLite database with the auth schema.
// One connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenServiceImpl
	hasher   *auth.Hasher
	activity *recordingSink
	register *auth.RegisterUserHandler
	auther   *auth.Auther
}

func newFixture(t *testing.T, opts ...auth.RegisterUserOption) *fixture {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := newTestTokenService(t, testSecret)
	hasher := auth.NewHasher(bcrypt.MinCost)
	activity := &recordingSink{}

	registerOpts := append([]auth.RegisterUserOption{
		auth.WithRegisterHasher(hasher),
		auth.WithRegisterActivitySink(activity),
	}, opts...)

	provider := auth.NewUserProvider(repo.Users()).WithHasher(hasher)

	return &fixture{
		db:       db,
		repo:     repo,
		tokens:   tokens,
		hasher:   hasher,
		activity: activity,
		register: auth.NewRegisterUserHandler(repo, tokens, registerOpts...),
		auther:   auth.NewAuthenticator(provider, tokens).WithActivitySink(activity),
	}
}

func (f *fixture) mustRegister(t *testing.T, msg auth.RegisterUserMessage) *auth.AuthResult {
	t.Helper()
	res, err := f.register.Execute(context.Background(), msg)
	require.NoError(t, err)
	return res
}

func (f *fixture) countRows(t *testing.T, model any) int {
	t.Helper()
	n, err := f.db.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func janeDoe() auth.RegisterUserMessage {
	return auth.RegisterUserMessage{
		Name:     "Jane Doe",
		Email:    "jane@x.com",
		Password: "pw123456",
		Role:     "ADMIN",
		Mode:     "RETAIL",
	}
}

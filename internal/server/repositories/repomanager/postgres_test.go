package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bizdesk/internal/server/migrations"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/otps"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ RepositoryManager = m
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}

	if u := m.Users(db); u == nil {
		t.Fatal("Users() nil")
	}
	if rt := m.RefreshTokens(db); rt == nil {
		t.Fatal("RefreshTokens() nil")
	}
	if o := m.OTPs(db); o == nil {
		t.Fatal("OTPs() nil")
	}
	if d := m.Downloads(db); d == nil {
		t.Fatal("Downloads() nil")
	}

	var _ users.Repository = m.Users(db)
	var _ refreshtokens.Store = m.RefreshTokens(db)
	var _ otps.Repository = m.OTPs(db)
	var _ downloads.Repository = m.Downloads(db)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestEmbeddedMigrationsHaveGooseSections(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	if err != nil || len(names) == 0 {
		t.Fatalf("no embedded migrations: %v", err)
	}
	for _, n := range names {
		b, err := fs.ReadFile(migrations.Migrations, n)
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		if !strings.Contains(string(b), "-- +goose Up") || !strings.Contains(string(b), "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", n)
		}
	}
}

func TestOpen(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()

	t.Run("ping ok", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing()
		sqlOpen = func(driver, dsn string) (*sql.DB, error) {
			if driver != "pgx" || dsn != "postgres://x" {
				t.Fatalf("unexpected open(%q, %q)", driver, dsn)
			}
			return db, nil
		}

		got, err := Open(context.Background(), "postgres://x")
		if err != nil {
			t.Fatalf("Open error: %v", err)
		}
		_ = got.Close()
	})

	t.Run("ping fails", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing().WillReturnError(errors.New("refused"))
		sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }

		if _, err := Open(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "refused") {
			t.Fatalf("expected ping error, got %v", err)
		}
	})
}

//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_rms/internal/domain"
	mysqlrepo "hotel_rms/internal/storage/mysql"
)

// ---------- small helpers ----------
func pfloat(f float64) *float64 { return &f }

// migrationsDir honours MIGRATIONS_DIR, else the repo's migrations folder.
func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=rms",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "rms")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_UpsertAndListHistory(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	es := []domain.PriceHistoryEntry{
		{CheckinDate: "2025-09-01", Price: pfloat(120), OccupancyLevel: "high", Overwrite: true},
		{CheckinDate: "2025-09-02", Price: nil, OccupancyLevel: "low"},
		{CheckinDate: "2025-10-01", Price: pfloat(99.5)},
	}
	if err := repo.UpsertPriceHistory(ctx, "p-1", domain.HistoryRegular, es); err != nil {
		t.Fatalf("UpsertPriceHistory: %v", err)
	}
	// second write for the same day replaces the row
	if err := repo.UpsertPriceHistory(ctx, "p-1", domain.HistoryRegular, []domain.PriceHistoryEntry{
		{CheckinDate: "2025-09-01", Price: pfloat(135), OccupancyLevel: "medium"},
	}); err != nil {
		t.Fatalf("UpsertPriceHistory again: %v", err)
	}
	if err := repo.UpsertPriceHistory(ctx, "p-1", domain.HistoryMSP, []domain.PriceHistoryEntry{
		{CheckinDate: "2025-09-01", Price: pfloat(80)},
	}); err != nil {
		t.Fatalf("UpsertPriceHistory msp: %v", err)
	}

	got, err := repo.ListPriceHistory(ctx, "p-1", domain.HistoryRegular, 2025, 8)
	if err != nil {
		t.Fatalf("ListPriceHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 September rows, got %+v", got)
	}
	if got[0].CheckinDate != "2025-09-01" || got[0].Price == nil || *got[0].Price != 135 || got[0].Overwrite || got[0].OccupancyLevel != "medium" {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].Price != nil || got[1].OccupancyLevel != "low" {
		t.Fatalf("unexpected second row: %+v", got[1])
	}

	msp, err := repo.ListPriceHistory(ctx, "p-1", domain.HistoryMSP, 2025, 8)
	if err != nil {
		t.Fatalf("ListPriceHistory msp: %v", err)
	}
	if len(msp) != 1 || *msp[0].Price != 80 {
		t.Fatalf("unexpected msp rows: %+v", msp)
	}

	if err := repo.LogMiss(ctx, "p-1", 404, "msp:2025-11"); err != nil {
		t.Fatalf("LogMiss: %v", err)
	}
	if err := repo.LogMiss(ctx, "p-1", 403, "msp:2025-11"); err != nil {
		t.Fatalf("LogMiss repeat: %v", err)
	}
}

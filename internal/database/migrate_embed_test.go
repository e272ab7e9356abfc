package database

import (
	"io/fs"
	"strings"
	"testing"
)

// 埋め込みマイグレーションがup/downのペアで揃っていることを検証する。
func TestMigrationsFS_UpDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	if len(ups) != 2 {
		t.Errorf("up migrations = %d, want 2", len(ups))
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("missing down migration for %s", base)
		}
	}
}

// predictionsテーブルがusersへの外部キーを持つことをSQL定義から検証する。
func TestMigrationsFS_PredictionsReferenceUsers(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000002_create_predictions.up.sql")
	if err != nil {
		t.Fatalf("failed to read migration: %v", err)
	}
	if !strings.Contains(string(data), "REFERENCES users(id)") {
		t.Error("predictions.user_id should reference users(id)")
	}
}

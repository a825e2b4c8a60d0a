package migrations

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
)

func TestMigrationsArePairedAndSequential(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down script", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %s has no up script", base)
		}
	}

	versions := make([]string, 0, len(ups))
	for base := range ups {
		versions = append(versions, strings.SplitN(base, "_", 2)[0])
	}
	sort.Strings(versions)
	for i, version := range versions {
		if want := fmt.Sprintf("%04d", i+1); version != want {
			t.Errorf("migration version %s, want %s", version, want)
		}
	}
}

func TestMigrationsCreateStoreTables(t *testing.T) {
	tables := []string{
		"bridge_configs",
		"chain_settings",
		"fee_exemptions",
		"bridge_usage",
		"chain_usage",
		"asset_balances",
		"canonical_balances",
		"canonical_supply",
		"canonical_minters",
		"swap_receipts",
		"gateway_receipts",
		"governance_audit",
	}

	var all strings.Builder
	err := fs.WalkDir(files, "sql", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		data, err := fs.ReadFile(files, path)
		if err != nil {
			return err
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			t.Errorf("migration %s is empty", path)
		}
		all.Write(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk embedded migrations: %v", err)
	}

	for _, table := range tables {
		if !strings.Contains(all.String(), "CREATE TABLE "+table) {
			t.Errorf("no migration creates table %s", table)
		}
	}
}

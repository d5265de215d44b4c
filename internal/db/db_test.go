package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/mockinterview/internal/db"
)

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}
	if err := d.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow_QueryRows(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);`); err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	for _, name := range []string{"foo", "bar"} {
		if _, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, name); err != nil {
			t.Fatalf("Exec insert returned error: %v", err)
		}
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, 1).Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}

	rows, err := d.QueryRows(ctx, `SELECT name FROM items ORDER BY id`)
	if err != nil {
		t.Fatalf("QueryRows returned error: %v", err)
	}
	var got []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, n)
	}
	rows.Close()
	if len(got) != 2 || got[1] != "bar" {
		t.Fatalf("unexpected rows: %v", got)
	}
}

func TestBackupTo(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := dbpkg.New(ctx, filepath.Join(dir, "src.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(ctx, `CREATE TABLE t (v TEXT); INSERT INTO t (v) VALUES ('kept');`); err != nil {
		t.Fatalf("exec: %v", err)
	}

	dst := filepath.Join(dir, "backup.db")
	if err := d.BackupTo(ctx, dst); err != nil {
		t.Fatalf("BackupTo: %v", err)
	}

	b, err := dbpkg.New(ctx, dst)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer b.Close()

	var v string
	if err := b.QueryRow(ctx, `SELECT v FROM t`).Scan(&v); err != nil || v != "kept" {
		t.Fatalf("backup content mismatch: %q err=%v", v, err)
	}
}

func TestNew_BadPath(t *testing.T) {
	ctx := context.Background()
	if _, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "missing", "dir", "x.db")); err == nil {
		t.Fatalf("expected error for unreachable path, got nil")
	}
}

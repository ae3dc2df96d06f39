package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nao1215/cmsfreq/internal/database"
)

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"limit": "l",
		"json":  "j",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
	if cmd.Flags().Lookup("db-dir") == nil {
		t.Error("expected flag db-dir to exist")
	}
}

func TestHistoryCmdEmptyDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	cmd := NewHistoryCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Flags().Set("db-dir", dir); err != nil {
		t.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No recorded runs.") {
		t.Errorf("output = %q, want the empty-database message", buf.String())
	}
}

func TestHistoryCmdMissingDatabase(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Flags().Set("db-dir", t.TempDir()); err != nil {
		t.Fatal(err)
	}

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() with no database = nil error")
	}
	if !strings.Contains(err.Error(), "failed to open history database") {
		t.Errorf("error = %v, want the open failure", err)
	}
}

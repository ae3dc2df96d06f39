package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	if cmd.Use != "cmsfreq" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	// Verify all subcommands are registered
	want := map[string]bool{
		"analyze": false,
		"history": false,
		"version": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}

	// Verbose is a persistent flag shared by every subcommand
	f := cmd.PersistentFlags().Lookup("verbose")
	if f == nil {
		t.Fatal("expected persistent flag verbose to exist")
	}
	if f.Shorthand != "v" {
		t.Errorf("verbose shorthand: got %q, want v", f.Shorthand)
	}
}

func TestRootCmdHelp(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "analyze") || !strings.Contains(out, "history") {
		t.Errorf("help output missing subcommands: %q", out)
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "cmsfreq ") {
		t.Errorf("output = %q, want the cmsfreq version line", out)
	}
	if !strings.Contains(out, "commit ") || !strings.Contains(out, "built ") {
		t.Errorf("output missing commit/build details: %q", out)
	}
}

func TestResolveBuildDetails(t *testing.T) {
	t.Parallel()

	d := resolveBuildDetails()
	if d.version == "" || d.commit == "" || d.date == "" {
		t.Errorf("resolveBuildDetails() left a field blank: %+v", d)
	}
	if got := getVersion(); got != d.version {
		t.Errorf("getVersion() = %q, want %q", got, d.version)
	}
}

func TestShortRevision(t *testing.T) {
	t.Parallel()

	if got := shortRevision("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortRevision() = %q, want 0123456", got)
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Errorf("shortRevision() = %q, want the value unchanged", got)
	}
}

func TestBuildDetailsWithDefaults(t *testing.T) {
	t.Parallel()

	d := buildDetails{}.withDefaults()
	if d.version != "(devel)" || d.commit != "unknown" || d.date != "unknown" {
		t.Errorf("withDefaults() = %+v", d)
	}

	set := buildDetails{version: "v1.0.0", commit: "abc1234", date: "2024-01-01"}.withDefaults()
	if set.version != "v1.0.0" || set.commit != "abc1234" || set.date != "2024-01-01" {
		t.Errorf("withDefaults() overwrote set fields: %+v", set)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/cmsfreq/internal/model"
)

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("full file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `filtered_headers:
  - x-request-id
  - x-trace-id
vendor_signatures:
  - pattern: x-acme-cache
    vendor: Acme CDN
    category: infrastructure
    role: cdn
    kind: prefix
  - pattern: x-acme-node
    vendor: Acme CDN
    category: infrastructure
    role: cdn
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() unexpected error: %v", err)
		}
		if len(cf.FilteredHeaders) != 2 || cf.FilteredHeaders[0] != "x-request-id" {
			t.Errorf("FilteredHeaders = %v", cf.FilteredHeaders)
		}
		if len(cf.VendorSignatures) != 2 {
			t.Fatalf("VendorSignatures = %v, want 2 entries", cf.VendorSignatures)
		}

		sigs := cf.Signatures()
		if len(sigs) != 2 {
			t.Fatalf("Signatures() returned %d rows, want 2", len(sigs))
		}
		if sigs[0].Kind != model.MatchPrefix {
			t.Errorf("first Kind = %q, want prefix", sigs[0].Kind)
		}
		// Empty kind falls back to exact matching.
		if sigs[1].Kind != model.MatchExact {
			t.Errorf("second Kind = %q, want exact default", sigs[1].Kind)
		}
		if sigs[0].Vendor != "Acme CDN" || sigs[0].Category != model.CategoryInfrastructure {
			t.Errorf("first signature = %+v", sigs[0])
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("filtered_headers: {broken"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() with malformed YAML = nil error")
		}
	})
}

func TestFileSignaturesSkipsIncomplete(t *testing.T) {
	t.Parallel()

	cf := &File{VendorSignatures: []SignatureEntry{
		{Pattern: "", Vendor: "Nameless"},
		{Pattern: "x-orphan", Vendor: ""},
		{Pattern: "x-kept", Vendor: "Kept", Kind: "substring"},
	}}

	sigs := cf.Signatures()
	if len(sigs) != 1 {
		t.Fatalf("Signatures() returned %d rows, want 1", len(sigs))
	}
	if sigs[0].Pattern != "x-kept" || sigs[0].Kind != model.MatchSubstring {
		t.Errorf("kept signature = %+v", sigs[0])
	}

	var nilFile *File
	if got := nilFile.Signatures(); got != nil {
		t.Errorf("nil File Signatures() = %v, want nil", got)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yml")
		if err := os.WriteFile(path, []byte("filtered_headers: []\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile(%q) = %q", path, got)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty for a missing explicit path", got)
		}
	})
}

package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".cmsfreq"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File holds settings loaded from the .cmsfreq YAML file.
type File struct {
	// FilteredHeaders lists header names added to the semantic filter,
	// on top of the built-in uninformative set.
	FilteredHeaders []string `yaml:"filtered_headers"`

	// VendorSignatures lists vendor signature rows appended to the
	// built-in table.
	VendorSignatures []SignatureEntry `yaml:"vendor_signatures"`
}

// SignatureEntry is one user-configured vendor signature.
type SignatureEntry struct {
	// Pattern is the lowercase header-name pattern.
	Pattern string `yaml:"pattern"`

	// Vendor is the technology or vendor label.
	Vendor string `yaml:"vendor"`

	// Category is the semantic category: security, custom,
	// infrastructure, platform, or generic.
	Category string `yaml:"category"`

	// Role positions the vendor in the stack: cms, cdn, framework,
	// analytics, hosting, or security.
	Role string `yaml:"role"`

	// Kind is the match kind: exact, prefix, or substring.
	// Defaults to exact when empty.
	Kind string `yaml:"kind"`
}

// Signatures converts the file entries into analyzer signature rows.
// Entries with an empty pattern or vendor are skipped.
func (f *File) Signatures() []analyzer.Signature {
	if f == nil {
		return nil
	}
	out := make([]analyzer.Signature, 0, len(f.VendorSignatures))
	for _, entry := range f.VendorSignatures {
		if entry.Pattern == "" || entry.Vendor == "" {
			continue
		}
		kind := model.ParseMatchKind(entry.Kind)
		if !kind.IsValid() {
			kind = model.MatchExact
		}
		out = append(out, analyzer.Signature{
			Pattern:  entry.Pattern,
			Vendor:   entry.Vendor,
			Category: model.ParseHeaderCategory(entry.Category),
			Role:     analyzer.StackRole(entry.Role),
			Kind:     kind,
		})
	}
	return out
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers
// decide how to handle that based on whether the path was explicitly
// specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .cmsfreq in the current directory
//  3. Look for .cmsfreq in the user's home directory
//  4. Look for .cmsfreq in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string
// if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

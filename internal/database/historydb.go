package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// ErrNoRuns is returned when the history holds no recorded runs.
var ErrNoRuns = errors.New("database: no recorded runs")

// dbFileName is the history database file name inside the data directory.
const dbFileName = "cmsfreq.db"

// HistoryDB provides SQLite-based storage for analysis run history.
// A single database file holds every run, which keeps cross-run queries
// and backup trivial.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// RunRecord is one stored analysis run.
type RunRecord struct {
	// ID is the auto-incremented row ID.
	ID int64 `json:"id"`

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at"`

	// Strategy names the orchestration strategy used.
	Strategy string `json:"strategy"`

	// TotalSites is the corpus size of the run.
	TotalSites int `json:"total_sites"`

	// HeaderPatterns is the number of header patterns kept.
	HeaderPatterns int `json:"header_patterns"`

	// ConcentrationScore is the CMS-distribution Herfindahl index.
	ConcentrationScore float64 `json:"concentration_score"`

	// QualityScore is the validation quality score.
	QualityScore float64 `json:"quality_score"`

	// TopHeaders holds the run's top header patterns as recorded.
	TopHeaders []model.PatternSummary `json:"top_headers,omitempty"`
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error
// is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at DATETIME NOT NULL,
		strategy TEXT NOT NULL,
		total_sites INTEGER NOT NULL,
		header_patterns INTEGER NOT NULL,
		concentration_score REAL NOT NULL,
		quality_score REAL NOT NULL,
		top_headers TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
	`
	if _, err := hdb.db.ExecContext(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveRun records one completed analysis run.
func (hdb *HistoryDB) SaveRun(ctx context.Context, results *model.AggregatedResults) (int64, error) {
	record := recordFromResults(results)

	topHeaders, err := json.Marshal(record.TopHeaders)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal top headers: %w", err)
	}

	res, err := hdb.db.ExecContext(ctx, `
		INSERT INTO runs
			(generated_at, strategy, total_sites, header_patterns, concentration_score, quality_score, top_headers)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.GeneratedAt.UTC().Format(time.RFC3339Nano),
		record.Strategy,
		record.TotalSites,
		record.HeaderPatterns,
		record.ConcentrationScore,
		record.QualityScore,
		string(topHeaders),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert ID: %w", err)
	}
	return id, nil
}

// recordFromResults extracts the headline statistics of a run.
func recordFromResults(results *model.AggregatedResults) RunRecord {
	record := RunRecord{
		GeneratedAt: results.GeneratedAt,
		Strategy:    results.Strategy.String(),
		TotalSites:  results.TotalSites,
	}
	if headers := results.Result(analyzer.StageHeader); headers != nil {
		record.HeaderPatterns = len(headers.Patterns)
	}
	if bias := analyzer.BiasFrom(results.Result(analyzer.StageBias)); bias != nil {
		record.ConcentrationScore = bias.ConcentrationScore
	}
	if validation := analyzer.ValidationFrom(results.Result(analyzer.StageValidation)); validation != nil {
		record.QualityScore = validation.QualityScore
	}
	if results.Summary != nil {
		record.TopHeaders = results.Summary.TopHeaders
	}
	return record
}

// ListRuns returns up to limit stored runs, newest first.
// A non-positive limit returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, generated_at, strategy, total_sites, header_patterns, concentration_score, quality_score, top_headers
		FROM runs
		ORDER BY generated_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// LatestRun returns the most recent run, ErrNoRuns when none exists.
func (hdb *HistoryDB) LatestRun(ctx context.Context) (*RunRecord, error) {
	records, err := hdb.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRuns
	}
	return &records[0], nil
}

// scanRun reads one run row.
func scanRun(rows *sql.Rows) (RunRecord, error) {
	var (
		record      RunRecord
		generatedAt string
		topHeaders  sql.NullString
	)
	if err := rows.Scan(
		&record.ID,
		&generatedAt,
		&record.Strategy,
		&record.TotalSites,
		&record.HeaderPatterns,
		&record.ConcentrationScore,
		&record.QualityScore,
		&topHeaders,
	); err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, generatedAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to parse run timestamp: %w", err)
	}
	record.GeneratedAt = parsed

	if topHeaders.Valid && topHeaders.String != "" {
		if err := json.Unmarshal([]byte(topHeaders.String), &record.TopHeaders); err != nil {
			return RunRecord{}, fmt.Errorf("failed to unmarshal top headers: %w", err)
		}
	}
	return record, nil
}

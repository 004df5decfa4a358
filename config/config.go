// Package config loads project_settings.json, the settings file shared by
// the importer and the query tools.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the settings file read when no path is given.
const DefaultPath = "project_settings.json"

// Config holds all settings. Values come from the JSON file; environment
// variables override them.
type Config struct {
	Database    DatabaseConfig    `json:"database"`
	Importer    ImporterConfig    `json:"importer"`
	QueryRunner QueryRunnerConfig `json:"query_runner"`
	Schema      SchemaConfig      `json:"schema"`
	Logging     LoggingConfig     `json:"logging"`
}

// DatabaseConfig locates the output database.
type DatabaseConfig struct {
	OutputDBFile string `json:"output_db_file" env:"RSDB_OUTPUT_DB_FILE"`
}

// ImporterConfig configures the archive import.
type ImporterConfig struct {
	ZipFolder        string      `json:"zip_folder" env:"RSDB_ZIP_FOLDER"`
	TablePrefix      string      `json:"table_prefix" env:"RSDB_TABLE_PREFIX" env-default:"tbl_"`
	IndexTable       string      `json:"index_table" env:"RSDB_INDEX_TABLE" env-default:"table_index"`
	PrimaryEncoding  string      `json:"primary_encoding" env:"RSDB_PRIMARY_ENCODING" env-default:"utf-8"`
	FallbackEncoding string      `json:"fallback_encoding" env:"RSDB_FALLBACK_ENCODING" env-default:"shift_jis"`
	Split            SplitConfig `json:"split"`
}

// SplitConfig configures the summary/details split of one archive.
type SplitConfig struct {
	// Disabled turns splitting off. A zero value keeps the default rule.
	Disabled          bool   `json:"disabled" env:"RSDB_SPLIT_DISABLED"`
	Archive           string `json:"archive" env:"RSDB_SPLIT_ARCHIVE" env-default:"5-1_RS_2024_支出先_支出情報.zip"`
	AmountColumn      string `json:"amount_column" env:"RSDB_SPLIT_AMOUNT_COLUMN" env-default:"金額"`
	SummaryViewSuffix string `json:"summary_view_suffix" env:"RSDB_SPLIT_SUMMARY_VIEW_SUFFIX" env-default:"サマリー"`
	DetailsViewSuffix string `json:"details_view_suffix" env:"RSDB_SPLIT_DETAILS_VIEW_SUFFIX" env-default:"明細"`
}

// QueryRunnerConfig configures the query subcommand.
type QueryRunnerConfig struct {
	ResultsFolder         string `json:"results_folder" env:"RSDB_RESULTS_FOLDER" env-default:"results"`
	DefaultQueryFile      string `json:"default_query_file" env:"RSDB_DEFAULT_QUERY_FILE" env-default:"query.sql"`
	DefaultOutputFilename string `json:"default_output_filename" env:"RSDB_DEFAULT_OUTPUT_FILENAME" env-default:"result.csv"`
	QueryDirectory        string `json:"query_directory" env:"RSDB_QUERY_DIRECTORY" env-default:"sql"`
}

// SchemaConfig configures schema export.
type SchemaConfig struct {
	// OutputBase is the path without extension; .json, .yaml and .csv are appended
	OutputBase string `json:"output_base" env:"RSDB_SCHEMA_OUTPUT_BASE" env-default:"schema"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `json:"level" env:"RSDB_LOG_LEVEL" env-default:"info"`
	Format string `json:"format" env:"RSDB_LOG_FORMAT" env-default:"console"`
}

// Load reads the settings file at path with environment variable overrides
// and validates the result. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrMissingKey indicates a required setting is empty
var ErrMissingKey = errors.New("missing required setting")

// Validate checks the required keys and reports every missing one at once.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"database.output_db_file", c.Database.OutputDBFile},
		{"importer.zip_folder", c.Importer.ZipFolder},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// SchemaPath returns the schema output path for an extension such as ".json".
func (c *Config) SchemaPath(ext string) string {
	return c.Schema.OutputBase + ext
}

// ResultPath returns the path a query result is written to. An empty name
// selects the default output file name.
func (c *Config) ResultPath(name string) string {
	if name == "" {
		name = c.QueryRunner.DefaultOutputFilename
	}
	return filepath.Join(c.QueryRunner.ResultsFolder, name)
}

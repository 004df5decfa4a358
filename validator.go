package rsdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validator handles validation logic for ImporterBuilder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validateSourceDir checks that the archive folder exists and is a directory
func (v *validator) validateSourceDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("source folder cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source folder does not exist: %s", path)
		}
		return fmt.Errorf("failed to stat source folder %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", path)
	}
	return nil
}

// validateOutputFile checks the database path. The file itself may be
// missing; an existing directory at that path is rejected.
func (v *validator) validateOutputFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("output database file cannot be empty")
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("output path exists but is a directory: %s", path)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check output file: %w", err)
	}

	if parent := filepath.Dir(path); parent != "" {
		if info, err := os.Stat(parent); err == nil && !info.IsDir() {
			return fmt.Errorf("output parent exists but is not a directory: %s", parent)
		}
	}
	return nil
}

// validateTablePrefix checks that every table name built from the prefix can
// be a valid identifier.
func (v *validator) validateTablePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if _, err := NewTableName(prefix + "x"); err != nil {
		return fmt.Errorf("invalid table prefix %q: %w", prefix, err)
	}
	return nil
}

// validateSplitRule checks that an enabled split rule is complete
func (v *validator) validateSplitRule(rule SplitRule) error {
	if rule.Archive == "" {
		return nil
	}
	if rule.AmountColumn == "" {
		return errors.New("split rule requires an amount column")
	}
	if rule.SummaryViewSuffix == "" || rule.DetailsViewSuffix == "" {
		return errors.New("split rule requires summary and details view suffixes")
	}
	if rule.SummaryViewSuffix == rule.DetailsViewSuffix {
		return fmt.Errorf("split view suffixes must differ: %q", rule.SummaryViewSuffix)
	}
	return nil
}

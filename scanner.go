package rsdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// extZIP is the archive extension
const extZIP = ".zip"

// scanArchives lists the zip archives directly inside dir, sorted by name.
// Subdirectories are not searched.
func scanArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder %s: %w", dir, err)
	}

	archives := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isArchive(e.Name()) {
			continue
		}
		archives = append(archives, filepath.Join(dir, e.Name()))
	}
	if len(archives) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoArchives, dir)
	}

	sort.Strings(archives)
	return archives, nil
}

// isArchive reports whether the file name has a .zip extension (any case).
func isArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), extZIP)
}

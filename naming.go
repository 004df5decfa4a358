package rsdb

import (
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// nameDelimiter separates segments of an archive file name
	nameDelimiter = "_"
	// descriptionStart is the index of the first description segment.
	// Segments 1 and 2 hold the system name and fiscal year.
	descriptionStart = 3
	// emptyViewPrefix names views of archives without description segments
	emptyViewPrefix = "view_"
	// DefaultTablePrefix is prepended to every derived table name
	DefaultTablePrefix = "tbl_"
)

// derivedNames holds the names computed from one archive file name.
type derivedNames struct {
	// table is the canonical table name, e.g. "tbl_1_1"
	table string
	// suffix is the table name without prefix, e.g. "1_1"
	suffix string
	// viewCandidate is the raw view name before collision handling
	viewCandidate string
}

// deriveNames splits the archive file name (extension removed) on "_".
// The first segment, with "-" replaced by "_", becomes the table suffix.
// Segments from the fourth onward, joined by "_", become the view candidate.
//
//	"1-1_RS_2024_基本情報_組織情報.zip" -> table "tbl_1_1", view "基本情報_組織情報"
func deriveNames(prefix, fileName string) derivedNames {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	segments := strings.Split(base, nameDelimiter)
	suffix := strings.ReplaceAll(segments[0], "-", nameDelimiter)

	var candidate string
	if len(segments) > descriptionStart {
		candidate = strings.Join(segments[descriptionStart:], nameDelimiter)
	}
	if candidate == "" {
		candidate = emptyViewPrefix + suffix
	}

	return derivedNames{
		table:         prefix + suffix,
		suffix:        suffix,
		viewCandidate: candidate,
	}
}

// viewNameRegistry hands out unique view names within one import run.
type viewNameRegistry struct {
	seen map[string]struct{}
	// reserved holds names that are taken by tables
	reserved map[string]struct{}
}

func newViewNameRegistry() *viewNameRegistry {
	return &viewNameRegistry{
		seen:     make(map[string]struct{}),
		reserved: make(map[string]struct{}),
	}
}

// reserve marks a table name so that no view can take it.
func (r *viewNameRegistry) reserve(name string) {
	r.reserved[name] = struct{}{}
}

func (r *viewNameRegistry) taken(name string) bool {
	if _, ok := r.seen[name]; ok {
		return true
	}
	_, ok := r.reserved[name]
	return ok
}

// resolve returns candidate, or candidate_2, candidate_3, ... for the first
// name not yet handed out, and records it.
func (r *viewNameRegistry) resolve(candidate string) string {
	name := candidate
	for n := 2; r.taken(name); n++ {
		name = candidate + nameDelimiter + strconv.Itoa(n)
	}
	r.seen[name] = struct{}{}
	return name
}

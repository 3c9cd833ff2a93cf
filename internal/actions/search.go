package actions

import (
	"fmt"
	"regexp"
	"strings"

	"nbclient/internal/notebook"
)

// SearchQuery describes one find operation over the cell collection.
// Matching is case-insensitive substring by default; regex and whole-word
// bounding are opt-in.
type SearchQuery struct {
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive"`
	WholeWord     bool   `json:"whole_word"`
	Regex         bool   `json:"regex"`
}

// ReplaceQuery extends SearchQuery with the replacement text.
type ReplaceQuery struct {
	SearchQuery
	Replacement string `json:"replacement"`
}

// SearchMatch locates one occurrence. Line is 1-based within the cell's
// source; Column is the 0-based byte offset within the line.
type SearchMatch struct {
	CellID   string `json:"cell_id"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	LineText string `json:"line_text"`
	Match    string `json:"match"`
}

// buildPattern compiles the query into a regexp, escaping metacharacters
// unless regex matching was requested.
func buildPattern(q SearchQuery) (*regexp.Regexp, error) {
	pattern := q.Query
	if !q.Regex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if q.WholeWord {
		pattern = `\b` + pattern + `\b`
	}
	if !q.CaseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", q.Query, err)
	}
	return re, nil
}

// findInCells is the manual fallback search used when the host supplies no
// search callback: per line, per cell, over the full collection.
func findInCells(cells []notebook.Cell, q SearchQuery) ([]SearchMatch, error) {
	re, err := buildPattern(q)
	if err != nil {
		return nil, err
	}

	var matches []SearchMatch
	for _, cell := range cells {
		lines := strings.Split(cell.Source, "\n")
		for lineNo, line := range lines {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				matches = append(matches, SearchMatch{
					CellID:   cell.ID,
					Line:     lineNo + 1,
					Column:   loc[0],
					LineText: line,
					Match:    line[loc[0]:loc[1]],
				})
			}
		}
	}
	return matches, nil
}

// replaceInCells applies the replacement cell by cell through edit, so the
// host observes each mutation as a normal cell edit. Returns the number of
// occurrences replaced.
func replaceInCells(cells []notebook.Cell, q ReplaceQuery, edit func(cellID, source string) error) (int, error) {
	re, err := buildPattern(q.SearchQuery)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, cell := range cells {
		count := len(re.FindAllStringIndex(cell.Source, -1))
		if count == 0 {
			continue
		}
		replaced := re.ReplaceAllString(cell.Source, q.Replacement)
		if err := edit(cell.ID, replaced); err != nil {
			return total, fmt.Errorf("edit cell %s: %w", cell.ID, err)
		}
		total += count
	}
	return total, nil
}

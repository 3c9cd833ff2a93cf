package actions

import (
	"math"
	"strconv"
)

// paramAliases is the central alias table for action parameters. AI models
// are not consistent about parameter naming, so every canonical name lists
// the spellings accepted for it. Keeping the table in one place keeps the
// tolerance auditable.
var paramAliases = map[string][]string{
	"cell_id":        {"cell_id", "cellId", "id"},
	"cell_ids":       {"cell_ids", "cellIds", "ids", "cells"},
	"code":           {"code", "source", "content", "text"},
	"cell_type":      {"cell_type", "cellType", "type"},
	"position":       {"position", "index", "pos"},
	"direction":      {"direction", "dir"},
	"parts":          {"parts", "sources", "segments"},
	"split_at":       {"split_at", "splitAt", "lines", "line_numbers"},
	"query":          {"query", "q", "search", "find", "pattern"},
	"replacement":    {"replacement", "replace", "replace_with", "replaceWith", "new_text"},
	"case_sensitive": {"case_sensitive", "caseSensitive"},
	"whole_word":     {"whole_word", "wholeWord"},
	"regex":          {"regex", "use_regex", "useRegex", "is_regex"},
	"view":           {"view", "panel", "target"},
	"name":           {"name", "title", "new_name", "newName"},
	"path":           {"path", "file_path", "filePath", "filename", "file"},
	"file_content":   {"file_content", "fileContent", "content", "text", "data", "source"},
	"package":        {"package", "package_name", "packageName", "name"},
	"container_id":   {"container_id", "containerId", "id", "name"},
	"tail":           {"tail", "lines", "limit"},
}

// lookupParam returns the first value present under any accepted alias of
// the canonical name.
func lookupParam(params map[string]any, canonical string) (any, bool) {
	aliases, ok := paramAliases[canonical]
	if !ok {
		aliases = []string{canonical}
	}
	for _, alias := range aliases {
		if v, ok := params[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringParam extracts a non-empty string parameter under any alias.
func stringParam(params map[string]any, canonical string) (string, bool) {
	v, ok := lookupParam(params, canonical)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// boolParam extracts a boolean parameter, tolerating string forms.
func boolParam(params map[string]any, canonical string) (value, present bool) {
	v, ok := lookupParam(params, canonical)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// intParam extracts an integer parameter. JSON numbers arrive as float64;
// string digits are also tolerated.
func intParam(params map[string]any, canonical string) (int, bool) {
	v, ok := lookupParam(params, canonical)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// stringListParam extracts a list of strings under any alias. A JSON array
// decodes as []any; a pre-built []string is accepted too.
func stringListParam(params map[string]any, canonical string) ([]string, bool) {
	v, ok := lookupParam(params, canonical)
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, len(list) > 0
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// intListParam extracts a list of integers under any alias.
func intListParam(params map[string]any, canonical string) ([]int, bool) {
	v, ok := lookupParam(params, canonical)
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []int:
		return list, len(list) > 0
	case []any:
		out := make([]int, 0, len(list))
		for _, item := range list {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/validation"
)

// SkipField marks a column that should not be imported.
const SkipField = "skip"

// Row is one source record keyed by column name. Values are strings or
// numbers as the source produced them.
type Row map[string]any

// Mapping assigns source columns to transaction fields.
type Mapping map[string]string

// ParseMapping parses "Column=field" pairs. Field names must be transaction
// fields or "skip".
func ParseMapping(pairs []string) (Mapping, error) {
	m := make(Mapping, len(pairs))
	for _, pair := range pairs {
		column, field, ok := strings.Cut(pair, "=")
		column = strings.TrimSpace(column)
		field = strings.TrimSpace(field)
		if !ok || column == "" || field == "" {
			return nil, fmt.Errorf("invalid mapping %q: expected Column=field", pair)
		}
		if !strings.EqualFold(field, SkipField) && !validation.IsField(field) {
			return nil, fmt.Errorf("invalid mapping %q: unknown field %q (valid: %s)",
				pair, field, strings.Join(validation.Fields, ", "))
		}
		if strings.EqualFold(field, SkipField) {
			field = SkipField
		}
		m[column] = field
	}
	return m, nil
}

// SuggestMapping maps columns whose names match a transaction field,
// ignoring case, spaces, dashes and underscores.
func SuggestMapping(columns []string) Mapping {
	byKey := make(map[string]string, len(validation.Fields))
	for _, f := range validation.Fields {
		byKey[normalizeColumn(f)] = f
	}

	m := make(Mapping)
	for _, c := range columns {
		if f, ok := byKey[normalizeColumn(c)]; ok {
			m[c] = f
		}
	}
	return m
}

// Merge returns a copy of m with the entries of override applied on top.
func (m Mapping) Merge(override Mapping) Mapping {
	out := make(Mapping, len(m)+len(override))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// String renders the mapping sorted by column.
func (m Mapping) String() string {
	columns := make([]string, 0, len(m))
	for c := range m {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + "=" + m[c]
	}
	return strings.Join(parts, ", ")
}

// apply converts a row into a raw record. Columns are applied in source
// order, then any remaining mapped columns sorted by name; when two columns
// target the same field the later one wins. Skipped, unmapped and empty
// columns are ignored; defaults fill fields no column populated.
func (m Mapping) apply(row Row, columns []string, defaults validation.RawRecord) validation.RawRecord {
	raw := make(validation.RawRecord, len(m)+len(defaults))
	for _, column := range m.order(columns) {
		field := m[column]
		if field == SkipField {
			continue
		}
		v, ok := row[column]
		if !ok || isBlank(v) {
			continue
		}
		raw[field] = v
	}
	for field, v := range defaults {
		if _, ok := raw[field]; !ok {
			raw[field] = v
		}
	}
	return raw
}

// order lists the mapped columns: those in columns first, in that order,
// followed by the rest sorted by name.
func (m Mapping) order(columns []string) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, c := range columns {
		if _, ok := m[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	rest := make([]string, 0, len(m)-len(out))
	for c := range m {
		if _, ok := seen[c]; !ok {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func normalizeColumn(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

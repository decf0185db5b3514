package csvload

import "strings"

// Prefixes maps a system column (~id, ~from or ~to) to a prefix.
type Prefixes map[string]string

// ParsePrefixes parses "column=prefix" pairs such as "~id=person".
func ParsePrefixes(pairs []string) (Prefixes, error) {
	p := make(Prefixes, len(pairs))
	for _, pair := range pairs {
		col, prefix, ok := strings.Cut(pair, "=")
		col = strings.TrimSpace(col)
		switch {
		case !ok || prefix == "":
			return nil, errInvalidPrefix(pair)
		case col != ColumnID && col != ColumnFrom && col != ColumnTo:
			return nil, errInvalidPrefix(pair)
		}
		p[col] = prefix
	}
	return p, nil
}

// PrefixColumns rewrites the id columns of rec as "prefix-value", so that
// ids from different source tables cannot collide.
func PrefixColumns(rec *Record, prefixes Prefixes) {
	apply := func(col string, v *string) {
		if prefix, ok := prefixes[col]; ok && *v != "" {
			*v = prefix + "-" + *v
		}
	}
	apply(ColumnID, &rec.ID)
	apply(ColumnFrom, &rec.From)
	apply(ColumnTo, &rec.To)
}

package classify

import "strings"

// systemSchemas are catalog/metadata schemas that must never be scanned.
// Classifying structural metadata (a data dictionary's "column_name" column,
// say) as PII generates noise issues an operator cannot act on.
var systemSchemas = map[string]struct{}{
	"information_schema": {},
	"pg_catalog":         {},
	"pg_toast":           {},
	"performance_schema": {},
	"mysql":              {},
	"sys":                {},
	"sysibm":             {},
	"system":             {},
	"metadata":           {},
	"data_dictionary":    {},
}

// IsSystemSchema reports whether a schema is on the fixed scan denylist.
func IsSystemSchema(schema string) bool {
	_, ok := systemSchemas[strings.ToLower(strings.TrimSpace(schema))]
	return ok
}

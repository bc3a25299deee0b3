package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const datasetFileName = "part-00000.parquet"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildDatasetPath returns the object key of the parquet export for one table.
func BuildDatasetPath(prefix, tableName string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix != "" {
		for _, component := range strings.Split(prefix, "/") {
			if err := validatePathComponent(component, "dataset prefix"); err != nil {
				return "", err
			}
		}
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(prefix, tableName, datasetFileName), nil
}

// DatasetTableFromKey recovers the table name from a key under prefix. Keys
// that are not parquet files directly below a table directory are rejected.
func DatasetTableFromKey(prefix, key string) (string, bool) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+"/")
	}
	parts := strings.Split(key, "/")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], ".parquet") {
		return "", false
	}
	if validatePathComponent(parts[0], "table name") != nil {
		return "", false
	}
	return parts[0], true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

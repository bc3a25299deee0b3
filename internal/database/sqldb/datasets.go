package sqldb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/storage"
)

// AttachDatasets exposes parquet exports found under prefix in the object
// store as duckdb views, one per table directory. Files are downloaded into a
// directory owned by the handle and removed on Close.
func (h *Handle) AttachDatasets(ctx context.Context, store storage.ObjectStore, prefix string) ([]string, error) {
	if h.dialect != database.DialectDuckDB {
		return nil, fmt.Errorf("datasets require a duckdb database, got %s", h.dialect)
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	grouped := map[string][]string{}
	for _, object := range objects {
		table, ok := storage.DatasetTableFromKey(prefix, object.Key)
		if !ok {
			continue
		}
		grouped[table] = append(grouped[table], object.Key)
	}
	if len(grouped) == 0 {
		return nil, fmt.Errorf("no parquet datasets found under %q", prefix)
	}

	workDir, err := h.datasetDir()
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(grouped))
	for table := range grouped {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		localPaths := make([]string, 0, len(grouped[table]))
		for index, key := range grouped[table] {
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", table, index))
			if err := download(ctx, store, key, localPath); err != nil {
				return nil, err
			}
			localPaths = append(localPaths, localPath)
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, database.QuoteIdent(table), quoteStringArray(localPaths))
		if _, err := h.db.ExecContext(ctx, viewSQL); err != nil {
			return nil, fmt.Errorf("create view for dataset %q: %w", table, err)
		}
	}
	return tables, nil
}

func (h *Handle) datasetDir() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workDir != "" {
		return h.workDir, nil
	}
	dir, err := os.MkdirTemp("", "talkdb-datasets-")
	if err != nil {
		return "", fmt.Errorf("create dataset dir: %w", err)
	}
	h.workDir = dir
	return dir, nil
}

func download(ctx context.Context, store storage.ObjectStore, key, localPath string) error {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local parquet file %q: %w", localPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close local parquet file %q: %w", localPath, err)
	}
	return nil
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

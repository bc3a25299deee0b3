package seed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/talkdb/talkdb/internal/storage"
)

// ExportParquet uploads one parquet file per table to the dataset layout the
// API server attaches with TALKDB_DATASETS_ENABLED. It returns the written keys.
func ExportParquet(ctx context.Context, store storage.ObjectStore, prefix string, ds Dataset) ([]string, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	hospitals, err := encodeParquet(ds.Hospitals)
	if err != nil {
		return nil, fmt.Errorf("encode Hospitals: %w", err)
	}
	doctors, err := encodeParquet(ds.Doctors)
	if err != nil {
		return nil, fmt.Errorf("encode Doctors: %w", err)
	}
	patients, err := encodeParquet(ds.Patients)
	if err != nil {
		return nil, fmt.Errorf("encode Patients: %w", err)
	}

	files := []struct {
		table string
		data  []byte
	}{
		{table: "Hospitals", data: hospitals},
		{table: "Doctors", data: doctors},
		{table: "Patients", data: patients},
	}
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key, err := storage.BuildDatasetPath(prefix, file.table)
		if err != nil {
			return nil, err
		}
		if _, err := store.Put(ctx, key, bytes.NewReader(file.data), int64(len(file.data)), storage.PutOptions{ContentType: "application/vnd.apache.parquet"}); err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func encodeParquet[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

package seed

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/storage"
)

type Service struct {
	cfg     Config
	log     *slog.Logger
	db      *sql.DB
	dialect database.Dialect
	store   storage.ObjectStore
}

// NewService wires a seeding run. store may be nil unless cfg.ExportParquet
// is set.
func NewService(cfg Config, logger *slog.Logger, db *sql.DB, dialect database.Dialect, store storage.ObjectStore) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.ExportParquet && store == nil {
		return nil, fmt.Errorf("object store is required for parquet export")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{cfg: cfg, log: logger, db: db, dialect: dialect, store: store}, nil
}

func (s *Service) Run(ctx context.Context) error {
	start := time.Now()
	ds, err := NewGenerator(s.cfg.Seed).Generate(Counts{
		Hospitals: s.cfg.Hospitals,
		Doctors:   s.cfg.Doctors,
		Patients:  s.cfg.Patients,
	})
	if err != nil {
		return err
	}

	if err := (Writer{}).Write(ctx, s.db, s.dialect, ds); err != nil {
		return fmt.Errorf("write demo tables: %w", err)
	}
	s.log.Info("demo tables written",
		slog.String("dialect", string(s.dialect)),
		slog.Int("hospitals", len(ds.Hospitals)),
		slog.Int("doctors", len(ds.Doctors)),
		slog.Int("patients", len(ds.Patients)),
		slog.Int64("seed", s.cfg.Seed),
	)

	if s.cfg.ExportParquet {
		keys, err := ExportParquet(ctx, s.store, s.cfg.DatasetPrefix, ds)
		if err != nil {
			return fmt.Errorf("export parquet: %w", err)
		}
		s.log.Info("demo datasets exported", slog.Any("keys", keys))
	}

	s.log.Info("demo seed completed", slog.String("duration", time.Since(start).String()))
	return nil
}

package mappings

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/envutil"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// Repo persists mapping records to the relational metadata store.
type Repo interface {
	Migrate() error
	ReplaceRun(ctx context.Context, records []domain.MappingRecord) error
	CountMapped(ctx context.Context) (int64, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewFromEnv opens a postgres-backed repo. Returns (nil, nil) when
// POSTGRES_HOST is unset so callers can treat relational persistence as
// optional.
func NewFromEnv(log *logger.Logger) (Repo, error) {
	host := envutil.String("POSTGRES_HOST", "")
	if host == "" {
		return nil, nil
	}
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "skillgraph")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("mappings: connect to postgres: %w", err)
	}
	return &repo{db: db, log: log.With("repo", "MappingRepo")}, nil
}

func (r *repo) Migrate() error {
	if err := r.db.AutoMigrate(&domain.MappingRecord{}); err != nil {
		return fmt.Errorf("mappings: auto migrate: %w", err)
	}
	return nil
}

// ReplaceRun swaps the mapping table contents for this run's records in one
// transaction, so a rerun converges to the same end state.
func (r *repo) ReplaceRun(ctx context.Context, records []domain.MappingRecord) error {
	const batchSize = 500
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.MappingRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("mappings: replace run: %w", err)
	}
	r.log.Info("Persisted mapping records", "records", len(records))
	return nil
}

func (r *repo) CountMapped(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MappingRecord{}).
		Where("esco_skill_id IS NOT NULL").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("mappings: count mapped: %w", err)
	}
	return count, nil
}

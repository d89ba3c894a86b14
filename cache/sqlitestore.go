package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// manifestRow is the gorm-mapped row for a single cached manifest entry, the
// embedded-sqlite counterpart to sqlStore's hand-written DDL.
type manifestRow struct {
	SourceHash  string `gorm:"primaryKey;size:64;column:source_hash"`
	ConfigHash  string `gorm:"primaryKey;size:64;column:config_hash"`
	OutputPath  string `gorm:"primaryKey;column:output_path"`
	OutputHash  string `gorm:"size:64;column:output_hash"`
	GeneratedAt time.Time
}

func (manifestRow) TableName() string { return "iheaders_manifest" }

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if absent) a single-file manifest database
// at path, for invocations with no networked cache configured.
func NewSQLiteStore(path string) (Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: opening sqlite store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&manifestRow{}); err != nil {
		return nil, fmt.Errorf("cache: migrating sqlite store %s: %w", path, err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Lookup(ctx context.Context, key CacheKey) (ManifestEntry, bool, error) {
	var row manifestRow
	err := s.db.WithContext(ctx).
		Where("source_hash = ? AND config_hash = ?", hexEncode(key.SourceHash), hexEncode(key.ConfigHash)).
		First(&row).Error
	switch {
	case err == nil:
		outputHash, decodeErr := hexDecode32(row.OutputHash)
		if decodeErr != nil {
			return ManifestEntry{}, false, fmt.Errorf("cache: corrupt output_hash for %s: %w", row.OutputPath, decodeErr)
		}
		return ManifestEntry{
			Key:         key,
			OutputPath:  row.OutputPath,
			OutputHash:  outputHash,
			GeneratedAt: row.GeneratedAt,
		}, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ManifestEntry{}, false, nil
	default:
		return ManifestEntry{}, false, err
	}
}

func (s *sqliteStore) Record(ctx context.Context, entry ManifestEntry) error {
	row := manifestRow{
		SourceHash:  hexEncode(entry.Key.SourceHash),
		ConfigHash:  hexEncode(entry.Key.ConfigHash),
		OutputPath:  entry.OutputPath,
		OutputHash:  hex.EncodeToString(entry.OutputHash[:]),
		GeneratedAt: entry.GeneratedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]ManifestEntry, error) {
	var rows []manifestRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]ManifestEntry, 0, len(rows))
	for _, row := range rows {
		sourceHash, err := hexDecode32(row.SourceHash)
		if err != nil {
			return nil, err
		}
		configHash, err := hexDecode32(row.ConfigHash)
		if err != nil {
			return nil, err
		}
		outputHash, err := hexDecode32(row.OutputHash)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ManifestEntry{
			Key:         CacheKey{SourceHash: sourceHash, ConfigHash: configHash},
			OutputPath:  row.OutputPath,
			OutputHash:  outputHash,
			GeneratedAt: row.GeneratedAt,
		})
	}
	return entries, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&manifestRow{}).Error
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

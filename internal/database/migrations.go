package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRepairContentOrderDensity = "2026-03-01_repair_content_order_density"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRepairContentOrderDensity, apply: repairContentOrderDensity},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

type orderedRow struct {
	ID        string `gorm:"column:id"`
	SortOrder int    `gorm:"column:sort_order"`
}

// repairContentOrderDensity renumbers every ordered table to 1..N, keeping the
// existing relative order and breaking ties by id.
func repairContentOrderDensity(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range content.OrderedTables() {
			var rows []orderedRow
			if err := tx.Table(table).Select("id", "sort_order").Order("sort_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
				return fmt.Errorf("%s: %w", table, err)
			}
			for position, row := range rows {
				if row.SortOrder == position+1 {
					continue
				}
				if err := tx.Table(table).Where("id = ?", row.ID).Update("sort_order", position+1).Error; err != nil {
					return fmt.Errorf("%s: %w", table, err)
				}
			}
		}
		return nil
	})
}

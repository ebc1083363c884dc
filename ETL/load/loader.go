package load

import (
	"context"
	"fmt"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Loader интерфейс для загрузки слоев в хранилище. Все методы пишут в переданный
// Execer, чтобы вызывающий мог объединить их в одну транзакцию
type Loader interface {
	// LoadBronze перезагружает сырые таблицы
	LoadBronze(ctx context.Context, db Execer, batch models.RawBatch) error

	// LoadSilver перезагружает очищенные таблицы
	LoadSilver(ctx context.Context, db Execer, silver *models.SilverTables) error

	// LoadGold перезагружает измерения и факт продаж
	LoadGold(ctx context.Context, db Execer, gold *models.GoldTables) error

	// LoadViolations дописывает отчет контроля качества этапа
	LoadViolations(ctx context.Context, db Execer, runID, stage string, violations []quality.Violation) error
}

// WarehouseLoader реализация Loader для хранилища MySQL
type WarehouseLoader struct {
	logger    *utils.ETLLogger
	batchSize int
}

// NewWarehouseLoader создает новый экземпляр WarehouseLoader
func NewWarehouseLoader(logger *utils.ETLLogger, batchSize int) *WarehouseLoader {
	return &WarehouseLoader{
		logger:    logger,
		batchSize: batchSize,
	}
}

// LoadBronze перезагружает сырые таблицы в порядке сущностей
func (l *WarehouseLoader) LoadBronze(ctx context.Context, db Execer, batch models.RawBatch) error {
	for _, entity := range models.AllEntities {
		table, ok := batch[entity]
		if !ok {
			continue
		}
		if err := newTableLoader(bronzeSpec(entity), l.batchSize, l.logger).Replace(ctx, db, table.Rows); err != nil {
			return err
		}
	}
	return nil
}

// LoadSilver перезагружает очищенные таблицы
func (l *WarehouseLoader) LoadSilver(ctx context.Context, db Execer, s *models.SilverTables) error {
	steps := []func() error{
		func() error { return newTableLoader(silverCustomersSpec, l.batchSize, l.logger).Replace(ctx, db, s.Customers) },
		func() error { return newTableLoader(silverProductsSpec, l.batchSize, l.logger).Replace(ctx, db, s.Products) },
		func() error { return newTableLoader(silverSalesSpec, l.batchSize, l.logger).Replace(ctx, db, s.Sales) },
		func() error {
			return newTableLoader(silverERPCustomersSpec, l.batchSize, l.logger).Replace(ctx, db, s.ERPCustomers)
		},
		func() error {
			return newTableLoader(silverERPLocationsSpec, l.batchSize, l.logger).Replace(ctx, db, s.ERPLocations)
		},
		func() error {
			return newTableLoader(silverERPCategorySpec, l.batchSize, l.logger).Replace(ctx, db, s.ERPCategory)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// LoadGold перезагружает витрину: сначала измерения, затем факт
func (l *WarehouseLoader) LoadGold(ctx context.Context, db Execer, g *models.GoldTables) error {
	if err := newTableLoader(goldCustomersSpec, l.batchSize, l.logger).Replace(ctx, db, g.Customers); err != nil {
		return err
	}
	if err := newTableLoader(goldProductsSpec, l.batchSize, l.logger).Replace(ctx, db, g.Products); err != nil {
		return err
	}
	return newTableLoader(goldSalesSpec, l.batchSize, l.logger).Replace(ctx, db, g.Sales)
}

// LoadViolations дописывает нарушения. Повторная запись того же запуска и этапа
// заменяет прежнюю
func (l *WarehouseLoader) LoadViolations(ctx context.Context, db Execer, runID, stage string, violations []quality.Violation) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM quality_violations WHERE run_id = ? AND stage = ?", runID, stage); err != nil {
		return fmt.Errorf("ошибка очистки отчета качества: %w", err)
	}

	rows := make([]stagedViolation, len(violations))
	for i, v := range violations {
		rows[i] = stagedViolation{runID: runID, stage: stage, Violation: v}
	}
	return newTableLoader(violationsSpec, l.batchSize, l.logger).Append(ctx, db, rows)
}

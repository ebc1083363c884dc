package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// LoadManager отвечает за публикацию результатов этапа в хранилище.
// Каждый этап пишется одной транзакцией: частичный результат не виден.
type LoadManager struct {
	db     *sql.DB
	logger *utils.ETLLogger
	loader Loader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(db *sql.DB, logger *utils.ETLLogger, batchSize int) *LoadManager {
	return &LoadManager{
		db:     db,
		logger: logger,
		loader: NewWarehouseLoader(logger, batchSize),
	}
}

// PublishSilver записывает bronze, silver и отчет качества этапа Bronze -> Silver
func (m *LoadManager) PublishSilver(ctx context.Context, runID string, batch models.RawBatch, silver *models.SilverTables, violations []quality.Violation) error {
	return m.inTx(ctx, models.StageBronzeToSilver, func(tx *sql.Tx) error {
		m.logger.Info("Загрузка слоя bronze...")
		if err := m.loader.LoadBronze(ctx, tx, batch); err != nil {
			return fmt.Errorf("ошибка при загрузке слоя bronze: %w", err)
		}
		m.logger.Info("Загрузка слоя silver...")
		if err := m.loader.LoadSilver(ctx, tx, silver); err != nil {
			return fmt.Errorf("ошибка при загрузке слоя silver: %w", err)
		}
		if err := m.loader.LoadViolations(ctx, tx, runID, models.StageBronzeToSilver, violations); err != nil {
			return fmt.Errorf("ошибка при загрузке отчета качества: %w", err)
		}
		return nil
	})
}

// PublishGold записывает витрину и отчет качества этапа Silver -> Gold
func (m *LoadManager) PublishGold(ctx context.Context, runID string, gold *models.GoldTables, violations []quality.Violation) error {
	return m.inTx(ctx, models.StageSilverToGold, func(tx *sql.Tx) error {
		m.logger.Info("Загрузка слоя gold...")
		if err := m.loader.LoadGold(ctx, tx, gold); err != nil {
			return fmt.Errorf("ошибка при загрузке слоя gold: %w", err)
		}
		if err := m.loader.LoadViolations(ctx, tx, runID, models.StageSilverToGold, violations); err != nil {
			return fmt.Errorf("ошибка при загрузке отчета качества: %w", err)
		}
		return nil
	})
}

func (m *LoadManager) inTx(ctx context.Context, stage string, fn func(tx *sql.Tx) error) error {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (%s)", stage)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	if err := fn(tx); err != nil {
		m.logger.Error("%v", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Ошибка при откате транзакции: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	m.logger.Info("Фаза Load (%s) завершена. Длительность: %v", stage, time.Since(startTime))
	return nil
}

package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/sales_dwh/ETL/config"
	"github.com/LilVoxy/sales_dwh/ETL/extractors"
	"github.com/LilVoxy/sales_dwh/ETL/load"
	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/snapshot"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Runtime - конвейер вместе с ресурсами, которые нужно освободить по завершении
type Runtime struct {
	Pipeline *Pipeline
	// DB - подключение к хранилищу; nil, если хранилище не используется
	DB *sql.DB
}

// Close закрывает подключение к хранилищу
func (r *Runtime) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// FromConfig собирает конвейер по конфигурации.
// Подключение к хранилищу открывается, если оно включено или источник - таблицы MySQL.
func FromConfig(ctx context.Context, cfg config.ETLConfig, logger *utils.ETLLogger, notifier Notifier) (*Runtime, error) {
	rt := &Runtime{}

	if cfg.Warehouse.Enabled || cfg.Source.Kind == config.SourceMySQL {
		db, err := config.ConnectWarehouse(ctx, cfg.Warehouse)
		if err != nil {
			return nil, err
		}
		rt.DB = db
		logger.Info("Подключение к хранилищу %s:%d установлено", cfg.Warehouse.Host, cfg.Warehouse.Port)
	}

	var source extractors.Source
	switch cfg.Source.Kind {
	case config.SourceCSV:
		source = extractors.NewCSVSource(cfg.Source.CSVDir, logger)
	case config.SourceMySQL:
		source = extractors.NewMySQLSource(rt.DB, cfg.Source.StagingSchema, logger)
	default:
		rt.Close()
		return nil, fmt.Errorf("неизвестный источник данных: %q", cfg.Source.Kind)
	}

	deps := Deps{
		Source:    source,
		Snapshots: snapshot.NewFileStore(cfg.SnapshotDir),
		Notifier:  notifier,
		Logger:    logger,
	}
	if cfg.Warehouse.Enabled {
		deps.Sink = load.NewLoadManager(rt.DB, logger, cfg.Warehouse.InsertBatchSize)
		deps.RunLog = models.NewMySQLETLLogRepository(rt.DB)
	} else {
		logger.Warn("Хранилище отключено: результаты сохраняются только в снимки (%s)", cfg.SnapshotDir)
	}

	rt.Pipeline = New(deps, Options{
		ERPKeyPrefixes:     cfg.ERPKeyPrefixes,
		RowCountFloorRatio: cfg.Quality.RowCountFloorRatio,
	})
	return rt, nil
}

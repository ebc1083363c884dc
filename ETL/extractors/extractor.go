package extractors

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Source отдает полный сырой пакет всех шести сущностей
type Source interface {
	Name() string
	Load(ctx context.Context) (models.RawBatch, error)
}

// Extractor координирует извлечение сырого пакета из источника
type Extractor struct {
	source Source
	logger *utils.ETLLogger
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(source Source, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		source: source,
		logger: logger,
	}
}

// Extract загружает пакет и проверяет его структуру.
// Структурная ошибка возвращается как есть, чтобы вызывающий мог распознать ее через errors.Is.
func (e *Extractor) Extract(ctx context.Context) (models.RawBatch, error) {
	startTime := time.Now()
	e.logger.Info("Начало фазы Extract (источник %s)", e.source.Name())

	batch, err := e.source.Load(ctx)
	if err != nil {
		e.logger.Error("Ошибка при извлечении данных из %s: %v", e.source.Name(), err)
		return nil, fmt.Errorf("ошибка извлечения из %s: %w", e.source.Name(), err)
	}

	if err := batch.Validate(); err != nil {
		e.logger.Error("Нарушена структура входного пакета: %v", err)
		return nil, err
	}

	for _, entity := range models.AllEntities {
		e.logger.Debug("Извлечено %d строк из %s", len(batch[entity].Rows), entity)
	}
	e.logger.Info("Фаза Extract завершена за %v", time.Since(startTime))
	return batch, nil
}

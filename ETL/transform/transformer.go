package transform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// SilverResult - результат этапа Bronze -> Silver
type SilverResult struct {
	Tables   models.SilverTables
	Rejected []models.RejectedRecord
	Issues   []models.Issue
}

// Transformer координирует очистку всех сущностей пакета
type Transformer struct {
	logger   *utils.ETLLogger
	asOf     time.Time
	prefixes []string
}

// NewTransformer создает новый экземпляр Transformer.
// asOf - дата пакета, относительно которой отсекаются даты из будущего.
func NewTransformer(logger *utils.ETLLogger, asOf time.Time, prefixes []string) *Transformer {
	if len(prefixes) == 0 {
		prefixes = models.DefaultERPKeyPrefixes
	}
	return &Transformer{
		logger:   logger,
		asOf:     asOf,
		prefixes: prefixes,
	}
}

// Transform очищает все шесть сущностей параллельно и собирает слой silver.
// Структура пакета проверяется до начала очистки.
func (t *Transformer) Transform(ctx context.Context, batch models.RawBatch) (*SilverResult, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (очистка Bronze -> Silver)")

	if err := batch.Validate(); err != nil {
		t.logger.Error("Нарушена структура входного пакета: %v", err)
		return nil, err
	}

	out := &SilverResult{}
	var mu sync.Mutex
	collect := func(rejected []models.RejectedRecord, issues []models.Issue) {
		mu.Lock()
		defer mu.Unlock()
		out.Rejected = append(out.Rejected, rejected...)
		out.Issues = append(out.Issues, issues...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, entity := range models.AllEntities {
		entity := entity
		rows := batch[entity].Rows
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := t.cleanseEntity(entity, rows, &out.Tables, collect)
			t.logger.Debug("Сущность %s очищена: %d -> %d строк", entity, len(rows), n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ошибка при очистке данных: %w", err)
	}

	// Порядок дефектов не должен зависеть от планировщика горутин
	sortRejected(out.Rejected)
	sortIssues(out.Issues)

	t.logger.Info("Фаза Transform завершена за %v: отклонено %d строк, дефектов %d",
		time.Since(startTime), len(out.Rejected), len(out.Issues))
	return out, nil
}

// cleanseEntity запускает очиститель сущности и пишет строки в свое поле tables.
// Каждая горутина пишет только в одно поле, поэтому блокировка не нужна.
func (t *Transformer) cleanseEntity(entity models.Entity, rows []models.RawRecord, tables *models.SilverTables,
	collect func([]models.RejectedRecord, []models.Issue)) int {
	switch entity {
	case models.EntityCRMCustomers:
		res := CleanseCustomers(rows)
		tables.Customers = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	case models.EntityCRMProducts:
		res := CleanseProducts(rows)
		tables.Products = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	case models.EntityCRMSales:
		res := CleanseSales(rows)
		tables.Sales = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	case models.EntityERPCustomers:
		res := CleanseERPCustomers(rows, t.asOf, t.prefixes)
		tables.ERPCustomers = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	case models.EntityERPLocations:
		res := CleanseERPLocations(rows, t.prefixes)
		tables.ERPLocations = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	case models.EntityERPCategory:
		res := CleanseERPCategories(rows)
		tables.ERPCategory = res.Rows
		collect(res.Rejected, res.Issues)
		return len(res.Rows)
	}
	return 0
}

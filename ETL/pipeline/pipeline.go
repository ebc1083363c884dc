package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LilVoxy/sales_dwh/ETL/extractors"
	"github.com/LilVoxy/sales_dwh/ETL/gold"
	"github.com/LilVoxy/sales_dwh/ETL/metrics"
	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/snapshot"
	"github.com/LilVoxy/sales_dwh/ETL/transform"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// ErrNoSilver - этап Silver -> Gold запущен раньше, чем появился снимок silver
var ErrNoSilver = errors.New("нет снимка слоя silver: сначала выполните bronze-to-silver")

// Sink - хранилище, в которое публикуются результаты этапов
type Sink interface {
	PublishSilver(ctx context.Context, runID string, batch models.RawBatch, silver *models.SilverTables, violations []quality.Violation) error
	PublishGold(ctx context.Context, runID string, gold *models.GoldTables, violations []quality.Violation) error
}

// Notifier получает события жизненного цикла этапов
type Notifier interface {
	Notify(event models.RunEvent)
}

// Deps - зависимости конвейера. Sink и Notifier необязательны
type Deps struct {
	Source    extractors.Source
	Snapshots snapshot.Store
	Sink      Sink
	RunLog    models.ETLLogRepository
	Notifier  Notifier
	Logger    *utils.ETLLogger
}

// Options - параметры конвейера
type Options struct {
	ERPKeyPrefixes     []string
	RowCountFloorRatio float64
	// Now - источник времени; дата запуска используется как дата пакета
	Now func() time.Time
}

// StageResult - итог выполнения этапа
type StageResult struct {
	RunID    string          `json:"run_id"`
	Stage    string          `json:"stage"`
	Version  string          `json:"version"`
	Rows     map[string]int  `json:"rows"`
	Report   *quality.Report `json:"report"`
	Duration time.Duration   `json:"duration_ns"`
}

// Pipeline связывает этапы Bronze -> Silver -> Gold. Одновременно выполняется
// не более одного этапа
type Pipeline struct {
	extractor *extractors.Extractor
	snapshots snapshot.Store
	sink      Sink
	runLog    models.ETLLogRepository
	notifier  Notifier
	gate      *quality.Gate
	logger    *utils.ETLLogger
	prefixes  []string
	now       func() time.Time

	mu sync.Mutex
}

// New создает конвейер
func New(deps Deps, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.RunLog == nil {
		deps.RunLog = models.NewMemoryETLLogRepository()
	}
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	return &Pipeline{
		extractor: extractors.NewExtractor(deps.Source, deps.Logger),
		snapshots: deps.Snapshots,
		sink:      deps.Sink,
		runLog:    deps.RunLog,
		notifier:  deps.Notifier,
		gate:      quality.NewGate(opts.RowCountFloorRatio),
		logger:    deps.Logger,
		prefixes:  opts.ERPKeyPrefixes,
		now:       opts.Now,
	}
}

// RunBronzeToSilver выполняет этап очистки с новым идентификатором запуска
func (p *Pipeline) RunBronzeToSilver(ctx context.Context) (*StageResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runStage(ctx, uuid.NewString(), models.StageBronzeToSilver, p.bronzeToSilver)
}

// RunSilverToGold выполняет этап сборки витрины с новым идентификатором запуска
func (p *Pipeline) RunSilverToGold(ctx context.Context) (*StageResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runStage(ctx, uuid.NewString(), models.StageSilverToGold, p.silverToGold)
}

// RunAll выполняет оба этапа подряд под одним идентификатором запуска.
// Если первый этап завершился ошибкой, второй не запускается.
func (p *Pipeline) RunAll(ctx context.Context) ([]*StageResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	silver, err := p.runStage(ctx, runID, models.StageBronzeToSilver, p.bronzeToSilver)
	if err != nil {
		return nil, err
	}
	goldRes, err := p.runStage(ctx, runID, models.StageSilverToGold, p.silverToGold)
	if err != nil {
		return []*StageResult{silver}, err
	}
	return []*StageResult{silver, goldRes}, nil
}

// LatestReport возвращает последний опубликованный отчет контроля качества
func (p *Pipeline) LatestReport(ctx context.Context) (*quality.Report, error) {
	var report quality.Report
	if _, err := p.snapshots.Latest(ctx, snapshot.LayerQuality, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RunStats возвращает журнал запусков за последние days дней
func (p *Pipeline) RunStats(ctx context.Context, days int) ([]models.ETLRunLog, error) {
	return p.runLog.GetETLRunStats(ctx, days)
}

// stageFunc выполняет работу этапа и возвращает количество прочитанных строк
type stageFunc func(ctx context.Context, res *StageResult, logger *utils.ETLLogger) (rowsRead int, err error)

// runStage оборачивает этап журналом запусков, метриками и событиями
func (p *Pipeline) runStage(ctx context.Context, runID, stage string, fn stageFunc) (*StageResult, error) {
	startTime := p.now()
	logger := p.logger.With(zap.String("run_id", runID), zap.String("stage", stage))
	logger.LogStageStart(stage)
	p.notify(models.RunEvent{Type: models.EventStageStarted, RunID: runID, Stage: stage, Time: startTime})

	logID, err := p.runLog.CreateLogEntry(ctx, runID, stage, startTime)
	if err != nil {
		logger.Error("Ошибка при создании записи в журнале запусков: %v", err)
		return nil, fmt.Errorf("ошибка при создании записи в журнале запусков: %w", err)
	}

	res := &StageResult{RunID: runID, Stage: stage}
	rowsRead, err := fn(ctx, res, logger)
	endTime := p.now()
	res.Duration = endTime.Sub(startTime)

	if err != nil {
		logger.Error("Этап %s завершился ошибкой: %v", stage, err)
		if logErr := p.runLog.UpdateLogEntryFailure(ctx, logID, endTime, err.Error()); logErr != nil {
			logger.Error("Ошибка при обновлении журнала запусков: %v", logErr)
		}
		metrics.RecordStage(stage, models.RunStatusFailed, startTime, endTime)
		p.notify(models.RunEvent{Type: models.EventStageFailed, RunID: runID, Stage: stage, Time: endTime, Error: err.Error()})
		return nil, err
	}

	rowsWritten := 0
	for _, n := range res.Rows {
		rowsWritten += n
	}
	violationCount := len(res.Report.Violations)

	if err := p.runLog.UpdateLogEntrySuccess(ctx, logID, endTime, rowsRead, rowsWritten, violationCount); err != nil {
		logger.Error("Ошибка при обновлении журнала запусков: %v", err)
	}

	bySeverity := make(map[string]int)
	for severity, n := range res.Report.CountBySeverity() {
		bySeverity[string(severity)] = n
	}
	metrics.RecordStage(stage, models.RunStatusSuccess, startTime, endTime)
	metrics.RecordRows(res.Rows)
	metrics.RecordViolations(stage, bySeverity)

	logger.LogStageComplete(stage, startTime, res.Rows, violationCount)
	p.notify(models.RunEvent{
		Type:       models.EventStageCompleted,
		RunID:      runID,
		Stage:      stage,
		Time:       endTime,
		Rows:       res.Rows,
		Violations: violationCount,
	})
	return res, nil
}

func (p *Pipeline) notify(event models.RunEvent) {
	if p.notifier != nil {
		p.notifier.Notify(event)
	}
}

// bronzeToSilver: извлечение, проверка структуры, очистка, контроль качества, публикация
func (p *Pipeline) bronzeToSilver(ctx context.Context, res *StageResult, logger *utils.ETLLogger) (int, error) {
	batch, err := p.extractor.Extract(ctx)
	if err != nil {
		return 0, err
	}
	rowsRead := sumRows(batch.RowCounts())

	asOf := p.now().UTC().Truncate(24 * time.Hour)
	silver, err := transform.NewTransformer(logger, asOf, p.prefixes).Transform(ctx, batch)
	if err != nil {
		return rowsRead, err
	}

	previous := p.previousCounts(ctx, snapshot.LayerSilver, logger)
	violations := p.gate.CheckSilver(&silver.Tables, silver.Issues, silver.Rejected, previous)
	res.Report = quality.NewReport(res.RunID, res.Stage, p.now().UTC(), violations)
	res.Rows = silver.Tables.RowCounts()

	if p.sink != nil {
		if err := p.sink.PublishSilver(ctx, res.RunID, batch, &silver.Tables, violations); err != nil {
			return rowsRead, err
		}
	}

	m, err := p.snapshots.Save(ctx, snapshot.Manifest{
		Layer:      snapshot.LayerSilver,
		RunID:      res.RunID,
		RowCounts:  res.Rows,
		Violations: len(violations),
	}, &silver.Tables)
	if err != nil {
		return rowsRead, fmt.Errorf("ошибка сохранения снимка silver: %w", err)
	}
	res.Version = m.Version

	if err := p.saveReport(ctx, res.Report); err != nil {
		return rowsRead, err
	}
	return rowsRead, nil
}

// silverToGold: чтение последнего снимка silver, сборка витрины, контроль качества, публикация
func (p *Pipeline) silverToGold(ctx context.Context, res *StageResult, logger *utils.ETLLogger) (int, error) {
	var silver models.SilverTables
	sm, err := p.snapshots.Latest(ctx, snapshot.LayerSilver, &silver)
	if errors.Is(err, snapshot.ErrNotFound) {
		return 0, ErrNoSilver
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения снимка silver: %w", err)
	}
	logger.Info("Используется снимок silver %s", sm.Version)
	rowsRead := sumRows(silver.RowCounts())

	built, err := gold.NewBuilder(logger, p.prefixes).Build(ctx, &silver)
	if err != nil {
		return rowsRead, err
	}

	previous := p.previousCounts(ctx, snapshot.LayerGold, logger)
	violations := p.gate.CheckGold(&built.Tables, built.Gaps, built.Issues, previous)
	res.Report = quality.NewReport(res.RunID, res.Stage, p.now().UTC(), violations)
	res.Rows = built.Tables.RowCounts()

	if p.sink != nil {
		if err := p.sink.PublishGold(ctx, res.RunID, &built.Tables, violations); err != nil {
			return rowsRead, err
		}
	}

	m, err := p.snapshots.Save(ctx, snapshot.Manifest{
		Layer:      snapshot.LayerGold,
		RunID:      res.RunID,
		RowCounts:  res.Rows,
		Violations: len(violations),
	}, &built.Tables)
	if err != nil {
		return rowsRead, fmt.Errorf("ошибка сохранения снимка gold: %w", err)
	}
	res.Version = m.Version

	if err := p.saveReport(ctx, res.Report); err != nil {
		return rowsRead, err
	}
	return rowsRead, nil
}

// previousCounts возвращает количество строк предыдущего снимка слоя (nil, если его нет)
func (p *Pipeline) previousCounts(ctx context.Context, layer snapshot.Layer, logger *utils.ETLLogger) map[string]int {
	m, err := p.snapshots.LatestManifest(ctx, layer)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			logger.Warn("Не удалось прочитать предыдущий снимок %s: %v", layer, err)
		}
		return nil
	}
	return m.RowCounts
}

func (p *Pipeline) saveReport(ctx context.Context, report *quality.Report) error {
	_, err := p.snapshots.Save(ctx, snapshot.Manifest{
		Layer:      snapshot.LayerQuality,
		RunID:      report.RunID,
		Violations: len(report.Violations),
	}, report)
	if err != nil {
		return fmt.Errorf("ошибка сохранения отчета качества: %w", err)
	}
	return nil
}

func sumRows(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

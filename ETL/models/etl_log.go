package models

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Статусы запуска ETL
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
)

// Этапы конвейера
const (
	StageBronzeToSilver = "bronze_to_silver"
	StageSilverToGold   = "silver_to_gold"
)

// ETLRunLog представляет запись о запуске одного этапа ETL
type ETLRunLog struct {
	ID                   int64     `json:"id"`
	RunID                string    `json:"run_id"`
	Stage                string    `json:"stage"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Status               string    `json:"status"` // "success", "failed", "in_progress"
	RowsRead             int       `json:"rows_read"`
	RowsWritten          int       `json:"rows_written"`
	ViolationsCount      int       `json:"violations_count"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// ETLLogRepository представляет репозиторий для работы с журналом запусков
type ETLLogRepository interface {
	// CreateLogEntry создает новую запись о запуске этапа
	CreateLogEntry(ctx context.Context, runID, stage string, startTime time.Time) (int64, error)

	// UpdateLogEntrySuccess обновляет запись при успешном завершении этапа
	UpdateLogEntrySuccess(ctx context.Context, id int64, endTime time.Time, rowsRead, rowsWritten, violations int) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении этапа
	UpdateLogEntryFailure(ctx context.Context, id int64, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun получает последний успешный запуск этапа
	GetLastSuccessfulRun(ctx context.Context, stage string) (*ETLRunLog, error)

	// GetETLRunStats получает запуски за последние days дней
	GetETLRunStats(ctx context.Context, days int) ([]ETLRunLog, error)
}

// MemoryETLLogRepository хранит журнал запусков в памяти процесса (запуск без БД)
type MemoryETLLogRepository struct {
	mu      sync.Mutex
	entries []ETLRunLog
	now     func() time.Time
}

// NewMemoryETLLogRepository создает пустой журнал в памяти
func NewMemoryETLLogRepository() *MemoryETLLogRepository {
	return &MemoryETLLogRepository{now: time.Now}
}

func (r *MemoryETLLogRepository) CreateLogEntry(_ context.Context, runID, stage string, startTime time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.entries) + 1)
	r.entries = append(r.entries, ETLRunLog{
		ID:        id,
		RunID:     runID,
		Stage:     stage,
		StartTime: startTime,
		Status:    RunStatusInProgress,
	})
	return id, nil
}

func (r *MemoryETLLogRepository) UpdateLogEntrySuccess(_ context.Context, id int64, endTime time.Time, rowsRead, rowsWritten, violations int) error {
	return r.update(id, func(e *ETLRunLog) {
		e.EndTime = endTime
		e.Status = RunStatusSuccess
		e.RowsRead = rowsRead
		e.RowsWritten = rowsWritten
		e.ViolationsCount = violations
		e.ExecutionTimeSeconds = endTime.Sub(e.StartTime).Seconds()
	})
}

func (r *MemoryETLLogRepository) UpdateLogEntryFailure(_ context.Context, id int64, endTime time.Time, errorMessage string) error {
	return r.update(id, func(e *ETLRunLog) {
		e.EndTime = endTime
		e.Status = RunStatusFailed
		e.ErrorMessage = errorMessage
		e.ExecutionTimeSeconds = endTime.Sub(e.StartTime).Seconds()
	})
}

func (r *MemoryETLLogRepository) update(id int64, fn func(e *ETLRunLog)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || int(id) > len(r.entries) {
		return fmt.Errorf("запись журнала %d не найдена", id)
	}
	fn(&r.entries[id-1])
	return nil
}

func (r *MemoryETLLogRepository) GetLastSuccessfulRun(_ context.Context, stage string) (*ETLRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if e := r.entries[i]; e.Stage == stage && e.Status == RunStatusSuccess {
			return &e, nil
		}
	}
	return nil, nil
}

// GetETLRunStats возвращает запуски за последние days дней, новые первыми
func (r *MemoryETLLogRepository) GetETLRunStats(_ context.Context, days int) ([]ETLRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	since := r.now().AddDate(0, 0, -days)
	out := make([]ETLRunLog, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if !r.entries[i].StartTime.Before(since) {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

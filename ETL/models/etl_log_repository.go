package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MySQLETLLogRepository реализация ETLLogRepository для MySQL
type MySQLETLLogRepository struct {
	db *sql.DB
}

// NewMySQLETLLogRepository создает новый экземпляр MySQLETLLogRepository
func NewMySQLETLLogRepository(db *sql.DB) *MySQLETLLogRepository {
	return &MySQLETLLogRepository{
		db: db,
	}
}

// CreateLogEntry создает новую запись о запуске этапа
func (r *MySQLETLLogRepository) CreateLogEntry(ctx context.Context, runID, stage string, startTime time.Time) (int64, error) {
	query := `
	INSERT INTO etl_run_log (run_id, stage, start_time, status)
	VALUES (?, ?, ?, 'in_progress')
	`

	result, err := r.db.ExecContext(ctx, query, runID, stage, startTime)
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID созданной записи: %w", err)
	}

	return id, nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении этапа
func (r *MySQLETLLogRepository) UpdateLogEntrySuccess(ctx context.Context, id int64, endTime time.Time, rowsRead, rowsWritten, violations int) error {
	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'success',
		rows_read = ?,
		rows_written = ?,
		violations_count = ?,
		execution_time_seconds = TIMESTAMPDIFF(MICROSECOND, start_time, ?) / 1000000
	WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, endTime, rowsRead, rowsWritten, violations, endTime, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении этапа
func (r *MySQLETLLogRepository) UpdateLogEntryFailure(ctx context.Context, id int64, endTime time.Time, errorMessage string) error {
	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'failed',
		error_message = ?,
		execution_time_seconds = TIMESTAMPDIFF(MICROSECOND, start_time, ?) / 1000000
	WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, endTime, errorMessage, endTime, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

const selectRunLogColumns = `
	SELECT
		id, run_id, stage, start_time, IFNULL(end_time, start_time), status,
		rows_read, rows_written, violations_count,
		IFNULL(error_message, ''), IFNULL(execution_time_seconds, 0)
	FROM etl_run_log
`

// GetLastSuccessfulRun получает последний успешный запуск этапа
func (r *MySQLETLLogRepository) GetLastSuccessfulRun(ctx context.Context, stage string) (*ETLRunLog, error) {
	query := selectRunLogColumns + `
	WHERE status = 'success' AND stage = ?
	ORDER BY end_time DESC
	LIMIT 1
	`

	log, err := scanRunLog(r.db.QueryRowContext(ctx, query, stage))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Нет успешных запусков
		}
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}

	return log, nil
}

// GetETLRunStats получает запуски за последние days дней
func (r *MySQLETLLogRepository) GetETLRunStats(ctx context.Context, days int) ([]ETLRunLog, error) {
	query := selectRunLogColumns + `
	WHERE start_time >= DATE_SUB(NOW(), INTERVAL ? DAY)
	ORDER BY start_time DESC
	`

	rows, err := r.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		logs = append(logs, *log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}

	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row rowScanner) (*ETLRunLog, error) {
	var log ETLRunLog
	err := row.Scan(
		&log.ID, &log.RunID, &log.Stage, &log.StartTime, &log.EndTime, &log.Status,
		&log.RowsRead, &log.RowsWritten, &log.ViolationsCount,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

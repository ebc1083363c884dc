package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runLogColumns = []string{
	"id", "run_id", "stage", "start_time", "end_time", "status",
	"rows_read", "rows_written", "violations_count", "error_message", "execution_time_seconds",
}

func TestMySQLETLLogRepository_CreateAndUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLETLLogRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)

	mock.ExpectExec("INSERT INTO etl_run_log").
		WithArgs("run-1", StageBronzeToSilver, start).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE etl_run_log").
		WithArgs(end, 100, 90, 3, end, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE etl_run_log").
		WithArgs(end, "boom", end, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.CreateLogEntry(ctx, "run-1", StageBronzeToSilver, start)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, repo.UpdateLogEntrySuccess(ctx, id, end, 100, 90, 3))
	require.NoError(t, repo.UpdateLogEntryFailure(ctx, id, end, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLETLLogRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO etl_run_log").WillReturnError(errors.New("connection refused"))

	_, err = NewMySQLETLLogRepository(db).CreateLogEntry(context.Background(), "run-1", StageSilverToGold, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMySQLETLLogRepository_GetLastSuccessfulRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLETLLogRepository(db)
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	t.Run("returns latest run", func(t *testing.T) {
		mock.ExpectQuery("FROM etl_run_log").
			WithArgs(StageSilverToGold).
			WillReturnRows(sqlmock.NewRows(runLogColumns).
				AddRow(7, "run-7", StageSilverToGold, start, start.Add(time.Minute), RunStatusSuccess, 10, 9, 0, "", 60.0))

		log, err := repo.GetLastSuccessfulRun(context.Background(), StageSilverToGold)
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, "run-7", log.RunID)
		assert.Equal(t, 9, log.RowsWritten)
		assert.Equal(t, 60.0, log.ExecutionTimeSeconds)
	})

	t.Run("no runs yet", func(t *testing.T) {
		mock.ExpectQuery("FROM etl_run_log").
			WithArgs(StageSilverToGold).
			WillReturnRows(sqlmock.NewRows(runLogColumns))

		log, err := repo.GetLastSuccessfulRun(context.Background(), StageSilverToGold)
		require.NoError(t, err)
		assert.Nil(t, log)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLETLLogRepository_GetETLRunStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM etl_run_log").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(runLogColumns).
			AddRow(2, "run-2", StageSilverToGold, start, start, RunStatusFailed, 0, 0, 0, "нет снимка", 0.5).
			AddRow(1, "run-1", StageBronzeToSilver, start, start, RunStatusSuccess, 5, 5, 1, "", 1.0))

	logs, err := NewMySQLETLLogRepository(db).GetETLRunStats(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, RunStatusFailed, logs[0].Status)
	assert.Equal(t, "нет снимка", logs[0].ErrorMessage)
	assert.Equal(t, 1, logs[1].ViolationsCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryETLLogRepository(t *testing.T) {
	repo := NewMemoryETLLogRepository()
	ctx := context.Background()
	now := time.Now()

	first, err := repo.CreateLogEntry(ctx, "run-1", StageBronzeToSilver, now.Add(-time.Minute))
	require.NoError(t, err)
	second, err := repo.CreateLogEntry(ctx, "run-1", StageSilverToGold, now)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLogEntrySuccess(ctx, first, now, 10, 8, 2))
	require.NoError(t, repo.UpdateLogEntryFailure(ctx, second, now.Add(time.Second), "boom"))
	assert.Error(t, repo.UpdateLogEntryFailure(ctx, 99, now, "missing"))

	last, err := repo.GetLastSuccessfulRun(ctx, StageBronzeToSilver)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 8, last.RowsWritten)
	assert.InDelta(t, 60.0, last.ExecutionTimeSeconds, 0.001)

	none, err := repo.GetLastSuccessfulRun(ctx, StageSilverToGold)
	require.NoError(t, err)
	assert.Nil(t, none)

	stats, err := repo.GetETLRunStats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, StageSilverToGold, stats[0].Stage, "newest first")
	assert.Equal(t, RunStatusFailed, stats[0].Status)
}

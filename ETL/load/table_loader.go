package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Execer - то, во что можно писать: *sql.DB или *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// tableSpec описывает целевую таблицу и способ разложить строку по колонкам
type tableSpec[T any] struct {
	name    string
	columns []string
	values  func(row T) []interface{}
}

// tableLoader выполняет полную перезагрузку одной таблицы
type tableLoader[T any] struct {
	spec      tableSpec[T]
	batchSize int
	logger    *utils.ETLLogger
}

func newTableLoader[T any](spec tableSpec[T], batchSize int, logger *utils.ETLLogger) *tableLoader[T] {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &tableLoader[T]{spec: spec, batchSize: batchSize, logger: logger}
}

// Replace удаляет содержимое таблицы и вставляет строки пачками.
// Используется DELETE, а не TRUNCATE: TRUNCATE в MySQL неявно фиксирует транзакцию.
func (l *tableLoader[T]) Replace(ctx context.Context, db Execer, rows []T) error {
	startTime := time.Now()
	l.logger.Debug("Перезагрузка %s (строк: %d)", l.spec.name, len(rows))

	if _, err := db.ExecContext(ctx, "DELETE FROM "+l.spec.name); err != nil {
		return fmt.Errorf("ошибка очистки %s: %w", l.spec.name, err)
	}

	for start := 0; start < len(rows); start += l.batchSize {
		end := start + l.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		query, args := l.insertBatch(rows[start:end])
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("ошибка вставки в %s (строки %d-%d): %w", l.spec.name, start, end-1, err)
		}
	}

	l.logger.Debug("Таблица %s перезагружена за %v", l.spec.name, time.Since(startTime))
	return nil
}

// Append вставляет строки, не трогая существующие
func (l *tableLoader[T]) Append(ctx context.Context, db Execer, rows []T) error {
	for start := 0; start < len(rows); start += l.batchSize {
		end := start + l.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		query, args := l.insertBatch(rows[start:end])
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("ошибка вставки в %s: %w", l.spec.name, err)
		}
	}
	return nil
}

// insertBatch строит многострочный INSERT для пачки строк
func (l *tableLoader[T]) insertBatch(rows []T) (string, []interface{}) {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(l.spec.columns)), ", ") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(l.spec.name)
	b.WriteString(" (")
	b.WriteString(strings.Join(l.spec.columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(rows)*len(l.spec.columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)
		args = append(args, l.spec.values(row)...)
	}
	return b.String(), args
}

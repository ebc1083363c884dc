package extractors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// errNoSuchTable - код ошибки MySQL "Table doesn't exist"
const errNoSuchTable = 1146

// MySQLSource читает сырые выгрузки из staging-схемы MySQL: по одной таблице на сущность
type MySQLSource struct {
	db     *sql.DB
	schema string
	logger *utils.ETLLogger
}

// NewMySQLSource создает новый экземпляр MySQLSource
func NewMySQLSource(db *sql.DB, schema string, logger *utils.ETLLogger) *MySQLSource {
	return &MySQLSource{
		db:     db,
		schema: schema,
		logger: logger,
	}
}

// Name возвращает имя источника
func (s *MySQLSource) Name() string {
	return "mysql:" + s.schema
}

// Load читает все таблицы staging-схемы. Отсутствующая таблица пропускается,
// ее обнаружит проверка структуры пакета.
func (s *MySQLSource) Load(ctx context.Context) (models.RawBatch, error) {
	batch := make(models.RawBatch, len(models.AllEntities))
	for _, entity := range models.AllEntities {
		table, err := s.loadTable(ctx, entity)
		if err != nil {
			var myErr *mysqldrv.MySQLError
			if errors.As(err, &myErr) && myErr.Number == errNoSuchTable {
				s.logger.Warn("Таблица %s.%s не найдена", s.schema, entity)
				continue
			}
			return nil, err
		}
		batch[entity] = table
	}
	return batch, nil
}

func (s *MySQLSource) loadTable(ctx context.Context, entity models.Entity) (*models.RawTable, error) {
	// Имя схемы и сущности берутся из конфигурации и констант, а не из пользовательского ввода
	query := fmt.Sprintf("SELECT * FROM `%s`.`%s`", s.schema, entity)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса %s: %w", entity, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения колонок %s: %w", entity, err)
	}

	table := models.NewRawTable(entity, columns)
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки %s: %w", entity, err)
		}

		values := make([]*string, len(columns))
		for i, c := range cells {
			if c.Valid && c.String != "" {
				values[i] = models.StrPtr(c.String)
			}
		}
		table.Append(values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", entity, err)
	}

	s.logger.Debug("Прочитано %d строк из %s.%s", len(table.Rows), s.schema, entity)
	return table, nil
}

package extractors

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// CSVFiles - расположение выгрузок относительно корневого каталога
var CSVFiles = map[models.Entity]string{
	models.EntityCRMCustomers: filepath.Join("source_crm", "cust_info.csv"),
	models.EntityCRMProducts:  filepath.Join("source_crm", "prd_info.csv"),
	models.EntityCRMSales:     filepath.Join("source_crm", "sales_details.csv"),
	models.EntityERPCustomers: filepath.Join("source_erp", "CUST_AZ12.csv"),
	models.EntityERPLocations: filepath.Join("source_erp", "LOC_A101.csv"),
	models.EntityERPCategory:  filepath.Join("source_erp", "PX_CAT_G1V2.csv"),
}

// CSVSource читает выгрузки CRM и ERP из каталога CSV-файлов.
// Пустая ячейка считается NULL.
type CSVSource struct {
	dir    string
	logger *utils.ETLLogger
}

// NewCSVSource создает новый экземпляр CSVSource
func NewCSVSource(dir string, logger *utils.ETLLogger) *CSVSource {
	return &CSVSource{
		dir:    dir,
		logger: logger,
	}
}

// Name возвращает имя источника
func (s *CSVSource) Name() string {
	return "csv:" + s.dir
}

// Load читает все выгрузки. Отсутствующий файл не является ошибкой ввода-вывода:
// сущность просто не попадает в пакет, и ее отсутствие обнаружит проверка структуры.
func (s *CSVSource) Load(ctx context.Context) (models.RawBatch, error) {
	batch := make(models.RawBatch, len(CSVFiles))
	for _, entity := range models.AllEntities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, CSVFiles[entity])
		table, err := readCSVTable(entity, path)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Файл выгрузки %s не найден", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Прочитано %d строк из %s", len(table.Rows), path)
		batch[entity] = table
	}
	return batch, nil
}

func readCSVTable(entity models.Entity, path string) (*models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		// Пустой файл: нет ни одной колонки
		return models.NewRawTable(entity, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка %s: %w", path, err)
	}

	table := models.NewRawTable(entity, header)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
		}

		values := make([]*string, len(record))
		for i, v := range record {
			if v == "" {
				continue
			}
			values[i] = models.StrPtr(v)
		}
		table.Append(values)
	}
	return table, nil
}

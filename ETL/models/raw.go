package models

import (
	"sort"
	"strings"
)

// Entity идентифицирует одну исходную сущность (таблицу выгрузки CRM или ERP)
type Entity string

const (
	EntityCRMCustomers Entity = "crm_cust_info"
	EntityCRMProducts  Entity = "crm_prd_info"
	EntityCRMSales     Entity = "crm_sales_details"
	EntityERPCustomers Entity = "erp_cust_az12"
	EntityERPLocations Entity = "erp_loc_a101"
	EntityERPCategory  Entity = "erp_px_cat_g1v2"
)

// AllEntities перечисляет все исходные сущности в фиксированном порядке
var AllEntities = []Entity{
	EntityCRMCustomers,
	EntityCRMProducts,
	EntityCRMSales,
	EntityERPCustomers,
	EntityERPLocations,
	EntityERPCategory,
}

// requiredColumns - обязательные колонки сырой выгрузки для каждой сущности
var requiredColumns = map[Entity][]string{
	EntityCRMCustomers: {"cst_id", "cst_key", "cst_firstname", "cst_lastname", "cst_marital_status", "cst_gndr", "cst_create_date"},
	EntityCRMProducts:  {"prd_id", "prd_key", "prd_nm", "prd_cost", "prd_line", "prd_start_dt"},
	EntityCRMSales:     {"sls_ord_num", "sls_prd_key", "sls_cust_id", "sls_order_dt", "sls_ship_dt", "sls_due_dt", "sls_sales", "sls_quantity", "sls_price"},
	EntityERPCustomers: {"cid", "bdate", "gen"},
	EntityERPLocations: {"cid", "cntry"},
	EntityERPCategory:  {"id", "cat", "subcat", "maintenance"},
}

// RequiredColumns возвращает обязательные колонки сущности
func (e Entity) RequiredColumns() []string {
	return append([]string(nil), requiredColumns[e]...)
}

// Source возвращает систему-источник сущности ("crm" или "erp")
func (e Entity) Source() string {
	return strings.SplitN(string(e), "_", 2)[0]
}

// RawRecord - нетипизированная строка выгрузки. nil означает NULL
type RawRecord map[string]*string

// Get возвращает значение колонки и признак того, что оно не NULL
func (r RawRecord) Get(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// RawTable содержит одну сырую выгрузку сущности в исходном виде
type RawTable struct {
	Entity  Entity
	Columns []string
	Rows    []RawRecord
}

// NewRawTable создает таблицу и нормализует имена колонок к нижнему регистру
func NewRawTable(entity Entity, columns []string) *RawTable {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = NormalizeColumn(c)
	}
	return &RawTable{Entity: entity, Columns: normalized}
}

// Append добавляет строку, сопоставляя значения с колонками по позиции
func (t *RawTable) Append(values []*string) {
	record := make(RawRecord, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(values) {
			record[c] = values[i]
		} else {
			record[c] = nil
		}
	}
	t.Rows = append(t.Rows, record)
}

// MissingColumns возвращает обязательные колонки, отсутствующие в выгрузке
func (t *RawTable) MissingColumns() []string {
	present := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = true
	}

	var missing []string
	for _, c := range requiredColumns[t.Entity] {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// NormalizeColumn приводит имя колонки к каноническому виду
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

// RawBatch - полный набор сырых выгрузок одного запуска
type RawBatch map[Entity]*RawTable

// Validate проверяет структуру пакета: все сущности на месте и все обязательные колонки присутствуют.
// Ошибка фатальна и возвращается до того, как будет записан какой-либо результат.
func (b RawBatch) Validate() error {
	for _, entity := range AllEntities {
		table, ok := b[entity]
		if !ok || table == nil {
			return &StructuralError{Entity: entity, Missing: []string{"<table>"}}
		}
		if missing := table.MissingColumns(); len(missing) > 0 {
			sort.Strings(missing)
			return &StructuralError{Entity: entity, Missing: missing}
		}
	}
	return nil
}

// RowCounts возвращает количество строк по каждой сущности
func (b RawBatch) RowCounts() map[string]int {
	counts := make(map[string]int, len(b))
	for entity, table := range b {
		counts["bronze."+string(entity)] = len(table.Rows)
	}
	return counts
}

// StrPtr - вспомогательная функция для построения сырых значений
func StrPtr(s string) *string {
	return &s
}

package load

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
)

// bronzeSpec строит описание таблицы bronze по обязательным колонкам сущности.
// Остальные колонки выгрузки сохраняются в extra одним JSON-объектом.
func bronzeSpec(entity models.Entity) tableSpec[models.RawRecord] {
	required := entity.RequiredColumns()
	known := make(map[string]bool, len(required))
	for _, c := range required {
		known[c] = true
	}
	return tableSpec[models.RawRecord]{
		name:    "bronze." + string(entity),
		columns: append(append([]string(nil), required...), "extra"),
		values: func(r models.RawRecord) []interface{} {
			out := make([]interface{}, len(required)+1)
			for i, c := range required {
				if v, ok := r.Get(c); ok {
					out[i] = v
				}
			}
			extra := make(map[string]*string)
			for c, v := range r {
				if !known[c] {
					extra[c] = v
				}
			}
			if len(extra) > 0 {
				// ключи map кодируются в отсортированном порядке
				if b, err := json.Marshal(extra); err == nil {
					out[len(required)] = string(b)
				}
			}
			return out
		},
	}
}

var silverCustomersSpec = tableSpec[models.CleansedCustomer]{
	name:    "silver.crm_cust_info",
	columns: []string{"customer_id", "customer_number", "first_name", "last_name", "marital_status", "gender", "birthdate", "country", "create_date"},
	values: func(c models.CleansedCustomer) []interface{} {
		return []interface{}{c.CustomerID, c.CustomerNumber, c.FirstName, c.LastName, c.MaritalStatus, c.Gender, date(c.Birthdate), c.Country, date(c.CreateDate)}
	},
}

var silverProductsSpec = tableSpec[models.CleansedProduct]{
	name:    "silver.crm_prd_info",
	columns: []string{"product_id", "source_key", "product_number", "category_id", "product_name", "cost", "product_line", "start_date", "end_date"},
	values: func(p models.CleansedProduct) []interface{} {
		return []interface{}{p.ProductID, p.SourceKey, p.ProductNumber, p.CategoryID, p.ProductName, p.Cost, p.ProductLine, date(p.StartDate), date(p.EndDate)}
	},
}

var silverSalesSpec = tableSpec[models.CleansedSalesLine]{
	name:    "silver.crm_sales_details",
	columns: []string{"order_number", "product_number", "customer_id", "order_date", "shipping_date", "due_date", "sales_amount", "quantity", "price", "flagged", "flag_reason"},
	values: func(s models.CleansedSalesLine) []interface{} {
		return []interface{}{s.OrderNumber, s.ProductNumber, s.CustomerID, date(s.OrderDate), date(s.ShippingDate), date(s.DueDate),
			amount(s.SalesAmount), amount(s.Quantity), amount(s.Price), s.Flagged, s.FlagReason}
	},
}

var silverERPCustomersSpec = tableSpec[models.ERPCustomer]{
	name:    "silver.erp_cust_az12",
	columns: []string{"source_id", "customer_number", "birthdate", "gender"},
	values: func(c models.ERPCustomer) []interface{} {
		return []interface{}{c.SourceID, c.CustomerNumber, date(c.Birthdate), c.Gender}
	},
}

var silverERPLocationsSpec = tableSpec[models.ERPLocation]{
	name:    "silver.erp_loc_a101",
	columns: []string{"source_id", "customer_number", "country"},
	values: func(l models.ERPLocation) []interface{} {
		return []interface{}{l.SourceID, l.CustomerNumber, l.Country}
	},
}

var silverERPCategorySpec = tableSpec[models.ERPCategory]{
	name:    "silver.erp_px_cat_g1v2",
	columns: []string{"id", "category", "subcategory", "maintenance"},
	values: func(c models.ERPCategory) []interface{} {
		return []interface{}{c.ID, c.Category, c.Subcategory, c.Maintenance}
	},
}

var goldCustomersSpec = tableSpec[models.DimCustomer]{
	name:    "gold.dim_customers",
	columns: []string{"customer_key", "customer_id", "customer_number", "first_name", "last_name", "country", "marital_status", "gender", "birthdate", "create_date"},
	values: func(c models.DimCustomer) []interface{} {
		return []interface{}{c.CustomerKey, c.CustomerID, c.CustomerNumber, c.FirstName, c.LastName, c.Country, c.MaritalStatus, c.Gender, date(c.Birthdate), date(c.CreateDate)}
	},
}

var goldProductsSpec = tableSpec[models.DimProduct]{
	name:    "gold.dim_products",
	columns: []string{"product_key", "product_id", "product_number", "product_name", "category_id", "category", "subcategory", "maintenance", "cost", "product_line", "start_date"},
	values: func(p models.DimProduct) []interface{} {
		return []interface{}{p.ProductKey, p.ProductID, p.ProductNumber, p.ProductName, p.CategoryID, p.Category, p.Subcategory, p.Maintenance, p.Cost, p.ProductLine, date(p.StartDate)}
	},
}

var goldSalesSpec = tableSpec[models.FactSales]{
	name:    "gold.fact_sales",
	columns: []string{"order_number", "product_key", "customer_key", "order_date", "shipping_date", "due_date", "sales_amount", "quantity", "price"},
	values: func(f models.FactSales) []interface{} {
		return []interface{}{f.OrderNumber, f.ProductKey, f.CustomerKey, date(f.OrderDate), date(f.ShippingDate), date(f.DueDate),
			amount(f.SalesAmount), amount(f.Quantity), amount(f.Price)}
	},
}

// stagedViolation - нарушение с привязкой к запуску
type stagedViolation struct {
	runID string
	stage string
	quality.Violation
}

var violationsSpec = tableSpec[stagedViolation]{
	name:    "quality_violations",
	columns: []string{"run_id", "stage", "rule_name", "category", "severity", "table_name", "row_keys", "description"},
	values: func(v stagedViolation) []interface{} {
		keys := truncateRunes(strings.Join(v.Keys, ","), 255)
		return []interface{}{v.runID, v.stage, v.Rule, string(v.Category), string(v.Severity), v.Table, keys, v.Description}
	},
}

// truncateRunes обрезает строку до n символов: VARCHAR считает символы, а не байты
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// date передает NULL вместо нулевого указателя
func date(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func amount(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

const silverProducts = "silver.crm_prd_info"

// SplitProductKey делит ключ продукта CRM на категорию и код изделия:
// первые два сегмента через "-" образуют category_id (соединяются "_"),
// остаток - код изделия. CO-RF-FR-R92B-58 -> CO_RF, FR-R92B-58.
func SplitProductKey(key string) (categoryID, itemCode string, ok bool) {
	parts := strings.SplitN(key, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", key, false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}

// CleanseProducts очищает выгрузку продуктов CRM и выводит end_date каждой версии
func CleanseProducts(rows []models.RawRecord) Result[models.CleansedProduct] {
	var res Result[models.CleansedProduct]

	for i, raw := range rows {
		key, ok := field(raw, "prd_key")
		if !ok {
			res.reject(models.EntityCRMProducts, i, "", "missing_product_key", raw)
			continue
		}

		id, _ := field(raw, "prd_id")
		name, _ := field(raw, "prd_nm")
		costRaw, _ := field(raw, "prd_cost")
		lineCode, _ := field(raw, "prd_line")
		startRaw, _ := field(raw, "prd_start_dt")

		categoryID, itemCode, parsed := SplitProductKey(key)
		if !parsed {
			res.issue(models.IssueMalformedValue, silverProducts, key, "product_number", key, reasonBadKeyFormat)
		}

		cost := ParseCost(costRaw)
		if cost.Defaulted() {
			res.issue(models.IssueMalformedValue, silverProducts, itemCode, "cost", costRaw, cost.Reason)
		}

		start := ParseISODate(startRaw)
		if start.Defaulted() {
			res.issue(models.IssueMalformedValue, silverProducts, itemCode, "start_date", startRaw, start.Reason)
		}

		res.Rows = append(res.Rows, models.CleansedProduct{
			ProductID:     id,
			SourceKey:     key,
			ProductNumber: itemCode,
			CategoryID:    categoryID,
			ProductName:   name,
			Cost:          cost.Value,
			ProductLine:   models.ProductLineFromCode(lineCode),
			StartDate:     start.Value,
		})
	}

	deriveEndDates(res.Rows)
	return res
}

// deriveEndDates проставляет end_date = (следующая start_date той же версии продукта) - 1 день.
// Последняя версия остается актуальной (end_date = NULL). Порядок строк не меняется.
func deriveEndDates(products []models.CleansedProduct) {
	versions := make(map[string][]int)
	var order []string
	for i, p := range products {
		if _, ok := versions[p.ProductNumber]; !ok {
			order = append(order, p.ProductNumber)
		}
		versions[p.ProductNumber] = append(versions[p.ProductNumber], i)
	}

	for _, number := range order {
		idx := versions[number]
		sort.SliceStable(idx, func(a, b int) bool {
			return earlier(products[idx[a]].StartDate, products[idx[b]].StartDate)
		})
		for k, i := range idx {
			if k == len(idx)-1 {
				products[i].EndDate = nil
				continue
			}
			products[i].EndDate = dayBefore(products[idx[k+1]].StartDate)
		}
	}
}

// earlier упорядочивает даты, считая NULL раньше любой известной даты
func earlier(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	}
	return a.Before(*b)
}

// newerThan сообщает, что дата a строго позже b (NULL никогда не новее)
func newerThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

package transform

import (
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// CleanseERPCustomers очищает демографию клиентов ERP.
// Дата рождения позже asOf заменяется на NULL.
func CleanseERPCustomers(rows []models.RawRecord, asOf time.Time, prefixes []string) Result[models.ERPCustomer] {
	var res Result[models.ERPCustomer]
	const table = "silver.erp_cust_az12"

	for i, raw := range rows {
		cid, ok := field(raw, "cid")
		if !ok {
			res.reject(models.EntityERPCustomers, i, "", "missing_customer_key", raw)
			continue
		}
		birthRaw, _ := field(raw, "bdate")
		genderCode, _ := field(raw, "gen")

		number := models.NormalizeERPCustomerKey(cid, prefixes)

		birth := ParseISODate(birthRaw)
		if birth.Defaulted() {
			res.issue(models.IssueMalformedValue, table, number, "birthdate", birthRaw, birth.Reason)
		}
		if birth.Value != nil && birth.Value.After(asOf) {
			res.issue(models.IssueMalformedValue, table, number, "birthdate", birthRaw, reasonFutureDate)
			birth.Value = nil
		}

		res.Rows = append(res.Rows, models.ERPCustomer{
			SourceID:       cid,
			CustomerNumber: number,
			Birthdate:      birth.Value,
			Gender:         models.GenderFromERPCode(genderCode),
		})
	}

	return res
}

// CleanseERPLocations очищает страны клиентов ERP
func CleanseERPLocations(rows []models.RawRecord, prefixes []string) Result[models.ERPLocation] {
	var res Result[models.ERPLocation]

	for i, raw := range rows {
		cid, ok := field(raw, "cid")
		if !ok {
			res.reject(models.EntityERPLocations, i, "", "missing_customer_key", raw)
			continue
		}
		country, _ := field(raw, "cntry")

		res.Rows = append(res.Rows, models.ERPLocation{
			SourceID:       cid,
			CustomerNumber: models.NormalizeERPCustomerKey(cid, prefixes),
			Country:        models.NormalizeCountry(country),
		})
	}

	return res
}

// CleanseERPCategories очищает справочник категорий (только обрезка пробелов)
func CleanseERPCategories(rows []models.RawRecord) Result[models.ERPCategory] {
	var res Result[models.ERPCategory]

	for i, raw := range rows {
		id, ok := field(raw, "id")
		if !ok {
			res.reject(models.EntityERPCategory, i, "", "missing_category_id", raw)
			continue
		}
		category, _ := field(raw, "cat")
		subcategory, _ := field(raw, "subcat")
		maintenance, _ := field(raw, "maintenance")

		res.Rows = append(res.Rows, models.ERPCategory{
			ID:          id,
			Category:    category,
			Subcategory: subcategory,
			Maintenance: maintenance,
		})
	}

	return res
}

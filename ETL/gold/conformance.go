package gold

import (
	"fmt"
	"sort"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

const (
	silverERPCustomers = "silver.erp_cust_az12"
	silverERPLocations = "silver.erp_loc_a101"
	silverProducts     = "silver.crm_prd_info"
)

// ResolvedCustomer - клиент CRM, дополненный атрибутами ERP
type ResolvedCustomer struct {
	models.CleansedCustomer
}

// ResolvedProduct - актуальная версия продукта с атрибутами категории ERP
type ResolvedProduct struct {
	models.CleansedProduct
	Category    string
	Subcategory string
	Maintenance string
}

// Conformed - единое представление сущностей обоих источников
type Conformed struct {
	Customers map[string]ResolvedCustomer // customer_id -> клиент
	Products  map[string]ResolvedProduct  // product_number -> продукт
	Issues    []models.Issue
}

// erpProfile - атрибуты клиента из обеих таблиц ERP
type erpProfile struct {
	customer *models.ERPCustomer
	country  string
}

// Conform сопоставляет клиентов CRM с демографией и страной из ERP и выбирает
// актуальные версии продуктов. Пол: значение CRM, если оно известно, иначе ERP.
func Conform(silver *models.SilverTables, prefixes []string) Conformed {
	if len(prefixes) == 0 {
		prefixes = models.DefaultERPKeyPrefixes
	}
	folder := newKeyFolder()
	out := Conformed{
		Customers: make(map[string]ResolvedCustomer, len(silver.Customers)),
		Products:  make(map[string]ResolvedProduct),
	}

	profiles := make(map[string]*erpProfile)
	profile := func(sourceID string) *erpProfile {
		key := folder.fold(models.NormalizeERPCustomerKey(sourceID, prefixes))
		p, ok := profiles[key]
		if !ok {
			p = &erpProfile{}
			profiles[key] = p
		}
		return p
	}
	for i := range silver.ERPCustomers {
		p := profile(silver.ERPCustomers[i].SourceID)
		if p.customer == nil {
			p.customer = &silver.ERPCustomers[i]
		}
	}
	for _, loc := range silver.ERPLocations {
		p := profile(loc.SourceID)
		if p.country == "" || p.country == models.Unknown {
			p.country = models.NormalizeCountry(loc.Country)
		}
	}

	matched := make(map[string]bool, len(profiles))
	for _, c := range silver.Customers {
		resolved := c
		if resolved.Country == "" {
			resolved.Country = models.Unknown
		}

		key := folder.fold(c.CustomerNumber)
		if p, ok := profiles[key]; ok {
			matched[key] = true
			if p.customer != nil {
				erp := p.customer
				if resolved.Birthdate == nil {
					resolved.Birthdate = erp.Birthdate
				}
				if c.Gender != models.Unknown && erp.Gender != models.Unknown && c.Gender != erp.Gender {
					out.Issues = append(out.Issues, models.Issue{
						Kind:   models.IssueIdentityConflict,
						Table:  silverERPCustomers,
						Key:    c.CustomerID,
						Column: "gender",
						Value:  fmt.Sprintf("%s/%s", c.Gender, erp.Gender),
						Reason: "CRM and ERP disagree on gender, CRM value kept",
					})
				}
				resolved.Gender = firstKnown(c.Gender, erp.Gender, models.Unknown)
			}
			resolved.Country = firstKnown(p.country, resolved.Country, models.Unknown)
		}

		out.Customers[c.CustomerID] = ResolvedCustomer{CleansedCustomer: resolved}
	}

	unmatched := make([]string, 0, len(profiles)-len(matched))
	for key := range profiles {
		if !matched[key] {
			unmatched = append(unmatched, key)
		}
	}
	sort.Strings(unmatched)
	for _, key := range unmatched {
		out.Issues = append(out.Issues, models.Issue{
			Kind:   models.IssueReferentialGap,
			Table:  silverERPLocations,
			Key:    key,
			Column: "customer_number",
			Value:  key,
			Reason: "ERP customer has no CRM counterpart",
		})
	}

	categories := make(map[string]models.ERPCategory, len(silver.ERPCategory))
	for _, cat := range silver.ERPCategory {
		if _, ok := categories[cat.ID]; !ok {
			categories[cat.ID] = cat
		}
	}

	for _, p := range currentProducts(silver.Products) {
		resolved := ResolvedProduct{CleansedProduct: p}
		if cat, ok := categories[p.CategoryID]; ok {
			resolved.Category = cat.Category
			resolved.Subcategory = cat.Subcategory
			resolved.Maintenance = cat.Maintenance
		} else {
			out.Issues = append(out.Issues, models.Issue{
				Kind:   models.IssueReferentialGap,
				Table:  silverProducts,
				Key:    p.ProductNumber,
				Column: "category_id",
				Value:  p.CategoryID,
				Reason: "category not found in ERP catalogue",
			})
		}
		out.Products[p.ProductNumber] = resolved
	}

	return out
}

// currentProducts оставляет по одной версии на product_number - с самой поздней
// start_date; при равных датах побеждает более поздняя строка входа
func currentProducts(products []models.CleansedProduct) []models.CleansedProduct {
	index := make(map[string]int)
	var current []models.CleansedProduct
	for _, p := range products {
		i, ok := index[p.ProductNumber]
		if !ok {
			index[p.ProductNumber] = len(current)
			current = append(current, p)
			continue
		}
		if !newer(current[i].StartDate, p.StartDate) {
			current[i] = p
		}
	}
	return current
}

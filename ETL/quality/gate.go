package quality

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// Gate - контроль качества после каждого этапа. Только сообщает о дефектах,
// ничего не откатывает и не перезапускает.
type Gate struct {
	floorRatio float64
}

// NewGate создает контроль качества. floorRatio - допустимая доля строк
// относительно предыдущего запуска (например, 0.9)
func NewGate(floorRatio float64) *Gate {
	return &Gate{floorRatio: floorRatio}
}

// CheckSilver проверяет слой silver. previous - количество строк предыдущего
// снимка по таблицам (может быть nil)
func (g *Gate) CheckSilver(t *models.SilverTables, issues []models.Issue, rejected []models.RejectedRecord, previous map[string]int) []Violation {
	var out []Violation

	customerKey := func(c models.CleansedCustomer) string { return c.CustomerID }
	out = append(out, Check("silver.crm_cust_info", t.Customers,
		RowCountFloor[models.CleansedCustomer](previous["silver.crm_cust_info"], g.floorRatio),
		NotNull("customer_id", SeverityError, customerKey, func(c models.CleansedCustomer) bool { return c.CustomerID != "" }),
		NotNull("customer_number", SeverityWarn, customerKey, func(c models.CleansedCustomer) bool { return c.CustomerNumber != "" }),
		UniqueKey("customer_id", SeverityError, customerKey),
		UniqueKey("customer_number", SeverityError, func(c models.CleansedCustomer) string { return c.CustomerNumber }),
		EnumMember("marital_status", models.MaritalStatuses, customerKey, func(c models.CleansedCustomer) string { return c.MaritalStatus }),
		EnumMember("gender", models.Genders, customerKey, func(c models.CleansedCustomer) string { return c.Gender }),
	)...)

	productKey := func(p models.CleansedProduct) string { return p.ProductNumber }
	out = append(out, Check("silver.crm_prd_info", t.Products,
		RowCountFloor[models.CleansedProduct](previous["silver.crm_prd_info"], g.floorRatio),
		NotNull("product_number", SeverityError, productKey, func(p models.CleansedProduct) bool { return p.ProductNumber != "" }),
		UniqueKey("product_version", SeverityWarn, func(p models.CleansedProduct) string {
			return p.ProductNumber + "@" + formatDate(p.StartDate)
		}),
		EnumMember("product_line", models.ProductLines, productKey, func(p models.CleansedProduct) string { return p.ProductLine }),
		Consistency("product_validity_interval", SeverityWarn, productKey, checkValidityInterval),
		Consistency("product_cost_non_negative", SeverityError, productKey, func(p models.CleansedProduct) string {
			if p.Cost < 0 {
				return fmt.Sprintf("отрицательная себестоимость %d", p.Cost)
			}
			return ""
		}),
	)...)

	salesKey := func(s models.CleansedSalesLine) string { return s.OrderNumber }
	out = append(out, Check("silver.crm_sales_details", t.Sales,
		RowCountFloor[models.CleansedSalesLine](previous["silver.crm_sales_details"], g.floorRatio),
		NotNull("order_number", SeverityError, salesKey, func(s models.CleansedSalesLine) bool { return s.OrderNumber != "" }),
		NotNull("product_number", SeverityError, salesKey, func(s models.CleansedSalesLine) bool { return s.ProductNumber != "" }),
		NotNull("customer_id", SeverityError, salesKey, func(s models.CleansedSalesLine) bool { return s.CustomerID != "" }),
		NotNull("order_date", SeverityWarn, salesKey, func(s models.CleansedSalesLine) bool { return s.OrderDate != nil }),
		Consistency("sales_amount_identity", SeverityError, salesKey, checkSalesIdentity),
		Consistency("sales_flagged", SeverityWarn, salesKey, func(s models.CleansedSalesLine) string {
			if s.Flagged {
				return s.FlagReason
			}
			return ""
		}),
	)...)

	erpKey := func(c models.ERPCustomer) string { return c.CustomerNumber }
	out = append(out, Check("silver.erp_cust_az12", t.ERPCustomers,
		RowCountFloor[models.ERPCustomer](previous["silver.erp_cust_az12"], g.floorRatio),
		UniqueKey("customer_number", SeverityWarn, erpKey),
		EnumMember("gender", models.Genders, erpKey, func(c models.ERPCustomer) string { return c.Gender }),
	)...)

	out = append(out, Check("silver.erp_loc_a101", t.ERPLocations,
		RowCountFloor[models.ERPLocation](previous["silver.erp_loc_a101"], g.floorRatio),
		UniqueKey("customer_number", SeverityWarn, func(l models.ERPLocation) string { return l.CustomerNumber }),
		NotNull("country", SeverityInfo, func(l models.ERPLocation) string { return l.CustomerNumber },
			func(l models.ERPLocation) bool { return l.Country != models.Unknown }),
	)...)

	out = append(out, Check("silver.erp_px_cat_g1v2", t.ERPCategory,
		RowCountFloor[models.ERPCategory](previous["silver.erp_px_cat_g1v2"], g.floorRatio),
		UniqueKey("id", SeverityError, func(c models.ERPCategory) string { return c.ID }),
	)...)

	out = append(out, FromRejected(rejected)...)
	out = append(out, FromIssues(issues)...)
	return out
}

// CheckGold проверяет витрину. gaps - строки продаж, исключенные из факта
func (g *Gate) CheckGold(t *models.GoldTables, gaps []models.ReferentialGap, issues []models.Issue, previous map[string]int) []Violation {
	var out []Violation

	customerKeys := make(map[int]bool, len(t.Customers))
	for _, c := range t.Customers {
		customerKeys[c.CustomerKey] = true
	}
	productKeys := make(map[int]bool, len(t.Products))
	for _, p := range t.Products {
		productKeys[p.ProductKey] = true
	}

	dimCustomerKey := func(c models.DimCustomer) string { return c.CustomerID }
	out = append(out, Check("gold.dim_customers", t.Customers,
		RowCountFloor[models.DimCustomer](previous["gold.dim_customers"], g.floorRatio),
		UniqueKey("customer_key", SeverityError, func(c models.DimCustomer) string { return strconv.Itoa(c.CustomerKey) }),
		UniqueKey("customer_id", SeverityError, dimCustomerKey),
		UniqueKey("customer_number", SeverityError, func(c models.DimCustomer) string { return c.CustomerNumber }),
		EnumMember("gender", models.Genders, dimCustomerKey, func(c models.DimCustomer) string { return c.Gender }),
		EnumMember("marital_status", models.MaritalStatuses, dimCustomerKey, func(c models.DimCustomer) string { return c.MaritalStatus }),
	)...)

	dimProductKey := func(p models.DimProduct) string { return p.ProductNumber }
	out = append(out, Check("gold.dim_products", t.Products,
		RowCountFloor[models.DimProduct](previous["gold.dim_products"], g.floorRatio),
		UniqueKey("product_key", SeverityError, func(p models.DimProduct) string { return strconv.Itoa(p.ProductKey) }),
		UniqueKey("product_number", SeverityError, dimProductKey),
		EnumMember("product_line", models.ProductLines, dimProductKey, func(p models.DimProduct) string { return p.ProductLine }),
		NotNull("category", SeverityInfo, dimProductKey, func(p models.DimProduct) bool { return p.Category != "" }),
	)...)

	factKey := func(f models.FactSales) string { return f.OrderNumber }
	out = append(out, Check("gold.fact_sales", t.Sales,
		RowCountFloor[models.FactSales](previous["gold.fact_sales"], g.floorRatio),
		Referential("customer_key", factKey, func(f models.FactSales) bool { return customerKeys[f.CustomerKey] }),
		Referential("product_key", factKey, func(f models.FactSales) bool { return productKeys[f.ProductKey] }),
		UniqueKey("order_line", SeverityWarn, func(f models.FactSales) string {
			return f.OrderNumber + "/" + strconv.Itoa(f.ProductKey)
		}),
		Consistency("sales_amount_identity", SeverityError, factKey, func(f models.FactSales) string {
			return checkIdentity(f.SalesAmount, f.Quantity, f.Price)
		}),
		Consistency("date_order", SeverityWarn, factKey, func(f models.FactSales) string {
			return checkDateOrder(f.OrderDate, f.ShippingDate, f.DueDate)
		}),
	)...)

	out = append(out, FromGaps(gaps)...)
	out = append(out, FromIssues(issues)...)
	return out
}

// FromGaps переводит строки продаж без соответствия в измерениях в нарушения
func FromGaps(gaps []models.ReferentialGap) []Violation {
	out := make([]Violation, 0, len(gaps))
	for _, gap := range gaps {
		ref := gap.ProductNumber
		if gap.Dimension == "dim_customers" {
			ref = gap.CustomerID
		}
		out = append(out, Violation{
			Rule:        "referential_gap_" + gap.Dimension,
			Category:    CategoryReferential,
			Severity:    SeverityError,
			Table:       "gold.fact_sales",
			Keys:        []string{gap.OrderNumber, ref},
			Description: fmt.Sprintf("строка заказа %s исключена: ключ %s не найден в %s", gap.OrderNumber, ref, gap.Dimension),
		})
	}
	return out
}

// FromIssues переводит дефекты очистки и согласования в нарушения
func FromIssues(issues []models.Issue) []Violation {
	out := make([]Violation, 0, len(issues))
	for _, issue := range issues {
		v := Violation{
			Rule:  string(issue.Kind) + "_" + issue.Column,
			Table: issue.Table,
			Keys:  []string{issue.Key},
			Description: fmt.Sprintf("колонка %s, значение %q: %s",
				issue.Column, issue.Value, issue.Reason),
		}
		switch issue.Kind {
		case models.IssueMalformedValue:
			v.Category, v.Severity = CategoryMalformedValue, SeverityInfo
		case models.IssueIdentityConflict:
			v.Category, v.Severity = CategoryIdentity, SeverityWarn
		case models.IssueReferentialGap:
			v.Category, v.Severity = CategoryReferential, SeverityWarn
		default:
			v.Category, v.Severity = CategoryConsistency, SeverityInfo
		}
		out = append(out, v)
	}
	return out
}

// FromRejected переводит отклоненные строки в нарушения. Вытесненные дубликаты
// считаются информационными, строки без ключа - ошибками
func FromRejected(rejected []models.RejectedRecord) []Violation {
	out := make([]Violation, 0, len(rejected))
	for _, r := range rejected {
		v := Violation{
			Rule:        "rejected_" + r.Reason,
			Table:       "bronze." + string(r.Entity),
			Keys:        []string{rowKey(r.Key, r.RowIndex)},
			Description: fmt.Sprintf("строка %d отклонена: %s", r.RowIndex, r.Reason),
		}
		if r.Reason == "superseded" {
			v.Category, v.Severity = CategoryIdentity, SeverityInfo
		} else {
			v.Category, v.Severity = CategoryNotNull, SeverityError
		}
		out = append(out, v)
	}
	return out
}

func checkSalesIdentity(s models.CleansedSalesLine) string {
	return checkIdentity(s.SalesAmount, s.Quantity, s.Price)
}

// checkIdentity проверяет sales_amount = quantity * price, если все три значения положительны
func checkIdentity(sales, qty, price *int64) string {
	if sales == nil || qty == nil || price == nil || *qty <= 0 || *price <= 0 {
		return ""
	}
	if *qty > math.MaxInt64 / *price {
		return fmt.Sprintf("quantity %d * price %d overflows sales_amount", *qty, *price)
	}
	if *sales != *qty**price {
		return fmt.Sprintf("sales_amount %d != quantity %d * price %d", *sales, *qty, *price)
	}
	return ""
}

func checkDateOrder(order, ship, due *time.Time) string {
	if order == nil {
		return ""
	}
	if ship != nil && ship.Before(*order) {
		return "shipping_date раньше order_date"
	}
	if due != nil && due.Before(*order) {
		return "due_date раньше order_date"
	}
	return ""
}

func checkValidityInterval(p models.CleansedProduct) string {
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Sprintf("end_date %s раньше start_date %s", formatDate(p.EndDate), formatDate(p.StartDate))
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.Format("2006-01-02")
}

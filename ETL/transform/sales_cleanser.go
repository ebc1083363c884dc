package transform

import (
	"math"
	"strings"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

const silverSales = "silver.crm_sales_details"

// CleanseSales очищает строки заказов: разбирает даты YYYYMMDD и
// восстанавливает sales_amount / quantity / price по тождеству
// sales_amount = quantity * price.
func CleanseSales(rows []models.RawRecord) Result[models.CleansedSalesLine] {
	var res Result[models.CleansedSalesLine]

	for i, raw := range rows {
		order, ok := field(raw, "sls_ord_num")
		if !ok {
			res.reject(models.EntityCRMSales, i, "", "missing_order_number", raw)
			continue
		}

		productNumber, _ := field(raw, "sls_prd_key")
		customerID, _ := field(raw, "sls_cust_id")

		line := models.CleansedSalesLine{
			OrderNumber:   order,
			ProductNumber: productNumber,
			CustomerID:    customerID,
			OrderDate:     res.parseSalesDate(raw, order, "sls_order_dt", "order_date"),
			ShippingDate:  res.parseSalesDate(raw, order, "sls_ship_dt", "shipping_date"),
			DueDate:       res.parseSalesDate(raw, order, "sls_due_dt", "due_date"),
		}

		var flags []string
		if before(line.ShippingDate, line.OrderDate) {
			flags = append(flags, "shipping_date before order_date")
		}
		if before(line.DueDate, line.OrderDate) {
			flags = append(flags, "due_date before order_date")
		}

		salesRaw, _ := field(raw, "sls_sales")
		qtyRaw, _ := field(raw, "sls_quantity")
		priceRaw, _ := field(raw, "sls_price")

		amounts := RepairAmounts(ParseAmount(salesRaw), ParseAmount(qtyRaw), ParseAmount(priceRaw))
		line.SalesAmount, line.Quantity, line.Price = amounts.Sales, amounts.Quantity, amounts.Price
		if amounts.Recomputed != "" {
			res.issue(models.IssueMalformedValue, silverSales, order, amounts.Recomputed,
				amounts.Original, "recomputed from sales_amount = quantity * price")
		}
		if amounts.Flag != "" {
			flags = append(flags, amounts.Flag)
		}

		if len(flags) > 0 {
			line.Flagged = true
			line.FlagReason = strings.Join(flags, "; ")
		}

		res.Rows = append(res.Rows, line)
	}

	return res
}

func (r *Result[T]) parseSalesDate(raw models.RawRecord, order, column, target string) *time.Time {
	value, _ := field(raw, column)
	parsed := ParseDate8(value)
	if parsed.Defaulted() {
		r.issue(models.IssueMalformedValue, silverSales, order, target, value, parsed.Reason)
	}
	return parsed.Value
}

// before сообщает, что обе даты известны и a строго раньше b
// mulPositive перемножает положительные значения; ok=false при переполнении int64
func mulPositive(a, b int64) (int64, bool) {
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}

// Amounts - восстановленная тройка сумма / количество / цена
type Amounts struct {
	Sales, Quantity, Price *int64

	// Recomputed - имя пересчитанной колонки (не более одной)
	Recomputed string
	// Original - исходное значение пересчитанной колонки
	Original string
	// Flag - причина, по которой строку не удалось привести к тождеству
	Flag string
}

// RepairAmounts восстанавливает не более одной из трех величин по двум другим.
// Непригодное значение - NULL, ноль, отрицательное или не число. Если
// непригодных два и больше, значения сохраняются как есть и строка помечается.
func RepairAmounts(sales, qty, price Parsed[*int64]) Amounts {
	a := Amounts{Sales: sales.Value, Quantity: qty.Value, Price: price.Value}

	invalid := 0
	for _, p := range []Parsed[*int64]{sales, qty, price} {
		if !p.Valid {
			invalid++
		}
	}

	switch {
	case invalid > 1:
		a.Flag = "sales_amount/quantity/price cannot be reconciled"
	case invalid == 0 || !sales.Valid:
		product, ok := mulPositive(*qty.Value, *price.Value)
		if !ok {
			a.Flag = "quantity * price overflows sales_amount"
			break
		}
		if sales.Valid && *sales.Value == product {
			break
		}
		a.Original = formatInt(sales.Value)
		a.Sales = int64Ptr(product)
		a.Recomputed = "sales_amount"
	case !price.Valid:
		if *sales.Value%*qty.Value != 0 {
			a.Flag = "price not derivable: sales_amount not divisible by quantity"
			break
		}
		a.Original = formatInt(price.Value)
		a.Price = int64Ptr(*sales.Value / *qty.Value)
		a.Recomputed = "price"
	case !qty.Valid:
		if *sales.Value%*price.Value != 0 {
			a.Flag = "quantity not derivable: sales_amount not divisible by price"
			break
		}
		a.Original = formatInt(qty.Value)
		a.Quantity = int64Ptr(*sales.Value / *price.Value)
		a.Recomputed = "quantity"
	}

	return a
}

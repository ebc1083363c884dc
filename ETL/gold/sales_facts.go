package gold

import (
	"strings"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// Измерения, на которые может ссылаться строка продаж
const (
	DimensionCustomer = "dim_customers"
	DimensionProduct  = "dim_products"
)

// BuildSalesFacts связывает очищенные строки продаж с суррогатными ключами измерений.
// Строка, для которой не нашелся клиент или продукт, в факт не попадает и
// возвращается как ReferentialGap (по одной записи на каждое отсутствующее измерение).
// Порядок фактов совпадает с порядком входных строк.
func BuildSalesFacts(sales []models.CleansedSalesLine, customers CustomerDimension, products ProductDimension) ([]models.FactSales, []models.ReferentialGap) {
	facts := make([]models.FactSales, 0, len(sales))
	var gaps []models.ReferentialGap

	for _, line := range sales {
		customerKey, customerOK := customers.Key(line.CustomerID)
		productKey, productOK := products.Key(line.ProductNumber)

		if !productOK {
			gaps = append(gaps, gapFor(line, DimensionProduct))
		}
		if !customerOK {
			gaps = append(gaps, gapFor(line, DimensionCustomer))
		}
		if !productOK || !customerOK {
			continue
		}

		facts = append(facts, models.FactSales{
			OrderNumber:  line.OrderNumber,
			ProductKey:   productKey,
			CustomerKey:  customerKey,
			OrderDate:    line.OrderDate,
			ShippingDate: line.ShippingDate,
			DueDate:      line.DueDate,
			SalesAmount:  line.SalesAmount,
			Quantity:     line.Quantity,
			Price:        line.Price,
		})
	}

	return facts, gaps
}

func gapFor(line models.CleansedSalesLine, dimension string) models.ReferentialGap {
	return models.ReferentialGap{
		OrderNumber:   line.OrderNumber,
		ProductNumber: line.ProductNumber,
		CustomerID:    line.CustomerID,
		Dimension:     dimension,
	}
}

func joinKeys(keys []string) string {
	return strings.Join(keys, ",")
}

package models

import (
	"time"
)

// DimCustomer представляет измерение клиентов (gold.dim_customers)
type DimCustomer struct {
	CustomerKey    int        `json:"customer_key"`
	CustomerID     string     `json:"customer_id"`
	CustomerNumber string     `json:"customer_number"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Country        string     `json:"country"`
	MaritalStatus  string     `json:"marital_status"`
	Gender         string     `json:"gender"`
	Birthdate      *time.Time `json:"birthdate"`
	CreateDate     *time.Time `json:"create_date"`
}

// DimProduct представляет измерение продуктов (gold.dim_products)
type DimProduct struct {
	ProductKey    int        `json:"product_key"`
	ProductID     string     `json:"product_id"`
	ProductNumber string     `json:"product_number"`
	ProductName   string     `json:"product_name"`
	CategoryID    string     `json:"category_id"`
	Category      string     `json:"category"`
	Subcategory   string     `json:"subcategory"`
	Maintenance   string     `json:"maintenance"`
	Cost          int64      `json:"cost"`
	ProductLine   string     `json:"product_line"`
	StartDate     *time.Time `json:"start_date"`
}

// FactSales представляет факт продаж (gold.fact_sales). Гранулярность - строка заказа
type FactSales struct {
	OrderNumber  string     `json:"order_number"`
	ProductKey   int        `json:"product_key"`
	CustomerKey  int        `json:"customer_key"`
	OrderDate    *time.Time `json:"order_date"`
	ShippingDate *time.Time `json:"shipping_date"`
	DueDate      *time.Time `json:"due_date"`
	SalesAmount  *int64     `json:"sales_amount"`
	Quantity     *int64     `json:"quantity"`
	Price        *int64     `json:"price"`
}

// ReferentialGap - строка продаж, бизнес-ключ которой не найден в измерении
type ReferentialGap struct {
	OrderNumber   string `json:"order_number"`
	ProductNumber string `json:"product_number"`
	CustomerID    string `json:"customer_id"`
	Dimension     string `json:"dimension"`
}

// GoldTables - полный результат этапа сборки витрины
type GoldTables struct {
	Customers []DimCustomer `json:"dim_customers"`
	Products  []DimProduct  `json:"dim_products"`
	Sales     []FactSales   `json:"fact_sales"`
}

// RowCounts возвращает количество строк по таблицам слоя gold
func (g *GoldTables) RowCounts() map[string]int {
	return map[string]int{
		"gold.dim_customers": len(g.Customers),
		"gold.dim_products":  len(g.Products),
		"gold.fact_sales":    len(g.Sales),
	}
}

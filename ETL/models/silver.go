package models

import (
	"time"
)

// CleansedCustomer - очищенная запись клиента CRM (silver.crm_cust_info)
type CleansedCustomer struct {
	CustomerID     string     `json:"customer_id"`
	CustomerNumber string     `json:"customer_number"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	MaritalStatus  string     `json:"marital_status"`
	Gender         string     `json:"gender"`
	Birthdate      *time.Time `json:"birthdate"`
	Country        string     `json:"country"` // заполняется на этапе согласования
	CreateDate     *time.Time `json:"create_date"`
}

// CleansedProduct - одна версия продукта (silver.crm_prd_info)
type CleansedProduct struct {
	ProductID     string     `json:"product_id"`
	SourceKey     string     `json:"source_key"`
	ProductNumber string     `json:"product_number"`
	CategoryID    string     `json:"category_id"`
	ProductName   string     `json:"product_name"`
	Cost          int64      `json:"cost"`
	ProductLine   string     `json:"product_line"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

// IsCurrent сообщает, является ли версия продукта актуальной
func (p CleansedProduct) IsCurrent() bool {
	return p.EndDate == nil
}

// CleansedSalesLine - строка заказа (silver.crm_sales_details)
type CleansedSalesLine struct {
	OrderNumber   string     `json:"order_number"`
	ProductNumber string     `json:"product_number"`
	CustomerID    string     `json:"customer_id"`
	OrderDate     *time.Time `json:"order_date"`
	ShippingDate  *time.Time `json:"shipping_date"`
	DueDate       *time.Time `json:"due_date"`
	SalesAmount   *int64     `json:"sales_amount"`
	Quantity      *int64     `json:"quantity"`
	Price         *int64     `json:"price"`
	Flagged       bool       `json:"flagged"`
	FlagReason    string     `json:"flag_reason,omitempty"`
}

// ERPCustomer - очищенная запись демографии клиента ERP (silver.erp_cust_az12)
type ERPCustomer struct {
	SourceID       string     `json:"source_id"`
	CustomerNumber string     `json:"customer_number"`
	Birthdate      *time.Time `json:"birthdate"`
	Gender         string     `json:"gender"`
}

// ERPLocation - страна клиента ERP (silver.erp_loc_a101)
type ERPLocation struct {
	SourceID       string `json:"source_id"`
	CustomerNumber string `json:"customer_number"`
	Country        string `json:"country"`
}

// ERPCategory - справочник категорий продуктов ERP (silver.erp_px_cat_g1v2)
type ERPCategory struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Maintenance string `json:"maintenance"`
}

// SilverTables - полный результат этапа очистки. Значение неизменяемо после построения
type SilverTables struct {
	Customers    []CleansedCustomer  `json:"crm_cust_info"`
	Products     []CleansedProduct   `json:"crm_prd_info"`
	Sales        []CleansedSalesLine `json:"crm_sales_details"`
	ERPCustomers []ERPCustomer       `json:"erp_cust_az12"`
	ERPLocations []ERPLocation       `json:"erp_loc_a101"`
	ERPCategory  []ERPCategory       `json:"erp_px_cat_g1v2"`
}

// RowCounts возвращает количество строк по таблицам слоя silver
func (s *SilverTables) RowCounts() map[string]int {
	return map[string]int{
		"silver.crm_cust_info":     len(s.Customers),
		"silver.crm_prd_info":      len(s.Products),
		"silver.crm_sales_details": len(s.Sales),
		"silver.erp_cust_az12":     len(s.ERPCustomers),
		"silver.erp_loc_a101":      len(s.ERPLocations),
		"silver.erp_px_cat_g1v2":   len(s.ERPCategory),
	}
}

// RejectedRecord - сырая строка, не прошедшая очистку
type RejectedRecord struct {
	Entity   Entity    `json:"entity"`
	RowIndex int       `json:"row_index"`
	Key      string    `json:"key"`
	Reason   string    `json:"reason"`
	Raw      RawRecord `json:"raw"`
}

// IssueKind - категория дефекта, обнаруженного при очистке или согласовании
type IssueKind string

const (
	IssueMalformedValue   IssueKind = "malformed_value"
	IssueIdentityConflict IssueKind = "identity_conflict"
	IssueReferentialGap   IssueKind = "referential_gap"
)

// Issue - восстановленный дефект отдельного значения. Не является ошибкой,
// передается в контроль качества
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Table  string    `json:"table"`
	Key    string    `json:"key"`
	Column string    `json:"column"`
	Value  string    `json:"value"`
	Reason string    `json:"reason"`
}

package transform

import (
	"fmt"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// Result - результат очистки одной сущности
type Result[T any] struct {
	Rows     []T
	Rejected []models.RejectedRecord
	Issues   []models.Issue
}

func (r *Result[T]) reject(entity models.Entity, index int, key, reason string, raw models.RawRecord) {
	r.Rejected = append(r.Rejected, models.RejectedRecord{
		Entity:   entity,
		RowIndex: index,
		Key:      key,
		Reason:   reason,
		Raw:      raw,
	})
}

func (r *Result[T]) issue(kind models.IssueKind, table, key, column, value, reason string) {
	r.Issues = append(r.Issues, models.Issue{
		Kind:   kind,
		Table:  table,
		Key:    key,
		Column: column,
		Value:  value,
		Reason: reason,
	})
}

const silverCustomers = "silver.crm_cust_info"

// CleanseCustomers очищает выгрузку клиентов CRM.
//
// При повторе customer_id остается строка с самой поздней create_date. При
// равных датах остается первая по порядку во входных данных строка: выбор
// детерминирован, но не несет бизнес-смысла.
func CleanseCustomers(rows []models.RawRecord) Result[models.CleansedCustomer] {
	var res Result[models.CleansedCustomer]

	position := make(map[string]int) // customer_id -> индекс в res.Rows
	sourceRow := make([]int, 0, len(rows))

	for i, raw := range rows {
		id, ok := field(raw, "cst_id")
		if !ok {
			res.reject(models.EntityCRMCustomers, i, "", "missing_customer_id", raw)
			continue
		}

		number, _ := field(raw, "cst_key")
		firstName, _ := field(raw, "cst_firstname")
		lastName, _ := field(raw, "cst_lastname")
		maritalCode, _ := field(raw, "cst_marital_status")
		genderCode, _ := field(raw, "cst_gndr")
		createdRaw, _ := field(raw, "cst_create_date")

		created := ParseISODate(createdRaw)
		if created.Defaulted() {
			res.issue(models.IssueMalformedValue, silverCustomers, id, "create_date", createdRaw, created.Reason)
		}

		customer := models.CleansedCustomer{
			CustomerID:     id,
			CustomerNumber: number,
			FirstName:      firstName,
			LastName:       lastName,
			MaritalStatus:  models.MaritalStatusFromCode(maritalCode),
			Gender:         models.GenderFromCRMCode(genderCode),
			Country:        models.Unknown,
			CreateDate:     created.Value,
		}

		idx, seen := position[id]
		if !seen {
			position[id] = len(res.Rows)
			res.Rows = append(res.Rows, customer)
			sourceRow = append(sourceRow, i)
			continue
		}

		current := res.Rows[idx]
		res.checkConflict(current, customer)

		if newerThan(customer.CreateDate, current.CreateDate) {
			res.reject(models.EntityCRMCustomers, sourceRow[idx], id, "superseded", rows[sourceRow[idx]])
			res.Rows[idx] = customer
			sourceRow[idx] = i
		} else {
			res.reject(models.EntityCRMCustomers, i, id, "superseded", raw)
		}
	}

	return res
}

// checkConflict фиксирует расхождение атрибутов у дубликатов одного клиента
func (r *Result[T]) checkConflict(a, b models.CleansedCustomer) {
	if a.Gender != models.Unknown && b.Gender != models.Unknown && a.Gender != b.Gender {
		r.issue(models.IssueIdentityConflict, silverCustomers, a.CustomerID, "gender",
			fmt.Sprintf("%s/%s", a.Gender, b.Gender), "duplicate rows disagree on gender")
	}
	if a.MaritalStatus != models.Unknown && b.MaritalStatus != models.Unknown && a.MaritalStatus != b.MaritalStatus {
		r.issue(models.IssueIdentityConflict, silverCustomers, a.CustomerID, "marital_status",
			fmt.Sprintf("%s/%s", a.MaritalStatus, b.MaritalStatus), "duplicate rows disagree on marital status")
	}
}

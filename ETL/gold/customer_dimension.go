package gold

import (
	"sort"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

const goldCustomers = "gold.dim_customers"

// CustomerDimension - построенное измерение клиентов и индекс поиска суррогатного ключа
type CustomerDimension struct {
	Rows []models.DimCustomer
	keys map[string]int // customer_id (в том числе слитых строк) -> customer_key
}

// Key возвращает суррогатный ключ клиента по customer_id
func (d CustomerDimension) Key(customerID string) (int, bool) {
	k, ok := d.keys[customerID]
	return k, ok
}

// BuildCustomerDimension назначает суррогатные ключи клиентам.
//
// Строки, чей customer_number совпадает после нормализации, сливаются: основой
// служит строка с самой поздней create_date, пустые атрибуты берутся из остальных.
// Группы упорядочиваются по наименьшему customer_id и нумеруются с 1, поэтому
// один и тот же набор customer_id всегда дает одни и те же ключи, даже если
// изменились даты или другие атрибуты.
func BuildCustomerDimension(customers map[string]ResolvedCustomer) (CustomerDimension, []models.Issue) {
	folder := newKeyFolder()

	ordered := make([]ResolvedCustomer, 0, len(customers))
	for _, c := range customers {
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return compareNatural(ordered[i].CustomerID, ordered[j].CustomerID) < 0
	})

	type group struct {
		members []ResolvedCustomer
	}
	groups := make(map[string]*group)
	var order []string
	for _, c := range ordered {
		key := folder.fold(c.CustomerNumber)
		if key == "" {
			key = "#" + c.CustomerID
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, c)
	}

	var issues []models.Issue
	merged := make([]models.DimCustomer, 0, len(order))
	aliases := make([][]string, 0, len(order))
	for _, key := range order {
		members := groups[key].members
		row := mergeCustomers(members)
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.CustomerID
		}
		if len(members) > 1 {
			issues = append(issues, models.Issue{
				Kind:   models.IssueIdentityConflict,
				Table:  goldCustomers,
				Key:    row.CustomerNumber,
				Column: "customer_number",
				Value:  joinKeys(ids),
				Reason: "customer_number shared by several customer_id, rows merged",
			})
		}
		merged = append(merged, row)
		aliases = append(aliases, ids)
	}

	// Группы уже идут по возрастанию наименьшего customer_id: порядок не зависит
	// от того, какая строка группы стала основой
	dim := CustomerDimension{
		Rows: make([]models.DimCustomer, len(merged)),
		keys: make(map[string]int, len(customers)),
	}
	for i, row := range merged {
		row.CustomerKey = i + 1
		dim.Rows[i] = row
		for _, id := range aliases[i] {
			dim.keys[id] = row.CustomerKey
		}
	}
	return dim, issues
}

// mergeCustomers сливает строки одного бизнес-ключа. Члены упорядочены по customer_id,
// при равных create_date основой остается первая строка
func mergeCustomers(members []ResolvedCustomer) models.DimCustomer {
	base := 0
	for i := 1; i < len(members); i++ {
		if newer(members[i].CreateDate, members[base].CreateDate) {
			base = i
		}
	}

	b := members[base]
	row := models.DimCustomer{
		CustomerID:     b.CustomerID,
		CustomerNumber: b.CustomerNumber,
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Country:        b.Country,
		MaritalStatus:  b.MaritalStatus,
		Gender:         b.Gender,
		Birthdate:      b.Birthdate,
		CreateDate:     b.CreateDate,
	}

	for i, m := range members {
		if i == base {
			continue
		}
		row.FirstName = firstKnown(row.FirstName, m.FirstName, "")
		row.LastName = firstKnown(row.LastName, m.LastName, "")
		row.Country = firstKnown(row.Country, m.Country, models.Unknown)
		row.MaritalStatus = firstKnown(row.MaritalStatus, m.MaritalStatus, models.Unknown)
		row.Gender = firstKnown(row.Gender, m.Gender, models.Unknown)
		if row.Birthdate == nil {
			row.Birthdate = m.Birthdate
		}
	}
	return row
}

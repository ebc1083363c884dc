package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// rec строит сырую строку; отсутствующие колонки считаются NULL
func rec(values map[string]string) models.RawRecord {
	r := make(models.RawRecord, len(values))
	for k, v := range values {
		r[k] = models.StrPtr(v)
	}
	return r
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCleanseCustomers_LatestCreateDateWins(t *testing.T) {
	res := CleanseCustomers([]models.RawRecord{
		rec(map[string]string{"cst_id": "1", "cst_key": "AW00011000", "cst_marital_status": "M", "cst_create_date": "2024-01-01"}),
		rec(map[string]string{"cst_id": "1", "cst_key": "AW00011000", "cst_marital_status": "S", "cst_create_date": "2024-03-01"}),
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, models.MaritalSingle, res.Rows[0].MaritalStatus)
	assert.Equal(t, day("2024-03-01"), *res.Rows[0].CreateDate)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 0, res.Rejected[0].RowIndex)
	assert.Equal(t, "superseded", res.Rejected[0].Reason)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.IssueIdentityConflict, res.Issues[0].Kind)
	assert.Equal(t, "marital_status", res.Issues[0].Column)
}

func TestCleanseCustomers_TieKeepsFirstSeen(t *testing.T) {
	res := CleanseCustomers([]models.RawRecord{
		rec(map[string]string{"cst_id": "7", "cst_firstname": "First", "cst_create_date": "2024-02-02"}),
		rec(map[string]string{"cst_id": "7", "cst_firstname": "Second", "cst_create_date": "2024-02-02"}),
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "First", res.Rows[0].FirstName)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 1, res.Rejected[0].RowIndex)
}

func TestCleanseCustomers_TrimsAndMapsCodes(t *testing.T) {
	res := CleanseCustomers([]models.RawRecord{
		rec(map[string]string{"cst_id": " 11 ", "cst_key": "AW1", "cst_firstname": "  Jon ", "cst_lastname": "Yang  ", "cst_gndr": "f", "cst_marital_status": "x"}),
		rec(map[string]string{"cst_id": "   ", "cst_key": "AW2"}),
		rec(map[string]string{"cst_key": "AW3"}),
	})

	require.Len(t, res.Rows, 1)
	c := res.Rows[0]
	assert.Equal(t, "11", c.CustomerID)
	assert.Equal(t, "Jon", c.FirstName)
	assert.Equal(t, "Yang", c.LastName)
	assert.Equal(t, models.GenderFemale, c.Gender)
	assert.Equal(t, models.Unknown, c.MaritalStatus)
	assert.Equal(t, models.Unknown, c.Country)
	assert.Nil(t, c.CreateDate)

	require.Len(t, res.Rejected, 2)
	for _, r := range res.Rejected {
		assert.Equal(t, "missing_customer_id", r.Reason)
	}
}

func TestCleanseCustomers_MalformedCreateDate(t *testing.T) {
	res := CleanseCustomers([]models.RawRecord{
		rec(map[string]string{"cst_id": "3", "cst_create_date": "2024-13-40"}),
	})

	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Rows[0].CreateDate)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.IssueMalformedValue, res.Issues[0].Kind)
	assert.Equal(t, reasonInvalidDate, res.Issues[0].Reason)
}

func TestSplitProductKey(t *testing.T) {
	cat, item, ok := SplitProductKey("CO-RF-FR-R92B-58")
	assert.True(t, ok)
	assert.Equal(t, "CO_RF", cat)
	assert.Equal(t, "FR-R92B-58", item)

	cat, item, ok = SplitProductKey("BROKEN")
	assert.False(t, ok)
	assert.Empty(t, cat)
	assert.Equal(t, "BROKEN", item)
}

func TestCleanseProducts_DerivesEndDates(t *testing.T) {
	res := CleanseProducts([]models.RawRecord{
		rec(map[string]string{"prd_id": "212", "prd_key": "AC-HE-HL-U509-R", "prd_nm": "Sport Helmet", "prd_cost": "12", "prd_line": "S", "prd_start_dt": "2011-07-01"}),
		rec(map[string]string{"prd_id": "214", "prd_key": "AC-HE-HL-U509-R", "prd_nm": "Sport Helmet", "prd_cost": "14", "prd_line": "S", "prd_start_dt": "2013-07-01"}),
		rec(map[string]string{"prd_id": "213", "prd_key": "AC-HE-HL-U509-R", "prd_nm": "Sport Helmet", "prd_cost": "13", "prd_line": "S", "prd_start_dt": "2012-07-01"}),
		rec(map[string]string{"prd_id": "300", "prd_key": "BI-RB-BK-R93R-62", "prd_nm": "Road-150", "prd_line": "R", "prd_start_dt": "2013-07-01"}),
	})

	require.Len(t, res.Rows, 4)
	// порядок строк сохраняется
	assert.Equal(t, "212", res.Rows[0].ProductID)
	assert.Equal(t, day("2012-06-30"), *res.Rows[0].EndDate)
	assert.True(t, res.Rows[1].IsCurrent())
	assert.Equal(t, day("2013-06-30"), *res.Rows[2].EndDate)

	road := res.Rows[3]
	assert.True(t, road.IsCurrent())
	assert.Equal(t, "BI_RB", road.CategoryID)
	assert.Equal(t, "BK-R93R-62", road.ProductNumber)
	assert.Equal(t, models.LineRoad, road.ProductLine)
	assert.Equal(t, int64(0), road.Cost, "NULL cost defaults to zero")
	assert.Empty(t, res.Issues)
}

func TestCleanseProducts_MalformedValues(t *testing.T) {
	res := CleanseProducts([]models.RawRecord{
		rec(map[string]string{"prd_id": "1", "prd_key": "CO-RF-FR-1", "prd_cost": "-5", "prd_start_dt": "bad"}),
		rec(map[string]string{"prd_id": "2"}),
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(0), res.Rows[0].Cost)
	assert.Nil(t, res.Rows[0].StartDate)
	assert.Len(t, res.Issues, 2)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "missing_product_key", res.Rejected[0].Reason)
}

func salesRow(order, sales, qty, price string) models.RawRecord {
	r := rec(map[string]string{
		"sls_ord_num":  order,
		"sls_prd_key":  "BK-R93R-62",
		"sls_cust_id":  "11000",
		"sls_order_dt": "20101229",
		"sls_ship_dt":  "20110105",
		"sls_due_dt":   "20110110",
	})
	for col, v := range map[string]string{"sls_sales": sales, "sls_quantity": qty, "sls_price": price} {
		if v != "" {
			r[col] = models.StrPtr(v)
		}
	}
	return r
}

func TestCleanseSales_RecomputesMissingPrice(t *testing.T) {
	res := CleanseSales([]models.RawRecord{salesRow("SO1", "30", "3", "")})

	require.Len(t, res.Rows, 1)
	line := res.Rows[0]
	assert.Equal(t, int64(10), *line.Price)
	assert.Equal(t, int64(30), *line.SalesAmount)
	assert.Equal(t, int64(3), *line.Quantity)
	assert.False(t, line.Flagged)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "price", res.Issues[0].Column)
}

func TestRepairAmounts(t *testing.T) {
	tests := []struct {
		name                     string
		sales, qty, price        string
		wantSales, wantQty       int64
		wantPrice                int64
		wantRecomputed, wantFlag string
	}{
		{"consistent", "20", "2", "10", 20, 2, 10, "", ""},
		{"mismatched sales", "25", "2", "10", 20, 2, 10, "sales_amount", ""},
		{"negative sales", "-20", "2", "10", 20, 2, 10, "sales_amount", ""},
		{"null sales", "", "2", "10", 20, 2, 10, "sales_amount", ""},
		{"zero price", "20", "2", "0", 20, 2, 10, "price", ""},
		{"negative price", "20", "2", "-10", 20, 2, 10, "price", ""},
		{"null quantity", "20", "", "10", 20, 2, 10, "quantity", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := RepairAmounts(ParseAmount(tt.sales), ParseAmount(tt.qty), ParseAmount(tt.price))
			assert.Equal(t, tt.wantRecomputed, a.Recomputed)
			assert.Equal(t, tt.wantFlag, a.Flag)
			assert.Equal(t, tt.wantSales, *a.Sales)
			assert.Equal(t, tt.wantQty, *a.Quantity)
			assert.Equal(t, tt.wantPrice, *a.Price)
		})
	}

	t.Run("two invalid values are flagged", func(t *testing.T) {
		a := RepairAmounts(ParseAmount(""), ParseAmount("2"), ParseAmount(""))
		assert.Empty(t, a.Recomputed)
		assert.NotEmpty(t, a.Flag)
		assert.Nil(t, a.Sales)
		assert.Nil(t, a.Price)
	})

	t.Run("indivisible price is flagged", func(t *testing.T) {
		a := RepairAmounts(ParseAmount("10"), ParseAmount("3"), ParseAmount(""))
		assert.Empty(t, a.Recomputed)
		assert.Contains(t, a.Flag, "price")
		assert.Nil(t, a.Price)
	})

	t.Run("overflowing product is flagged", func(t *testing.T) {
		a := RepairAmounts(ParseAmount(""), ParseAmount("10000000000"), ParseAmount("10000000000"))
		assert.Empty(t, a.Recomputed)
		assert.Contains(t, a.Flag, "overflows")
		assert.Nil(t, a.Sales)
		assert.Equal(t, int64(10000000000), *a.Quantity)

		a = RepairAmounts(ParseAmount("5"), ParseAmount("10000000000"), ParseAmount("10000000000"))
		assert.Empty(t, a.Recomputed)
		assert.Contains(t, a.Flag, "overflows")
		assert.Equal(t, int64(5), *a.Sales, "original sales_amount is kept")
	})
}

func TestCleanseSales_Dates(t *testing.T) {
	row := salesRow("SO2", "20", "2", "10")
	row["sls_order_dt"] = models.StrPtr("20110110")
	row["sls_ship_dt"] = models.StrPtr("0")
	row["sls_due_dt"] = models.StrPtr("20110105")

	res := CleanseSales([]models.RawRecord{row, rec(map[string]string{"sls_ord_num": " "})})

	require.Len(t, res.Rows, 1)
	line := res.Rows[0]
	assert.Equal(t, day("2011-01-10"), *line.OrderDate)
	assert.Nil(t, line.ShippingDate)
	assert.True(t, line.Flagged)
	assert.Equal(t, "due_date before order_date", line.FlagReason)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "shipping_date", res.Issues[0].Column)
	assert.Equal(t, reasonZero, res.Issues[0].Reason)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "missing_order_number", res.Rejected[0].Reason)
}

func TestParseDate8(t *testing.T) {
	tests := []struct {
		in     string
		valid  bool
		reason string
	}{
		{"20240229", true, ""},
		{"", false, ""},
		{"0", false, reasonZero},
		{"2024022", false, reasonWrongLength},
		{"-2024022", false, reasonWrongLength},
		{"20230229", false, reasonInvalidDate},
		{"abc", false, reasonNotANumber},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := ParseDate8(tt.in)
			assert.Equal(t, tt.valid, p.Valid)
			assert.Equal(t, tt.reason, p.Reason)
		})
	}
}

func TestParseISODate_DropsTime(t *testing.T) {
	p := ParseISODate("2025-10-06 00:00:00")
	require.True(t, p.Valid)
	assert.Equal(t, day("2025-10-06"), *p.Value)
}

func TestCleanseERPCustomers(t *testing.T) {
	asOf := day("2026-01-01")
	res := CleanseERPCustomers([]models.RawRecord{
		rec(map[string]string{"cid": "NASAW00011000", "bdate": "1971-10-06", "gen": "Male "}),
		rec(map[string]string{"cid": "AW00011001", "bdate": "2099-01-01", "gen": "F"}),
		rec(map[string]string{"bdate": "1980-01-01"}),
	}, asOf, models.DefaultERPKeyPrefixes)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "AW00011000", res.Rows[0].CustomerNumber)
	assert.Equal(t, "NASAW00011000", res.Rows[0].SourceID)
	assert.Equal(t, models.GenderMale, res.Rows[0].Gender)
	assert.Equal(t, day("1971-10-06"), *res.Rows[0].Birthdate)

	assert.Nil(t, res.Rows[1].Birthdate)
	assert.Equal(t, models.GenderFemale, res.Rows[1].Gender)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, reasonFutureDate, res.Issues[0].Reason)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "missing_customer_key", res.Rejected[0].Reason)
}

func TestCleanseERPLocationsAndCategories(t *testing.T) {
	locs := CleanseERPLocations([]models.RawRecord{
		rec(map[string]string{"cid": "AW-00011000", "cntry": "DE"}),
		rec(map[string]string{"cid": "AW-00011001"}),
	}, models.DefaultERPKeyPrefixes)
	require.Len(t, locs.Rows, 2)
	assert.Equal(t, "AW00011000", locs.Rows[0].CustomerNumber)
	assert.Equal(t, "Germany", locs.Rows[0].Country)
	assert.Equal(t, models.Unknown, locs.Rows[1].Country)

	cats := CleanseERPCategories([]models.RawRecord{
		rec(map[string]string{"id": "AC_BR", "cat": " Accessories ", "subcat": "Bike Racks", "maintenance": "Yes"}),
		rec(map[string]string{"cat": "orphan"}),
	})
	require.Len(t, cats.Rows, 1)
	assert.Equal(t, "Accessories", cats.Rows[0].Category)
	require.Len(t, cats.Rejected, 1)
}

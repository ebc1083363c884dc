package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

func batchWith(rows map[models.Entity][]models.RawRecord) models.RawBatch {
	batch := make(models.RawBatch)
	for _, entity := range models.AllEntities {
		table := models.NewRawTable(entity, entity.RequiredColumns())
		table.Rows = rows[entity]
		batch[entity] = table
	}
	return batch
}

func TestTransformer_Transform(t *testing.T) {
	batch := batchWith(map[models.Entity][]models.RawRecord{
		models.EntityCRMCustomers: {
			rec(map[string]string{"cst_id": "11000", "cst_key": "AW00011000", "cst_create_date": "2025-10-06"}),
			rec(map[string]string{"cst_key": "AW00011001"}),
		},
		models.EntityCRMProducts: {
			rec(map[string]string{"prd_id": "1", "prd_key": "BI-RB-BK-R93R-62", "prd_cost": "oops", "prd_start_dt": "2013-07-01"}),
		},
		models.EntityCRMSales: {
			salesRow("SO43697", "", "1", "3578"),
		},
		models.EntityERPCustomers: {
			rec(map[string]string{"cid": "NASAW00011000", "bdate": "1971-10-06", "gen": "M"}),
		},
		models.EntityERPLocations: {
			rec(map[string]string{"cid": "AW-00011000", "cntry": "US"}),
		},
		models.EntityERPCategory: {
			rec(map[string]string{"id": "BI_RB", "cat": "Bikes", "subcat": "Road Bikes", "maintenance": "No"}),
		},
	})

	tr := NewTransformer(utils.NewNopLogger(), day("2026-01-01"), nil)
	out, err := tr.Transform(context.Background(), batch)
	require.NoError(t, err)

	assert.Len(t, out.Tables.Customers, 1)
	assert.Len(t, out.Tables.Products, 1)
	assert.Len(t, out.Tables.Sales, 1)
	assert.Equal(t, int64(3578), *out.Tables.Sales[0].SalesAmount)
	assert.Equal(t, "AW00011000", out.Tables.ERPCustomers[0].CustomerNumber)
	assert.Equal(t, "United States", out.Tables.ERPLocations[0].Country)
	assert.Len(t, out.Tables.ERPCategory, 1)

	require.Len(t, out.Rejected, 1)
	assert.Equal(t, models.EntityCRMCustomers, out.Rejected[0].Entity)

	// дефекты упорядочены по таблице
	require.Len(t, out.Issues, 2)
	assert.Equal(t, "silver.crm_prd_info", out.Issues[0].Table)
	assert.Equal(t, "silver.crm_sales_details", out.Issues[1].Table)

	again, err := tr.Transform(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, out, again, "transform is deterministic")
}

func TestTransformer_StructuralError(t *testing.T) {
	batch := batchWith(nil)
	batch[models.EntityCRMProducts] = models.NewRawTable(models.EntityCRMProducts, []string{"prd_id", "prd_key"})

	tr := NewTransformer(utils.NewNopLogger(), day("2026-01-01"), nil)
	out, err := tr.Transform(context.Background(), batch)

	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStructural))
}

func TestTransformer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTransformer(utils.NewNopLogger(), day("2026-01-01"), nil)
	_, err := tr.Transform(ctx, batchWith(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

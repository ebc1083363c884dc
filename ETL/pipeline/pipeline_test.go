package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_dwh/ETL/config"
	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/snapshot"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

type staticSource struct {
	batch func() models.RawBatch
	err   error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) (models.RawBatch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batch(), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.RunEvent
}

func (n *recordingNotifier) Notify(e models.RunEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type failingSink struct{ err error }

func (s failingSink) PublishSilver(context.Context, string, models.RawBatch, *models.SilverTables, []quality.Violation) error {
	return s.err
}

func (s failingSink) PublishGold(context.Context, string, *models.GoldTables, []quality.Violation) error {
	return s.err
}

// table строит сырую таблицу с обязательными колонками; пустая строка означает NULL
func table(entity models.Entity, rows ...[]string) *models.RawTable {
	t := models.NewRawTable(entity, entity.RequiredColumns())
	for _, row := range rows {
		values := make([]*string, len(row))
		for i, v := range row {
			if v != "" {
				values[i] = models.StrPtr(v)
			}
		}
		t.Append(values)
	}
	return t
}

func sampleBatch() models.RawBatch {
	return models.RawBatch{
		models.EntityCRMCustomers: table(models.EntityCRMCustomers,
			[]string{"11000", "AW00011000", " Jon", "Yang ", "M", "M", "2025-10-06"},
			[]string{"11000", "AW00011000", "Jon", "Yang", "S", "M", "2025-10-05"},
			[]string{"11001", "AW00011001", "Eugene", "Huang", "S", "", "2025-10-06"},
			[]string{"", "AW00011002", "", "", "", "", ""},
		),
		models.EntityCRMProducts: table(models.EntityCRMProducts,
			[]string{"210", "CO-RF-FR-R92B-58", "HL Road Frame - Black- 58", "", "R", "2003-07-01"},
			[]string{"212", "AC-HE-HL-U509-R", "Sport-100 Helmet- Red", "12", "S", "2011-07-01"},
			[]string{"213", "AC-HE-HL-U509-R", "Sport-100 Helmet- Red", "14", "S", "2012-07-01"},
		),
		models.EntityCRMSales: table(models.EntityCRMSales,
			[]string{"SO43697", "FR-R92B-58", "11000", "20101229", "20110105", "20110110", "3578", "1", "3578"},
			[]string{"SO43698", "HL-U509-R", "11001", "20101229", "0", "20110110", "", "2", "35"},
			[]string{"SO43699", "XYZ-404", "11001", "20101230", "20110106", "20110111", "10", "1", "10"},
		),
		models.EntityERPCustomers: table(models.EntityERPCustomers,
			[]string{"NASAW00011000", "1971-10-06", "Male"},
			[]string{"AW00011001", "1976-05-10", "Male"},
		),
		models.EntityERPLocations: table(models.EntityERPLocations,
			[]string{"AW-00011000", "AU"},
			[]string{"AW-00011001", "DE"},
		),
		models.EntityERPCategory: table(models.EntityERPCategory,
			[]string{"CO_RF", "Components", "Road Frames", "Yes"},
			[]string{"AC_HE", "Accessories", "Helmets", "No"},
		),
	}
}

type harness struct {
	pipeline  *Pipeline
	snapshots *snapshot.MemoryStore
	runLog    *models.MemoryETLLogRepository
	notifier  *recordingNotifier
}

func newHarness(source *staticSource, sink Sink) *harness {
	h := &harness{
		snapshots: snapshot.NewMemoryStore(),
		runLog:    models.NewMemoryETLLogRepository(),
		notifier:  &recordingNotifier{},
	}
	now := time.Now().UTC()
	h.pipeline = New(Deps{
		Source:    source,
		Snapshots: h.snapshots,
		Sink:      sink,
		RunLog:    h.runLog,
		Notifier:  h.notifier,
	}, Options{
		ERPKeyPrefixes:     models.DefaultERPKeyPrefixes,
		RowCountFloorRatio: 0.9,
		Now:                func() time.Time { return now },
	})
	return h
}

func TestPipeline_RunAll(t *testing.T) {
	h := newHarness(&staticSource{batch: sampleBatch}, nil)
	ctx := context.Background()

	results, err := h.pipeline.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].RunID, results[1].RunID, "both stages share a run id")

	silver := results[0]
	assert.Equal(t, models.StageBronzeToSilver, silver.Stage)
	assert.Equal(t, 2, silver.Rows["silver.crm_cust_info"], "one per customer id")
	assert.Equal(t, 3, silver.Rows["silver.crm_prd_info"])
	assert.NotEmpty(t, silver.Version)

	goldRes := results[1]
	assert.Equal(t, 2, goldRes.Rows["gold.dim_customers"])
	assert.Equal(t, 2, goldRes.Rows["gold.dim_products"])
	assert.Equal(t, 2, goldRes.Rows["gold.fact_sales"], "the sale with an unknown product is excluded")

	report, err := h.pipeline.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StageSilverToGold, report.Stage)
	assert.Contains(t, report.ByRule(), "referential_gap_dim_products")

	var tables models.GoldTables
	_, err = h.snapshots.Latest(ctx, snapshot.LayerGold, &tables)
	require.NoError(t, err)
	for _, c := range tables.Customers {
		assert.Contains(t, models.Genders, c.Gender)
		assert.Contains(t, models.MaritalStatuses, c.MaritalStatus)
	}
	for _, p := range tables.Products {
		assert.Contains(t, models.ProductLines, p.ProductLine)
	}

	assert.Equal(t, []string{
		models.EventStageStarted, models.EventStageCompleted,
		models.EventStageStarted, models.EventStageCompleted,
	}, h.notifier.types())

	runs, err := h.pipeline.RunStats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.StageSilverToGold, runs[0].Stage)
	assert.Equal(t, models.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, 16, runs[1].RowsRead, "all bronze rows are counted")
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	h := newHarness(&staticSource{batch: sampleBatch}, nil)
	ctx := context.Background()

	_, err := h.pipeline.RunAll(ctx)
	require.NoError(t, err)
	_, err = h.pipeline.RunAll(ctx)
	require.NoError(t, err)

	for _, layer := range []snapshot.Layer{snapshot.LayerSilver, snapshot.LayerGold} {
		require.Equal(t, 2, h.snapshots.Len(layer))
		first, ok := h.snapshots.Data(layer, 0)
		require.True(t, ok)
		second, ok := h.snapshots.Data(layer, 1)
		require.True(t, ok)
		assert.Equal(t, string(first), string(second), "layer %s differs between runs", layer)
	}
}

func TestPipeline_GoldWithoutSilver(t *testing.T) {
	h := newHarness(&staticSource{batch: sampleBatch}, nil)

	_, err := h.pipeline.RunSilverToGold(context.Background())
	assert.True(t, errors.Is(err, ErrNoSilver))
	assert.Equal(t, []string{models.EventStageStarted, models.EventStageFailed}, h.notifier.types())

	runs, _ := h.runLog.GetETLRunStats(context.Background(), 1)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
}

func TestPipeline_StructuralErrorPublishesNothing(t *testing.T) {
	broken := func() models.RawBatch {
		b := sampleBatch()
		b[models.EntityCRMSales] = models.NewRawTable(models.EntityCRMSales, []string{"sls_ord_num"})
		return b
	}
	h := newHarness(&staticSource{batch: broken}, nil)

	_, err := h.pipeline.RunBronzeToSilver(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStructural))

	assert.Equal(t, 0, h.snapshots.Len(snapshot.LayerSilver))
	_, err = h.pipeline.LatestReport(context.Background())
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))

	last, err := h.runLog.GetLastSuccessfulRun(context.Background(), models.StageBronzeToSilver)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestPipeline_SinkFailureKeepsPreviousSnapshot(t *testing.T) {
	h := newHarness(&staticSource{batch: sampleBatch}, failingSink{err: errors.New("warehouse down")})

	_, err := h.pipeline.RunBronzeToSilver(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, h.snapshots.Len(snapshot.LayerSilver))
}

func TestPipeline_SourceError(t *testing.T) {
	h := newHarness(&staticSource{err: errors.New("disk gone")}, nil)

	results, err := h.pipeline.RunAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Equal(t, []string{models.EventStageStarted, models.EventStageFailed}, h.notifier.types(), "gold is not attempted")
}

func TestFromConfig_WithoutWarehouse(t *testing.T) {
	cfg := config.DefaultETLConfig
	cfg.SnapshotDir = t.TempDir()
	cfg.Source.CSVDir = t.TempDir()

	rt, err := FromConfig(context.Background(), cfg, utils.NewNopLogger(), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.DB)
	assert.Nil(t, rt.Pipeline.sink)

	// в пустом каталоге нет выгрузок
	_, err = rt.Pipeline.RunBronzeToSilver(context.Background())
	assert.True(t, errors.Is(err, models.ErrStructural))
}

func TestFromConfig_UnknownSource(t *testing.T) {
	cfg := config.DefaultETLConfig
	cfg.Source.Kind = "kafka"

	_, err := FromConfig(context.Background(), cfg, utils.NewNopLogger(), nil)
	assert.Error(t, err)
}

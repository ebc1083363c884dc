package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source.Kind)
	assert.Equal(t, "datasets", cfg.Source.CSVDir)
	assert.False(t, cfg.Warehouse.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, 0.9, cfg.Quality.RowCountFloorRatio)
	assert.Equal(t, DefaultETLConfig.ERPKeyPrefixes, cfg.ERPKeyPrefixes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
snapshot_dir = "/var/lib/dwh"
run_interval = "6h"

[warehouse]
enabled = true
host = "db.internal"
dbname = "sales"

[quality]
row_count_floor_ratio = 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "etl.toml"), []byte(content), 0o644))
	t.Setenv("DWH_WAREHOUSE_HOST", "db.override")
	t.Setenv("DWH_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dwh", cfg.SnapshotDir)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.True(t, cfg.Warehouse.Enabled)
	assert.Equal(t, "db.override", cfg.Warehouse.Host, "environment wins over file")
	assert.Equal(t, "sales", cfg.Warehouse.DBName)
	assert.Equal(t, 3306, cfg.Warehouse.Port)
	assert.Equal(t, 0.5, cfg.Quality.RowCountFloorRatio)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		t.Setenv("DWH_SOURCE_KIND", "kafka")
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("mysql source without schema", func(t *testing.T) {
		t.Setenv("DWH_SOURCE_KIND", "MySQL")
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("ratio out of range", func(t *testing.T) {
		t.Setenv("DWH_QUALITY_ROW_COUNT_FLOOR_RATIO", "1.5")
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})
}

func TestValidate_WarehouseRequiresHost(t *testing.T) {
	cfg := DefaultETLConfig
	cfg.Warehouse.Enabled = true
	cfg.Warehouse.Host = ""
	assert.Error(t, cfg.Validate())

	cfg.Warehouse.Host = "localhost"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{Host: "db", Port: 3307, User: "etl", Password: "secret", DBName: "dwh"}.DSN()

	assert.Contains(t, dsn, "etl:secret@tcp(db:3307)/dwh")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")
}

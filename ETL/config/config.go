package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Виды источников сырых данных
const (
	SourceCSV   = "csv"
	SourceMySQL = "mysql"
)

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Источник сырых выгрузок
	Source SourceConfig

	// Хранилище (целевая БД). Отключено - результаты пишутся только в снимки
	Warehouse DatabaseConfig

	// Каталог версионированных снимков слоев
	SnapshotDir string `validate:"required"`

	// Интервал запуска ETL по расписанию
	RunInterval time.Duration `validate:"gt=0"`

	// Префиксы ключей клиентов ERP, удаляемые при согласовании
	ERPKeyPrefixes []string

	// Контроль качества
	Quality QualityConfig

	// Адрес HTTP-сервера
	HTTPAddr string `validate:"required"`

	Log utils.LogConfig
}

// SourceConfig описывает, откуда читать сырые выгрузки
type SourceConfig struct {
	Kind          string `validate:"oneof=csv mysql"`
	CSVDir        string `validate:"required_if=Kind csv"`
	StagingSchema string `validate:"required_if=Kind mysql"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Enabled         bool
	Host            string `validate:"required_if=Enabled true"`
	Port            int    `validate:"gte=0,lte=65535"`
	User            string `validate:"required_if=Enabled true"`
	Password        string
	DBName          string `validate:"required_if=Enabled true"`
	MaxOpenConns    int    `validate:"gte=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
	InsertBatchSize int `validate:"gte=0"`
}

// QualityConfig содержит пороги контроля качества
type QualityConfig struct {
	// Доля от количества строк прошлого запуска, ниже которой выдается предупреждение
	RowCountFloorRatio float64 `validate:"gte=0,lte=1"`
}

// DefaultETLConfig - значения конфигурации по умолчанию
var DefaultETLConfig = ETLConfig{
	Source: SourceConfig{
		Kind:   SourceCSV,
		CSVDir: "datasets",
	},
	Warehouse: DatabaseConfig{
		Host:            "localhost",
		Port:            3306,
		User:            "root",
		DBName:          "dwh",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		InsertBatchSize: 500,
	},
	SnapshotDir:    "snapshots",
	RunInterval:    24 * time.Hour,
	ERPKeyPrefixes: models.DefaultERPKeyPrefixes,
	Quality: QualityConfig{
		RowCountFloorRatio: 0.9,
	},
	HTTPAddr: ":8080",
	Log: utils.LogConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	},
}

// Load загружает конфигурацию из файла etl.toml (если есть) и переменных окружения DWH_*.
// Приоритет: окружение, файл, значения по умолчанию.
func Load(paths ...string) (ETLConfig, error) {
	v := viper.New()

	v.SetConfigName("etl")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return ETLConfig{}, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Файл не обязателен
	}

	v.SetEnvPrefix("DWH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := ETLConfig{
		Source: SourceConfig{
			Kind:          strings.ToLower(v.GetString("source.kind")),
			CSVDir:        v.GetString("source.csv_dir"),
			StagingSchema: v.GetString("source.staging_schema"),
		},
		Warehouse: DatabaseConfig{
			Enabled:         v.GetBool("warehouse.enabled"),
			Host:            v.GetString("warehouse.host"),
			Port:            v.GetInt("warehouse.port"),
			User:            v.GetString("warehouse.user"),
			Password:        v.GetString("warehouse.password"),
			DBName:          v.GetString("warehouse.dbname"),
			MaxOpenConns:    v.GetInt("warehouse.max_open_conns"),
			MaxIdleConns:    v.GetInt("warehouse.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("warehouse.conn_max_lifetime"),
			InsertBatchSize: v.GetInt("warehouse.insert_batch_size"),
		},
		SnapshotDir:    v.GetString("snapshot_dir"),
		RunInterval:    v.GetDuration("run_interval"),
		ERPKeyPrefixes: v.GetStringSlice("erp_key_prefixes"),
		Quality: QualityConfig{
			RowCountFloorRatio: v.GetFloat64("quality.row_count_floor_ratio"),
		},
		HTTPAddr: v.GetString("http_addr"),
		Log: utils.LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return ETLConfig{}, err
	}

	return cfg, nil
}

// setDefaults регистрирует значения по умолчанию, чтобы их можно было переопределить окружением
func setDefaults(v *viper.Viper) {
	d := DefaultETLConfig
	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.csv_dir", d.Source.CSVDir)
	v.SetDefault("source.staging_schema", d.Source.StagingSchema)
	v.SetDefault("warehouse.enabled", d.Warehouse.Enabled)
	v.SetDefault("warehouse.host", d.Warehouse.Host)
	v.SetDefault("warehouse.port", d.Warehouse.Port)
	v.SetDefault("warehouse.user", d.Warehouse.User)
	v.SetDefault("warehouse.password", d.Warehouse.Password)
	v.SetDefault("warehouse.dbname", d.Warehouse.DBName)
	v.SetDefault("warehouse.max_open_conns", d.Warehouse.MaxOpenConns)
	v.SetDefault("warehouse.max_idle_conns", d.Warehouse.MaxIdleConns)
	v.SetDefault("warehouse.conn_max_lifetime", d.Warehouse.ConnMaxLifetime)
	v.SetDefault("warehouse.insert_batch_size", d.Warehouse.InsertBatchSize)
	v.SetDefault("snapshot_dir", d.SnapshotDir)
	v.SetDefault("run_interval", d.RunInterval)
	v.SetDefault("erp_key_prefixes", d.ERPKeyPrefixes)
	v.SetDefault("quality.row_count_floor_ratio", d.Quality.RowCountFloorRatio)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
}

// Validate проверяет конфигурацию по тегам validate
func (c ETLConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация ETL: %w", err)
	}
	return nil
}

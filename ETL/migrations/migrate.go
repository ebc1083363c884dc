package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrator создает схемы bronze/silver/gold и служебные таблицы хранилища
type Migrator struct {
	migrate *migrate.Migrate
	logger  *utils.ETLLogger
}

// New создает Migrator поверх открытого подключения к хранилищу.
// Подключение должно допускать несколько операторов в одном запросе.
func New(db *sql.DB, logger *utils.ETLLogger) (*Migrator, error) {
	source, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания драйвера миграций mysql: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания экземпляра migrate: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  logger,
	}, nil
}

// Up применяет все недостающие миграции
func (m *Migrator) Up() error {
	m.logger.Info("Применение миграций хранилища")

	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Новых миграций нет")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Миграции применены: версия %d, dirty=%v", version, dirty)
	return nil
}

// Down откатывает все миграции. Удаляет схемы слоев вместе с данными
func (m *Migrator) Down() error {
	m.logger.Warn("Откат всех миграций хранилища")

	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Нечего откатывать")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка отката миграций: %w", err)
	}
	return nil
}

// Version возвращает текущую версию схемы (0, если миграции не применялись)
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка получения версии миграций: %w", err)
	}
	return version, dirty, nil
}

// Close освобождает источник миграций и переданное подключение к БД
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("ошибка закрытия источника миграций: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("ошибка закрытия подключения миграций: %w", dbErr)
	}
	return nil
}

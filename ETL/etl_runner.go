package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/LilVoxy/sales_dwh/ETL/config"
	"github.com/LilVoxy/sales_dwh/ETL/migrations"
	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/pipeline"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// exitError несет код завершения процесса
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// errGateFailed - отчет качества содержит нарушения уровня error
var errGateFailed = errors.New("контроль качества обнаружил нарушения уровня error")

// ETLRunner хранит общие для команд параметры
type ETLRunner struct {
	configDir        string
	failOnViolations bool

	config config.ETLConfig
	logger *utils.ETLLogger
}

// init загружает конфигурацию и создает логгер
func (r *ETLRunner) init() error {
	cfg, err := config.Load(r.configDir)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	r.config = cfg
	r.logger = utils.NewETLLogger(cfg.Log)
	return nil
}

// withPipeline собирает конвейер, выполняет fn и освобождает ресурсы
func (r *ETLRunner) withPipeline(ctx context.Context, fn func(p *pipeline.Pipeline) error) error {
	rt, err := pipeline.FromConfig(ctx, r.config, r.logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			r.logger.Error("Ошибка закрытия подключения к хранилищу: %v", err)
		}
	}()
	return fn(rt.Pipeline)
}

// checkGate возвращает errGateFailed, если включен строгий режим и в отчетах есть ошибки
func (r *ETLRunner) checkGate(results ...*pipeline.StageResult) error {
	for _, res := range results {
		if res == nil || res.Report == nil {
			continue
		}
		counts := res.Report.CountBySeverity()
		r.logger.Info("Этап %s (run %s): info=%d, warn=%d, error=%d",
			res.Stage, res.RunID, counts[quality.SeverityInfo], counts[quality.SeverityWarn], counts[quality.SeverityError])
		if r.failOnViolations && res.Report.HasErrors() {
			return &exitError{code: 3, err: fmt.Errorf("%w: этап %s", errGateFailed, res.Stage)}
		}
	}
	return nil
}

func (r *ETLRunner) runOnce(ctx context.Context) error {
	return r.withPipeline(ctx, func(p *pipeline.Pipeline) error {
		results, err := p.RunAll(ctx)
		if err != nil {
			return err
		}
		return r.checkGate(results...)
	})
}

func (r *ETLRunner) runBronzeToSilver(ctx context.Context) error {
	return r.withPipeline(ctx, func(p *pipeline.Pipeline) error {
		res, err := p.RunBronzeToSilver(ctx)
		if err != nil {
			return err
		}
		return r.checkGate(res)
	})
}

func (r *ETLRunner) runSilverToGold(ctx context.Context) error {
	return r.withPipeline(ctx, func(p *pipeline.Pipeline) error {
		res, err := p.RunSilverToGold(ctx)
		if err != nil {
			return err
		}
		return r.checkGate(res)
	})
}

// runScheduled запускает оба этапа по расписанию до получения сигнала завершения
func (r *ETLRunner) runScheduled(ctx context.Context) error {
	return r.withPipeline(ctx, func(p *pipeline.Pipeline) error {
		scheduler := gocron.NewScheduler(time.UTC)
		scheduler.SingletonModeAll()

		r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

		_, err := scheduler.Every(r.config.RunInterval).Do(func() {
			r.logger.Info("Запланированный запуск ETL процесса")
			results, err := p.RunAll(ctx)
			if err != nil {
				r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
				return
			}
			if err := r.checkGate(results...); err != nil {
				r.logger.Error("%v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("ошибка при настройке планировщика: %w", err)
		}

		scheduler.StartAsync()
		<-ctx.Done()
		scheduler.Stop()

		r.logger.Info("Планировщик ETL остановлен")
		return nil
	})
}

// runMigrate применяет или откатывает миграции схемы хранилища
func (r *ETLRunner) runMigrate(ctx context.Context, down bool) error {
	db, err := config.ConnectWarehouse(ctx, r.config.Warehouse)
	if err != nil {
		return err
	}

	m, err := migrations.New(db, r.logger)
	if err != nil {
		db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			r.logger.Error("Ошибка закрытия мигратора: %v", err)
		}
	}()

	if down {
		return m.Down()
	}
	return m.Up()
}

func newRootCmd() *cobra.Command {
	runner := &ETLRunner{}

	root := &cobra.Command{
		Use:           "etl",
		Short:         "ETL хранилища продаж: Bronze -> Silver -> Gold",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return runner.init()
		},
	}
	root.PersistentFlags().StringVar(&runner.configDir, "config", ".", "Каталог с файлом etl.toml")
	root.PersistentFlags().BoolVar(&runner.failOnViolations, "fail-on-violations", false,
		"Завершаться с ошибкой, если контроль качества нашел нарушения уровня error")

	root.AddCommand(
		&cobra.Command{
			Use:   "once",
			Short: "Выполнить оба этапа один раз",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.runOnce(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "bronze-to-silver",
			Short: "Выполнить этап очистки Bronze -> Silver",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.runBronzeToSilver(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "silver-to-gold",
			Short: "Собрать витрину Gold из последнего снимка Silver",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.runSilverToGold(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "scheduled",
			Short: "Запускать ETL по расписанию (интервал run_interval)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.runScheduled(cmd.Context())
			},
		},
	)

	var down bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции схемы хранилища",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.runMigrate(cmd.Context(), down)
		},
	}
	migrateCmd.Flags().BoolVar(&down, "down", false, "Откатить все миграции")
	root.AddCommand(migrateCmd)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Ошибка:", err)
	code := 1
	var exitErr *exitError
	switch {
	case errors.As(err, &exitErr):
		code = exitErr.code
	case errors.Is(err, models.ErrStructural):
		code = 4
	}
	stop()
	os.Exit(code)
}

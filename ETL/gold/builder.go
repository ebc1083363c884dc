package gold

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Result - результат этапа Silver -> Gold
type Result struct {
	Tables models.GoldTables
	Gaps   []models.ReferentialGap
	Issues []models.Issue
}

// Builder собирает витрину из слоя silver
type Builder struct {
	logger   *utils.ETLLogger
	prefixes []string
}

// NewBuilder создает новый экземпляр Builder
func NewBuilder(logger *utils.ETLLogger, prefixes []string) *Builder {
	return &Builder{logger: logger, prefixes: prefixes}
}

// Build выполняет согласование, строит оба измерения параллельно и затем факт продаж
func (b *Builder) Build(ctx context.Context, silver *models.SilverTables) (*Result, error) {
	startTime := time.Now()
	b.logger.Info("Начало сборки витрины (Silver -> Gold)")

	conformed := Conform(silver, b.prefixes)
	b.logger.Debug("Согласование завершено: клиентов %d, продуктов %d, дефектов %d",
		len(conformed.Customers), len(conformed.Products), len(conformed.Issues))

	var (
		customers      CustomerDimension
		products       ProductDimension
		customerIssues []models.Issue
		productIssues  []models.Issue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		customers, customerIssues = BuildCustomerDimension(conformed.Customers)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		products, productIssues = BuildProductDimension(conformed.Products)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ошибка при построении измерений: %w", err)
	}

	facts, gaps := BuildSalesFacts(silver.Sales, customers, products)
	if len(gaps) > 0 {
		b.logger.Warn("Строк продаж без соответствия в измерениях: %d", len(gaps))
	}

	res := &Result{
		Tables: models.GoldTables{
			Customers: customers.Rows,
			Products:  products.Rows,
			Sales:     facts,
		},
		Gaps: gaps,
	}
	res.Issues = append(res.Issues, conformed.Issues...)
	res.Issues = append(res.Issues, customerIssues...)
	res.Issues = append(res.Issues, productIssues...)

	b.logger.Info("Сборка витрины завершена за %v", time.Since(startTime))
	return res, nil
}

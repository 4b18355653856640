// Command seed loads the sample catalog into PostgreSQL and announces the
// change so running API servers drop their cached snapshot.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

//go:embed products.json
var sampleCatalog []byte

func main() {
	file := flag.String("file", "", "JSON product list to load instead of the built-in catalog")
	publish := flag.Bool("publish", true, "publish catalog.updated after loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	if err := run(cfg, log, *file, *publish); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, file string, publish bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	raw := sampleCatalog
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		raw = b
	}
	products, err := decodeCatalog(raw)
	if err != nil {
		return err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	repo := postgres.NewProductRepository(pool, database.QueryTracer{SlowThreshold: cfg.SlowQueryThreshold, Logger: log})
	ids, err := load(ctx, repo, products)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", slog.Int("products", len(ids)))

	if !publish {
		return nil
	}
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	defer func() { _ = producer.Close() }()
	if err := event.NewProducer(producer, log).PublishCatalogUpdated(ctx, ids); err != nil {
		// Servers still pick up the change when their snapshot TTL expires.
		log.Warn("catalog.updated not published", slog.String("error", err.Error()))
	}
	return nil
}

func decodeCatalog(raw []byte) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return products, nil
}

func load(ctx context.Context, repo repository.ProductRepository, products []domain.Product) ([]string, error) {
	ids := make([]string, 0, len(products))
	for i := range products {
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", products[i].ID, err)
		}
		ids = append(ids, products[i].ID)
	}
	return ids, nil
}

// cmd/tools/registry-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/database"
	"docverify/internal/common/logger"
	"docverify/internal/common/storage"
	"docverify/internal/registry"
	"docverify/internal/store/sqlstore"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the worker configuration")
	seedPath := flag.String("file", "", "YAML file of registry records")
	flag.Parse()

	log := logger.NewStructured("info", "console")
	if *seedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*configPath, *seedPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, seedPath string, log logger.Logger) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	seed, err := LoadSeedFile(seedPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewSQL(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	dialect, err := sqlstore.DialectFor(db.Driver)
	if err != nil {
		return err
	}
	st := sqlstore.New(db.DB, dialect, log)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	blobs, err := storage.NewMinIOStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	if err := blobs.EnsureBuckets(ctx, cfg.Storage.RegistryBucket); err != nil {
		return err
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	s := &Seeder{
		store:  st,
		blobs:  blobs,
		bucket: cfg.Storage.RegistryBucket,
		cache:  registry.NewMatcher(st, rdb.Client, time.Duration(cfg.Registry.CacheTTL)*time.Second, log),
		logger: log,
	}
	n, err := s.Seed(ctx, filepath.Dir(seedPath), seed)
	if err != nil {
		return err
	}
	log.Info("registry seeded", map[string]interface{}{"records": n, "bucket": cfg.Storage.RegistryBucket})
	return nil
}

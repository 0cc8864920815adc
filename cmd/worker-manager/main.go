// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "docverify/internal/common/aws"
	"docverify/internal/common/camunda"
	"docverify/internal/common/config"
	"docverify/internal/common/database"
	"docverify/internal/common/logger"
	"docverify/internal/common/observability"
	"docverify/internal/common/payload"
	"docverify/internal/common/storage"
	"docverify/internal/common/validation"
	"docverify/internal/decision"
	"docverify/internal/decision/identity"
	"docverify/internal/decision/scoring"
	"docverify/internal/issuance"
	"docverify/internal/lifecycle"
	"docverify/internal/models"
	"docverify/internal/registry"
	"docverify/internal/search"
	"docverify/internal/store/sqlstore"
	activities "docverify/pkg/registry"

	// Document Workers (2)
	ed "docverify/internal/workers/documents/evaluate-document"
	sd "docverify/internal/workers/documents/submit-documents"

	// Case Workers (2)
	lc "docverify/internal/workers/cases/list-cases"
	uc "docverify/internal/workers/cases/update-case"

	// Request & Appeal Workers (4)
	fa "docverify/internal/workers/appeals/file-appeal"
	la "docverify/internal/workers/appeals/list-appeals"
	ra "docverify/internal/workers/appeals/resolve-appeal"
	cdr "docverify/internal/workers/requests/create-document-request"

	// Issuance & Notification Workers (2)
	rd "docverify/internal/workers/issuance/resolve-download"
	sdn "docverify/internal/workers/notifications/send-decision-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("failed to connect to Zeebe", zap.Error(err))
	}
	zapLog.Info("Connected to Zeebe", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Relational store ---
	var db *database.SQLClient
	err = retryWithBackoff(func() error {
		var err error
		db, err = database.NewSQL(cfg.Database)
		if err != nil {
			return err
		}
		return db.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Database connection")
	if err != nil {
		zapLog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	dialect, err := sqlstore.DialectFor(db.Driver)
	if err != nil {
		zapLog.Fatal("unsupported database driver", zap.Error(err))
	}
	st := sqlstore.New(db.DB, dialect, log)
	if err := st.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("Connected to database", zap.String("driver", db.Driver))

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Connected to Redis")

	// --- Elasticsearch (optional) ---
	var (
		es       *database.ElasticsearchClient
		indexer  lifecycle.Indexer
		searcher lc.Searcher
	)
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch connection failed", zap.Error(err))
		}
		created, err := es.EnsureIndex(ctx, cfg.Database.Elasticsearch.CaseIndex, search.CaseMapping)
		if err != nil {
			zapLog.Fatal("failed to prepare case index", zap.Error(err))
		}
		if created {
			zapLog.Info("Created case index", zap.String("index", cfg.Database.Elasticsearch.CaseIndex))
		}
		caseIndex := search.NewCaseIndex(es.Client, cfg.Database.Elasticsearch.CaseIndex, log)
		indexer = caseIndex
		searcher = caseIndex
		zapLog.Info("Connected to Elasticsearch", zap.String("index", cfg.Database.Elasticsearch.CaseIndex))
	}

	// --- Object storage ---
	var blobs *storage.MinIOStore
	err = retryWithBackoff(func() error {
		var err error
		blobs, err = storage.NewMinIOStore(ctx, cfg.Storage, log)
		if err != nil {
			return err
		}
		return blobs.EnsureBuckets(ctx, cfg.Storage.DocumentsBucket, cfg.Storage.RegistryBucket, cfg.Storage.DownloadsBucket)
	}, 10, 2*time.Second, zapLog, "Object storage connection")
	if err != nil {
		zapLog.Fatal("object storage connection failed", zap.Error(err))
	}

	// --- Decision engine ---
	pipeline, err := scoring.LoadBundle(cfg.Engine.ManifestPath)
	if err != nil {
		zapLog.Warn("model bundle not loaded", zap.Error(err))
		pipeline = nil
	}
	scorer := scoring.NewScorer(pipeline, log)
	matcher := identity.NewMatcher(
		identity.StaticOCR{Fields: models.OCRFields{
			FullName:   cfg.OCR.FullName,
			IDNumber:   cfg.OCR.IDNumber,
			ExpiryDate: cfg.OCR.ExpiryDate,
		}},
		identity.Declared{FullName: cfg.OCR.FullName, IDNumber: cfg.OCR.IDNumber},
	)
	engine := decision.NewEngine(decision.Config{
		TargetSize: cfg.Engine.TargetSize,
		Threshold:  cfg.Engine.ConfidenceThreshold,
		MaxPixels:  cfg.Engine.MaxPixels(),
	}, scorer, matcher, log)

	registryMatcher := registry.NewMatcher(st, rdb.Client, time.Duration(cfg.Registry.CacheTTL)*time.Second, log)

	manager := lifecycle.NewManager(lifecycle.Deps{
		Store:           st,
		Blobs:           blobs,
		Evaluator:       engine,
		Registry:        registryMatcher,
		Indexer:         indexer,
		DocumentsBucket: cfg.Storage.DocumentsBucket,
		MaxFileSize:     cfg.Engine.MaxFileSizeBytes(),
		Logger:          log,
	})

	resolver := issuance.NewResolver(st, blobs, issuance.Buckets{
		Documents: cfg.Storage.DocumentsBucket,
		Registry:  cfg.Storage.RegistryBucket,
		Downloads: cfg.Storage.DownloadsBucket,
	}, issuance.NewCertificateRenderer(cfg.Certificate), log)

	documents := payload.NewSource(blobs, cfg.Storage.DocumentsBucket)

	// --- Input schemas ---
	reg, err := activities.LoadRegistry(cfg.App.ActivityRegistryPath)
	if err != nil {
		zapLog.Fatal("failed to load activity registry", zap.Error(err))
	}
	validator, err := validation.FromRegistry(reg)
	if err != nil {
		zapLog.Fatal("failed to compile input schemas", zap.Error(err))
	}

	// --- Notification channels ---
	var (
		email sdn.EmailSender
		sms   sdn.SMSSender
	)
	if cfg.Notifications.Email.Enabled {
		ses, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		email = ses
	}
	if cfg.Notifications.SMS.Enabled {
		sns, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		sms = sns
	}

	client := zeebe.GetClient()
	var jobWorkers []worker.JobWorker
	start := func(taskType string, handler worker.JobHandler) {
		if jw := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log); jw != nil {
			jobWorkers = append(jobWorkers, jw)
		}
	}

	// ==========================================
	// DOCUMENT WORKERS
	// ==========================================

	{
		handler, err := sd.NewHandler(sd.HandlerOptions{
			Config:    sd.NewConfig(cfg),
			Manager:   manager,
			Documents: documents,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create submit-documents handler", zap.Error(err))
		}
		start(sd.TaskType, handler.Handle)
	}

	{
		handler, err := ed.NewHandler(ed.HandlerOptions{
			Config:    ed.NewConfig(cfg),
			Engine:    engine,
			Documents: documents,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create evaluate-document handler", zap.Error(err))
		}
		start(ed.TaskType, handler.Handle)
	}

	// ==========================================
	// CASE WORKERS
	// ==========================================

	{
		handler, err := uc.NewHandler(uc.HandlerOptions{
			Config:    uc.NewConfig(cfg),
			Manager:   manager,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create update-case handler", zap.Error(err))
		}
		start(uc.TaskType, handler.Handle)
	}

	{
		handler, err := lc.NewHandler(lc.HandlerOptions{
			Config:    lc.NewConfig(cfg),
			Manager:   manager,
			Searcher:  searcher,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create list-cases handler", zap.Error(err))
		}
		start(lc.TaskType, handler.Handle)
	}

	// ==========================================
	// REQUEST & APPEAL WORKERS
	// ==========================================

	{
		handler, err := cdr.NewHandler(cdr.HandlerOptions{
			Config:    cdr.NewConfig(cfg),
			Manager:   manager,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create create-document-request handler", zap.Error(err))
		}
		start(cdr.TaskType, handler.Handle)
	}

	{
		handler, err := fa.NewHandler(fa.HandlerOptions{
			Config:    fa.NewConfig(cfg),
			Manager:   manager,
			Documents: documents,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create file-appeal handler", zap.Error(err))
		}
		start(fa.TaskType, handler.Handle)
	}

	{
		handler, err := ra.NewHandler(ra.HandlerOptions{
			Config:    ra.NewConfig(cfg),
			Manager:   manager,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create resolve-appeal handler", zap.Error(err))
		}
		start(ra.TaskType, handler.Handle)
	}

	{
		handler, err := la.NewHandler(la.HandlerOptions{
			Config:    la.NewConfig(cfg),
			Manager:   manager,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create list-appeals handler", zap.Error(err))
		}
		start(la.TaskType, handler.Handle)
	}

	// ==========================================
	// ISSUANCE & NOTIFICATION WORKERS
	// ==========================================

	{
		handler, err := rd.NewHandler(rd.HandlerOptions{
			Config:    rd.NewConfig(cfg),
			Resolver:  resolver,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create resolve-download handler", zap.Error(err))
		}
		start(rd.TaskType, handler.Handle)
	}

	{
		handler, err := sdn.NewHandler(sdn.HandlerOptions{
			Config:    sdn.NewConfig(cfg),
			Manager:   manager,
			Email:     email,
			SMS:       sms,
			Validator: validator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create send-decision-notification handler", zap.Error(err))
		}
		start(sdn.TaskType, handler.Handle)
	}

	zapLog.Info("Workers registered", zap.Int("running", len(jobWorkers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"simulated": fmt.Sprintf("%t", scorer.Simulated()),
			"time":      time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"database": db.Ping,
			"redis":    rdb.Ping,
		}
		if es != nil {
			checks["elasticsearch"] = es.Ping
		}
		body := map[string]string{"time": time.Now().Format(time.RFC3339)}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(pingCtx); err != nil {
				body[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		if status == http.StatusOK {
			body["status"] = "ready"
		} else {
			body["status"] = "not ready"
		}
		writeStatus(w, status, body)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range jobWorkers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

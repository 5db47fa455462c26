package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/romariotrain/visiguard/internal/app"
	"github.com/romariotrain/visiguard/internal/auth"
	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/classifier"
	"github.com/romariotrain/visiguard/internal/config"
	"github.com/romariotrain/visiguard/internal/logger"
	"github.com/romariotrain/visiguard/internal/relay"
	"github.com/romariotrain/visiguard/internal/storage/jsonfile"
	"github.com/romariotrain/visiguard/internal/storage/sqlstore"
	"github.com/romariotrain/visiguard/internal/video/catalog"
	"github.com/romariotrain/visiguard/internal/video/httpapi"
	"github.com/romariotrain/visiguard/internal/video/pipeline"
	"github.com/romariotrain/visiguard/internal/video/repository"
)

const shutdownGrace = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the screening pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.Must(cfg.LogLevel, cfg.LogFormat, "visiguard")

			if code := app.Run(cmd.Context(), log, shutdownGrace, func(ctx context.Context) error {
				return serve(ctx, cfg, log)
			}); code != 0 {
				return errors.New("server exited with errors")
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn().Err(err).Msg("close failed")
			}
		}
	}()

	store, closer, err := openMetadataStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	blobs, linker, closer, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	cls, err := newClassifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	var pacer pipeline.Pacer = pipeline.DefaultPacer()
	if cfg.Pacing == config.PacingNone {
		pacer = pipeline.NoDelay{}
	}
	engine, err := pipeline.NewEngine(pipeline.Config{
		Blobs:      blobs,
		Classifier: cls,
		Pacer:      pacer,
		Metrics:    pipeline.NewMetrics(reg),
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	signer := blob.NewSigner(cfg.SigningSecret)
	if linker == nil {
		linker = blob.NewLocalLinker(blobs, signer, cfg.PublicURL, cfg.PlaybackTTL)
	}

	svc, err := catalog.New(catalog.Config{
		Store:        store,
		Blobs:        blobs,
		Linker:       linker,
		Runner:       engine,
		Recovery:     cfg.RecoveryPolicy,
		ThumbnailURL: cfg.ThumbnailURL,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	authn, err := auth.New(auth.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := relay.NewProducer(relay.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  log,
		})
		if err != nil {
			stopRelay()
			return fmt.Errorf("kafka producer: %w", err)
		}
		closers = append(closers, producer)
		if err := producer.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Strs("brokers", cfg.KafkaBrokers).Msg("kafka not reachable yet, updates will be queued")
		}

		publisher, err := relay.NewPublisher(relay.PublisherConfig{
			Source:    svc,
			Producer:  producer,
			Interval:  cfg.RelayInterval,
			BatchSize: cfg.RelayBatchSize,
			Logger:    log,
		})
		if err != nil {
			stopRelay()
			return fmt.Errorf("update relay: %w", err)
		}
		go func() {
			defer close(relayDone)
			_ = publisher.Start(relayCtx)
		}()
	} else {
		close(relayDone)
		log.Info().Msg("no kafka brokers configured, update relay disabled")
	}

	h := httpapi.New(httpapi.Config{
		Catalog:        svc,
		Auth:           authn,
		Blobs:          blobs,
		Signer:         signer,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
	})
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           httpapi.NewRouter(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	log.Info().
		Str("address", cfg.Address).
		Str("metadata", cfg.MetadataBackend).
		Str("blobs", cfg.BlobBackend).
		Str("classifier_policy", string(cls.Policy())).
		Msg("listening")

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("listen and serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pipeline jobs abandoned at shutdown")
	}
	svc.Wait()
	stopRelay()
	<-relayDone

	return serveErr
}

func openMetadataStore(ctx context.Context, cfg *config.Config) (repository.MetadataStore, io.Closer, error) {
	switch cfg.MetadataBackend {
	case config.MetadataPostgres, config.MetadataSQLite:
		driver, dsn := sqlstore.DriverPostgres, cfg.DatabaseURL
		if cfg.MetadataBackend == config.MetadataSQLite {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create data dir: %w", err)
			}
			driver, dsn = sqlstore.DriverSQLite, cfg.MetadataPath()
		}
		db, err := sqlstore.Connect(ctx, driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlstore.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlstore.NewVideoRepo(db), db, nil

	default:
		store, err := jsonfile.New(cfg.MetadataPath())
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// openBlobStore returns a non-nil Linker only when the backend signs its own links.
func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, blob.Linker, io.Closer, error) {
	switch cfg.BlobBackend {
	case config.BlobMemory:
		return blob.NewMemoryStore(), nil, nil, nil

	case config.BlobS3:
		s3, err := blob.NewS3Store(blob.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
			LinkTTL:   cfg.PlaybackTTL,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, nil, nil, err
		}
		return s3, s3, nil, nil

	default:
		fs, err := blob.OpenFSStore(cfg.BlobDir())
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, nil, fs, nil
	}
}

func newClassifier(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*classifier.Classifier, error) {
	var model classifier.Model
	if cfg.GeminiAPIKey != "" {
		g, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		model = g
	} else {
		model = classifier.Static(cfg.ClassifierPolicy.Fallback())
		log.Warn().
			Str("verdict", string(cfg.ClassifierPolicy.Fallback())).
			Msg("no gemini api key, every video gets the policy fallback verdict")
	}

	return classifier.New(classifier.Config{
		Model:   model,
		Policy:  cfg.ClassifierPolicy,
		Timeout: cfg.ClassifyTimeout,
		Logger:  log,
	})
}

package main

import (
	"fmt"
	"log/slog"

	"leasemail/internal/events"
	"leasemail/internal/util"
	"leasemail/pkg/ai"
	"leasemail/pkg/auth"
	"leasemail/pkg/storage"
	"leasemail/pkg/store"
	"leasemail/services/drafter/internal/app"
	"leasemail/services/drafter/internal/config"
)

// runtime is the wired application plus the resources it must release.
type runtime struct {
	cfg       config.FileConfig
	logger    *slog.Logger
	app       *app.App
	store     store.Store
	publisher events.Publisher
}

// loadRuntime wires everything from config. Interactive commands share stdout
// with the operator, so their log level is raised to warn unless debug is set.
func loadRuntime(interactive bool) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if interactive && util.ParseLevel(level) > slog.LevelDebug {
		level = "warn"
	}
	logger := util.InitLogger(level)

	dataStore, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger, store: dataStore, publisher: events.Nop{}}

	completer, err := ai.NewCompleter(cfg.CompleterConfig())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init completer: %w", err)
	}
	timeout, _ := config.ParseDuration(cfg.GenerationTimeout)

	archive, err := openArchive(cfg.Archive)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if publisher, err := openPublisher(cfg.Events); err != nil {
		rt.Close()
		return nil, err
	} else if publisher != nil {
		rt.publisher = publisher
	}

	rt.app, err = app.New(app.Config{
		Contacts:      dataStore,
		Conversations: dataStore,
		Completer:     completer,
		Members:       auth.NewMembers(cfg.Members),
		Sender:        cfg.Sender,
		Timeout:       timeout,
		Archive:       archive,
		Publisher:     rt.publisher,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init app: %w", err)
	}
	logger.Debug("runtime ready",
		"storage", cfg.Storage.Backend,
		"provider", cfg.GenerationProvider,
		"model", cfg.GenerationModel,
		"archive", cfg.Archive.Backend,
		"events", cfg.Events.Backend,
	)
	return rt, nil
}

func openArchive(cfg config.ArchiveConfig) (*storage.Archive, error) {
	switch cfg.Backend {
	case config.ArchiveFile:
		fs, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init draft archive: %w", err)
		}
		return storage.NewArchive(fs), nil
	case config.ArchiveMinio:
		ms, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init draft archive: %w", err)
		}
		return storage.NewArchive(ms), nil
	default:
		return nil, nil
	}
}

func openPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case config.EventsAMQP:
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		return p, nil
	case config.EventsRedis:
		p, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.Stream,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		return p, nil
	default:
		return nil, nil
	}
}

func (rt *runtime) Close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.logger.Warn("close event publisher", "err", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("close store", "err", err)
		}
	}
}

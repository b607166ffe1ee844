package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/advisor"
	"github.com/ntentasd/nostradamus-advisor/internal/cache"
	"github.com/ntentasd/nostradamus-advisor/internal/config"
	"github.com/ntentasd/nostradamus-advisor/internal/cooldown"
	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/internal/db"
	"github.com/ntentasd/nostradamus-advisor/internal/emqx"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/internal/kafka"
	"github.com/ntentasd/nostradamus-advisor/internal/logging"
	"github.com/ntentasd/nostradamus-advisor/internal/mqtt"
	"github.com/ntentasd/nostradamus-advisor/internal/recommend"
	"github.com/ntentasd/nostradamus-advisor/internal/routes"
	"github.com/ntentasd/nostradamus-advisor/internal/tracing"
	"github.com/ntentasd/nostradamus-advisor/internal/weather"
	"github.com/ntentasd/nostradamus-advisor/internal/worker"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

const serviceName = "nostradamus-advisor"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(serviceName, "info", "json")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("exiting")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.TempoEndpoint, serviceName)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	store, err := db.Connect(cfg.Scylla.Nodes, cfg.Scylla.MetaKeyspace, cfg.Scylla.DataKeyspace)
	if err != nil {
		return err
	}
	defer store.Close()

	addrs, err := cache.ResolveValkeyAddrs(cfg.Valkey.Nodes, cfg.Valkey.Service)
	if err != nil {
		return err
	}
	valkey := cache.NewValkey(addrs)
	defer valkey.Close()
	if err := valkey.Ping(ctx); err != nil {
		logger.Warn().Err(err).Strs("addrs", addrs).Msg("valkey not reachable yet")
	}

	var aggregates cache.AggregateCache = valkey
	if cfg.MemcachedAddr != "" {
		mc := cache.NewMemcached(cfg.MemcachedAddr)
		defer mc.Close()
		aggregates = mc
	}

	kb, err := crops.LoadFile(cfg.Advisor.CropsFile)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	ingestor := &ingest.Ingestor{
		Store:    store,
		History:  valkey,
		Alerts:   store,
		Sensors:  store,
		Crops:    kb,
		Cooldown: cooldown.NewValkey(valkey.Client(), logger),
		Notifier: notifier,
		Window:   cfg.Advisor.CooldownWindow,
		Logger:   logger.With().Str("component", "ingest").Logger(),
	}

	wopts := weather.DefaultOptions()
	wopts.BaseURL = cfg.Weather.BaseURL
	wopts.APIKey = cfg.Weather.APIKey
	wopts.CacheTTL = cfg.Weather.CacheTTL
	weatherClient := weather.New(wopts, aggregates, logger)

	home := types.Location{Lat: cfg.Weather.Lat, Lon: cfg.Weather.Lon}
	adv := &advisor.Advisor{
		Readings:        store,
		History:         valkey,
		Profiles:        store,
		Weather:         weatherClient,
		Aggregates:      aggregates,
		Crops:           kb,
		Synth:           recommend.New(recommend.DefaultConfig()),
		DefaultLocation: home,
		HistorySize:     cfg.Advisor.HistorySize,
		CacheTTL:        cfg.Advisor.AnalysisTTL,
		Concurrency:     cfg.Advisor.ReportConcurrency,
		Logger:          logger.With().Str("component", "advisor").Logger(),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ReadingsTopic, ingestor, logger)
		if err != nil {
			return err
		}
		go consumer.Run(ctx)
		defer func() {
			consumer.Close()
			<-consumer.Done()
		}()
	}

	if cfg.MQTT.Broker != "" {
		sub := mqtt.New(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      1,
		}, ingestor, logger)
		if err := sub.Start(ctx); err != nil {
			return err
		}
		defer sub.Stop()
	}

	if cfg.Weather.APIKey != "" {
		refresher := worker.NewWeatherRefresher(weatherClient, []types.Location{home}, cfg.Weather.RefreshInterval, logger)
		refresher.Locations = store
		refresher.Start(ctx)
		defer refresher.Stop()
	}

	app := routes.New(ingestor, adv, store, store, store, kb, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.NewMux(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) (ingest.Notifier, func(), error) {
	switch cfg.Notifier {
	case "kafka":
		p, err := kafka.NewAlertProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	case "emqx":
		c, err := emqx.New(cfg.Emqx.URL, cfg.Emqx.APIKey, cfg.Emqx.APISecret, cfg.Emqx.AlertsTopic)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	default:
		return &ingest.LogNotifier{Logger: logger.With().Str("component", "alerts").Logger()}, func() {}, nil
	}
}

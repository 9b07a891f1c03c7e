package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.OTel.ServiceName))

	// OTel log exporter
	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithInsecure())
	if err != nil {
		log.Fatalf("log exporter: %v", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	defer loggerProvider.Shutdown(context.Background())
	logger := loggerProvider.Logger(cfg.OTel.ServiceName)

	// Platform: lists from the world directory, logs from the file or the pod,
	// outbound chat over RCON when configured.
	worldDir := NewWorldDir(cfg.World.Path)
	if err := worldDir.Check(); err != nil {
		log.Fatalf("world: %v", err)
	}
	platform := Platform{
		ListReader: worldDir,
		LogReader:  NewLogFile(cfg.World.LogFile),
		Sender:     logSender{},
	}

	var wg sync.WaitGroup

	if cfg.Kubernetes.Enabled {
		pods := NewPodLogs(cfg.Kubernetes.PodLabel, NewK8sClient(cfg.Kubernetes.Namespace))
		platform.LogReader = pods
		wg.Add(1)
		go func() {
			defer wg.Done()
			pods.Run(ctx)
		}()
	}
	if cfg.RCON.Enabled {
		sender := NewRCONSender(cfg.RCON.Host, cfg.RCON.Port, cfg.RCON.Password, cfg.RCON.SayFormat)
		defer sender.Close()
		platform.Sender = sender
	}

	// World + metrics
	opts := WorldOptions{PollInterval: cfg.World.PollInterval}
	var metrics *worldMetrics
	var meterProvider *sdkmetric.MeterProvider
	if cfg.Metrics.Enabled {
		metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
		if err != nil {
			log.Fatalf("metric exporter: %v", err)
		}
		meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.Metrics.Interval))),
		)
		defer meterProvider.Shutdown(context.Background())

		metrics, err = newWorldMetrics(meterProvider.Meter(cfg.OTel.ServiceName))
		if err != nil {
			log.Fatalf("metrics: %v", err)
		}
		opts = metrics.options(opts)
	}

	world := NewWorld(platform, opts)
	if metrics != nil {
		if err := metrics.observeOnline(meterProvider.Meter(cfg.OTel.ServiceName), world); err != nil {
			log.Fatalf("metrics: %v", err)
		}
		world.Subscribe(metrics)
	}
	world.Subscribe(&OTelLogSubscriber{logger: logger, cfg: &cfg})

	// Bot + extensions
	storage, err := OpenSQLiteStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer storage.Close()

	registry := NewRegistry()
	registry.OnRegistered = func(id string) { log.Printf("extension %s registered", id) }
	registry.Register("messages", newMessagesExtension(cfg.Messages))

	bot := NewBot(world, storage, registry)
	for _, id := range cfg.Extensions {
		if err := bot.AddExtension(id); err != nil {
			log.Fatalf("extension: %v", err)
		}
	}

	// Discord channel (optional)
	var channels []Channel
	if cfg.Discord.Enabled {
		dc, err := NewDiscordChannel(cfg.Discord.BotToken, cfg.Discord.ChannelID, &cfg)
		if err != nil {
			log.Fatalf("discord: %v", err)
		}
		channels = append(channels, dc)
	}

	// Bridge
	bridge := NewBridge(world, channels)
	world.Subscribe(bridge.Subscriber())

	// Start goroutines
	wg.Add(1)
	go func() {
		defer wg.Done()
		// the process has nothing left to do once the world stops
		defer cancel()
		if err := bot.Start(ctx); err != nil {
			log.Printf("world: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bridge.FanOutEvents(ctx)
	}()

	for _, ch := range channels {
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				log.Printf("channel %s: %v", c.Name(), err)
			}
		}(ch)

		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			bridge.HandleInbound(ctx, c)
		}(ch)
	}

	channelNames := make([]string, len(channels))
	for i, ch := range channels {
		channelNames[i] = ch.Name()
	}
	log.Printf("messagebot started (world=%s, extensions=%v, rcon=%v, metrics=%v, channels=%v)",
		cfg.World.Path, bot.Extensions(), cfg.RCON.Enabled, cfg.Metrics.Enabled, channelNames)

	wg.Wait()
	log.Println("shutting down")
}

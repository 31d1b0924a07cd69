package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"factorydash.xyz/alert-engine/pkg/alerting"
	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/config"
	"factorydash.xyz/alert-engine/pkg/db"
	alertHttp "factorydash.xyz/alert-engine/pkg/http"
	"factorydash.xyz/alert-engine/pkg/models"
	"factorydash.xyz/alert-engine/pkg/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil && common.IsDevelopment() {
		log.Println("No .env file loaded, copy .env.example to .env first if in development")
	}
	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger := common.GetLogger()

	var dbInstance *db.DB
	switch cfg.DBType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	case "postgres":
		dbInstance = db.GetInstance(db.UsePostgresDialector())
	}

	workday, err := alerting.ParseWorkday(cfg.WorkdayStart, cfg.WorkdayEnd)
	if err != nil {
		log.Fatalf("invalid workday: %v", err)
	}

	hub := realtime.NewHub()

	senders, closeSenders := buildSenders(cfg, hub, logger)
	defer closeSenders()

	channelRate := rate.Inf
	if cfg.ChannelRate > 0 {
		channelRate = rate.Limit(cfg.ChannelRate)
	}

	opts := []alerting.Option{
		alerting.WithDB(dbInstance.Conn),
		alerting.WithSender(senders),
		alerting.WithWorkday(workday),
		alerting.WithEventPublisher(hub),
		alerting.WithRetentionPeriod(cfg.Retention),
		alerting.WithDispatcherOptions(alerting.DispatcherOptions{
			Workers:   cfg.DispatchWorkers,
			QueueSize: cfg.DispatchQueueSize,
			Limiter:   alerting.NewRateLimiterStore(channelRate, cfg.ChannelBurst),
		}),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		opts = append(opts, alerting.WithCooldownTracker(alerting.NewRedisCooldown(client, "alert-engine:cooldown:")))
		logger.Info("Using redis cooldown tracker", zap.String("addr", cfg.RedisAddr))
	}

	engine := alerting.New(opts...)
	engine.Dispatcher.Subscribe(func(r models.DeliveryReceipt) {
		if r.Status != models.DeliveryOK {
			logger.Warn("Delivery failed",
				zap.String("notification_id", r.NotificationID),
				zap.String("channel_id", r.ChannelID),
				zap.String("reason", r.Reason),
				zap.Int("attempts", r.Attempts),
			)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}

	if cfg.RulesFile != "" {
		applyRulesFile(ctx, engine, cfg.RulesFile, logger)
		if cfg.WatchRules {
			go func() {
				err := config.Watch(ctx, cfg.RulesFile, func(f *config.File) {
					report, err := f.Apply(ctx, engine)
					logger.Info("Rules file reloaded",
						zap.Int("accepted", len(report.Accepted)),
						zap.Int("disabled", len(report.Disabled)),
						zap.Int("rejected", len(report.Rejected)),
						zap.Error(err),
					)
				})
				if err != nil {
					logger.Error("rules watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	rs := &alertHttp.RestfulServer{
		Server:           gin.Default(),
		Engine:           engine,
		RateLimiterStore: alerting.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		Hub:              hub,
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	srv := &http.Server{Addr: cfg.HTTPHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Error("engine shutdown", zap.Error(err))
	}
}

func applyRulesFile(ctx context.Context, engine *alerting.AlertEngine, path string, logger *zap.Logger) {
	f, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("failed to read rules file: %v", err)
	}
	report, err := f.Apply(ctx, engine)
	if err != nil {
		logger.Warn("Rules file applied with errors", zap.Error(err))
	}
	logger.Info("Rules file applied",
		zap.String("path", path),
		zap.Int("accepted", len(report.Accepted)),
		zap.Int("disabled", len(report.Disabled)),
		zap.Int("rejected", len(report.Rejected)),
	)
}

// buildSenders registers a sender for every channel type that is configured.
// Desktop and webhook need no settings and are always available.
func buildSenders(cfg config.Config, hub *realtime.Hub, logger *zap.Logger) (channels.Senders, func()) {
	client := channels.NewRestyClient(10 * time.Second)
	senders := channels.Senders{
		models.ChannelDesktop: channels.NewDesktopSender(hub),
		models.ChannelWebhook: channels.NewWebhookSender(client),
	}
	closers := []func(){}

	smtpSettings := channels.SMTPSettings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		UseTLS:   cfg.SMTPPort == 465,
		Timeout:  10 * time.Second,
	}
	if smtpSettings.Enabled() {
		mailer, err := channels.NewSMTPMailer(smtpSettings)
		if err != nil {
			log.Fatalf("invalid smtp settings: %v", err)
		}
		senders[models.ChannelEmail] = channels.NewEmailSender(mailer)
		logger.Info("Email channel enabled", zap.String("host", cfg.SMTPHost))
	}

	if cfg.SMSGatewayURL != "" {
		senders[models.ChannelSMS] = channels.NewSMSSender(client, channels.SMSSettings{
			GatewayURL: cfg.SMSGatewayURL,
			Token:      cfg.SMSGatewayToken,
		})
		logger.Info("SMS channel enabled")
	}

	if cfg.MQTTBroker != "" {
		publisher, err := channels.NewMQTTPublisher(channels.MQTTSettings{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			QoS:      1,
		})
		if err != nil {
			logger.Error("Push channel disabled", zap.Error(err))
		} else {
			senders[models.ChannelPush] = channels.NewPushSender(publisher, "")
			closers = append(closers, publisher.Close)
			logger.Info("Push channel enabled", zap.String("broker", cfg.MQTTBroker))
		}
	}

	return senders, func() {
		for _, c := range closers {
			c()
		}
	}
}

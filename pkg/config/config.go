package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"factorydash.xyz/alert-engine/pkg/common"
)

const (
	DefaultHTTPHostPort  = ":1080"
	DefaultRate          = 10.0
	DefaultBurst         = 20
	DefaultWorkers       = 4
	DefaultQueueSize     = 1024
	DefaultWorkdayStart  = "08:00"
	DefaultWorkdayEnd    = "18:00"
	DefaultRetentionDays = 30
	DefaultMQTTClientID  = "alert-engine"
)

// Config is the process configuration read from the environment (and .env).
type Config struct {
	DBType       string
	HTTPHostPort string

	// per-source sample limiter
	DefaultRate  float64
	DefaultBurst int

	RulesFile  string
	WatchRules bool
	RedisAddr  string

	DispatchWorkers   int
	DispatchQueueSize int
	// ChannelRate of 0 leaves senders unthrottled.
	ChannelRate  float64
	ChannelBurst int

	WorkdayStart string
	WorkdayEnd   string
	Retention    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SMSGatewayURL   string
	SMSGatewayToken string

	MQTTBroker   string
	MQTTClientID string
}

type envReader struct {
	errs []string
}

func (r *envReader) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *envReader) int(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s should be an int value, got %q", key, v))
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s should be a float64 value, got %q", key, v))
		return fallback
	}
	return f
}

func (r *envReader) bool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s should be true or false, got %q", key, v))
	}
	return b
}

// FromEnv reads every ALERT_* key, applying defaults for unset keys. All
// malformed values are reported together.
func FromEnv() (Config, error) {
	r := &envReader{}
	cfg := Config{
		DBType:            r.str(common.EnvKeyAlertDBType, "memory"),
		HTTPHostPort:      r.str(common.EnvKeyAlertHttpHostPort, DefaultHTTPHostPort),
		DefaultRate:       r.float(common.EnvKeyAlertDefaultRate, DefaultRate),
		DefaultBurst:      r.int(common.EnvKeyAlertDefaultBurst, DefaultBurst),
		RulesFile:         r.str(common.EnvKeyAlertRulesFile, ""),
		WatchRules:        r.bool(common.EnvKeyAlertWatchRules),
		RedisAddr:         r.str(common.EnvKeyAlertRedisAddr, ""),
		DispatchWorkers:   r.int(common.EnvKeyAlertWorkers, DefaultWorkers),
		DispatchQueueSize: r.int(common.EnvKeyAlertQueueSize, DefaultQueueSize),
		ChannelRate:       r.float(common.EnvKeyAlertChannelRate, 0),
		ChannelBurst:      r.int(common.EnvKeyAlertChannelBurst, 1),
		WorkdayStart:      r.str(common.EnvKeyAlertWorkdayStart, DefaultWorkdayStart),
		WorkdayEnd:        r.str(common.EnvKeyAlertWorkdayEnd, DefaultWorkdayEnd),
		SMTPHost:          r.str(common.EnvKeyAlertSMTPHost, ""),
		SMTPPort:          r.int(common.EnvKeyAlertSMTPPort, 587),
		SMTPUsername:      r.str(common.EnvKeyAlertSMTPUsername, ""),
		SMTPPassword:      r.str(common.EnvKeyAlertSMTPPassword, ""),
		SMTPFrom:          r.str(common.EnvKeyAlertSMTPFrom, ""),
		SMSGatewayURL:     r.str(common.EnvKeyAlertSMSGateway, ""),
		SMSGatewayToken:   r.str(common.EnvKeyAlertSMSToken, ""),
		MQTTBroker:        r.str(common.EnvKeyAlertMQTTBroker, ""),
		MQTTClientID:      r.str(common.EnvKeyAlertMQTTClientID, DefaultMQTTClientID),
	}
	days := r.int(common.EnvKeyAlertRetentionDays, DefaultRetentionDays)
	cfg.Retention = time.Duration(days) * 24 * time.Hour

	switch cfg.DBType {
	case "file", "memory", "postgres":
	default:
		r.errs = append(r.errs, fmt.Sprintf("unknown %s %q, want file, memory or postgres", common.EnvKeyAlertDBType, cfg.DBType))
	}
	if cfg.DefaultBurst < 1 {
		r.errs = append(r.errs, fmt.Sprintf("%s must be at least 1", common.EnvKeyAlertDefaultBurst))
	}

	if len(r.errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(r.errs, "; "))
	}
	return cfg, nil
}

package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyAlertDBType      string = "ALERT_DB_TYPE"
	EnvKeyAlertDbPath      string = "ALERT_DB_PATH"
	EnvKeyAlertPostgresDSN string = "ALERT_POSTGRES_DSN"

	EnvKeyAlertHttpHostPort string = "ALERT_HTTP_HOST_PORT"

	EnvKeyAlertDefaultRate  string = "ALERT_DEFAULT_RATE"
	EnvKeyAlertDefaultBurst string = "ALERT_DEFAULT_BURST"

	EnvKeyAlertRulesFile     string = "ALERT_RULES_FILE"
	EnvKeyAlertWatchRules    string = "ALERT_WATCH_RULES"
	EnvKeyAlertRedisAddr     string = "ALERT_REDIS_ADDR"
	EnvKeyAlertWorkers       string = "ALERT_DISPATCH_WORKERS"
	EnvKeyAlertQueueSize     string = "ALERT_DISPATCH_QUEUE_SIZE"
	EnvKeyAlertChannelRate   string = "ALERT_CHANNEL_RATE"
	EnvKeyAlertChannelBurst  string = "ALERT_CHANNEL_BURST"
	EnvKeyAlertWorkdayStart  string = "ALERT_WORKDAY_START"
	EnvKeyAlertWorkdayEnd    string = "ALERT_WORKDAY_END"
	EnvKeyAlertRetentionDays string = "ALERT_RETENTION_DAYS"
	EnvKeyAlertLogDir        string = "ALERT_LOG_DIR"

	EnvKeyAlertSMTPHost     string = "ALERT_SMTP_HOST"
	EnvKeyAlertSMTPPort     string = "ALERT_SMTP_PORT"
	EnvKeyAlertSMTPUsername string = "ALERT_SMTP_USERNAME"
	EnvKeyAlertSMTPPassword string = "ALERT_SMTP_PASSWORD"
	EnvKeyAlertSMTPFrom     string = "ALERT_SMTP_FROM"
	EnvKeyAlertSMSGateway   string = "ALERT_SMS_GATEWAY_URL"
	EnvKeyAlertSMSToken     string = "ALERT_SMS_GATEWAY_TOKEN"
	EnvKeyAlertMQTTBroker   string = "ALERT_MQTT_BROKER"
	EnvKeyAlertMQTTClientID string = "ALERT_MQTT_CLIENT_ID"

	LoggerNameAlertCore     string = "alert_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameDispatcher    string = "dispatcher"
	LoggerNameDigest        string = "digest"
	LoggerNameRulesWatcher  string = "rules_watcher"
	LoggerNameChannels      string = "channels"
	LoggerNameRealtime      string = "realtime"

	LoggerFieldAlertCategory       string = "category"
	LoggerCategoryAlertRule        string = "rule"
	LoggerCategoryAlertSample      string = "sample"
	LoggerCategoryAlertInbox       string = "inbox"
	LoggerCategoryAlertPreferences string = "preferences"
	LoggerCategoryAlertDelivery    string = "delivery"
)

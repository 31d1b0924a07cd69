package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"factorydash.xyz/alert-engine/pkg/alerting"
	"factorydash.xyz/alert-engine/pkg/common"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/metrics"
	"factorydash.xyz/alert-engine/pkg/realtime"
)

type RestfulServer struct {
	Server           *gin.Engine
	Engine           *alerting.AlertEngine
	RateLimiterStore *alerting.RateLimiterStore
	Hub              *realtime.Hub
	// RetryWait bounds how long a retry request waits for its outcome
	// before answering 202.
	RetryWait time.Duration
}

func (rs *RestfulServer) GetLimiter(source string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(source)
	}
}

func (rs *RestfulServer) CheckSourceLimiter(source string) bool {
	limiter := rs.GetLimiter(source)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(source string, sourceRate float64, sourceBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(source, rate.Limit(sourceRate), sourceBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.Use(observeLatency())

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rules := rs.Server.Group("/rules")
	{
		rules.POST("/load", rs.LoadRules)
		rules.GET("", rs.ListRules)
		rules.GET("/:rule_id", rs.GetRule)
		rules.PATCH("/:rule_id", rs.UpdateRule)
		rules.POST("/:rule_id/enable", rs.EnableRule)
		rules.POST("/:rule_id/disable", rs.DisableRule)
	}

	samples := rs.Server.Group("/samples")
	{
		samples.POST("", rs.PostSample)
		samples.POST("/:source/limiter", rs.PostLimiter)
	}

	rs.Server.GET("/channels", rs.ListChannels)

	notifications := rs.Server.Group("/notifications")
	{
		notifications.POST("", rs.PostNotification)
		notifications.GET("/:id", rs.GetNotification)
		notifications.POST("/:id/read", rs.MarkRead)
		notifications.POST("/:id/acknowledge", rs.Acknowledge)
		notifications.POST("/:id/resolve", rs.Resolve)
		notifications.POST("/:id/archive", rs.Archive)
		notifications.PUT("/:id/star", rs.Star)
		notifications.GET("/:id/receipts", rs.GetReceipts)
		notifications.POST("/:id/channels/:channel_id/retry", rs.RetryDelivery)
	}

	recipients := rs.Server.Group("/recipients/:recipient_id")
	{
		recipients.GET("/notifications", rs.ListNotifications)
		recipients.GET("/notifications/unread", rs.CountUnread)
		recipients.GET("/notifications/export", rs.ExportNotifications)
		recipients.POST("/notifications/read-all", rs.MarkAllRead)
		recipients.GET("/preferences", rs.GetPreferences)
		recipients.PATCH("/preferences", rs.UpdatePreferences)
	}

	if rs.Hub != nil {
		rs.Server.GET("/ws/:recipient_id", rs.ServeWebsocket)
	}
}

func observeLatency() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// writeError answers with the AppError's status and body. Unclassified errors
// are logged and reported as internal.
func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	appErr = apperrors.FromError(err)
	c.JSON(appErr.StatusCode, gin.H{"error": appErr})
}

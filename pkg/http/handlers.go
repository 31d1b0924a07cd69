package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"factorydash.xyz/alert-engine/pkg/alerting"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

func badBody(c *gin.Context, err error) {
	writeError(c, apperrors.NewValidation("invalid request body").WithInternal(err))
}

// ReportResponse is the JSON form of an alerting.Report.
type ReportResponse struct {
	Source          string                     `json:"source"`
	SampleAt        time.Time                  `json:"sampleAt"`
	FiredRules      []string                   `json:"firedRules"`
	SuppressedRules []string                   `json:"suppressedRules"`
	Errors          map[string]string          `json:"errors"`
	Notifications   []models.Notification      `json:"notifications"`
	Deliveries      []*alerting.DeliveryHandle `json:"deliveries"`
	Skipped         []alerting.SkippedDelivery `json:"skipped"`
	Digested        int                        `json:"digested"`
}

func newReportResponse(r *alerting.Report) ReportResponse {
	return ReportResponse{
		Source:          r.Source,
		SampleAt:        r.SampleAt,
		FiredRules:      r.FiredRules,
		SuppressedRules: r.SuppressedRules,
		Errors:          r.ErrorMessages(),
		Notifications:   r.NotificationsCreated,
		Deliveries:      r.Deliveries,
		Skipped:         r.Skipped,
		Digested:        r.Digested,
	}
}

type SampleRequest struct {
	Timestamp time.Time         `json:"timestamp" zog:"timestamp"`
	Source    string            `json:"source" zog:"source"`
	Fields    map[string]any    `json:"fields"`
	Labels    map[string]string `json:"labels"`
}

var sampleRequestSchema = z.Struct(z.Shape{
	"Source": z.String().Trim().Required(),
})

func (rs *RestfulServer) PostSample(c *gin.Context) {
	var req SampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if errs := sampleRequestSchema.Validate(&req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	if !rs.CheckSourceLimiter(req.Source) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	report, err := rs.Engine.Sample.OnSample(c.Request.Context(), models.Sample{
		Timestamp: req.Timestamp,
		Source:    req.Source,
		Fields:    req.Fields,
		Labels:    req.Labels,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newReportResponse(report))
}

type LimiterRequest struct {
	Rate  float64 `json:"rate" zog:"rate"`
	Burst int     `json:"burst" zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	source := c.Param("source")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(source, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) PostNotification(c *gin.Context) {
	var req models.AdHocNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	report, err := rs.Engine.Sample.Notify(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newReportResponse(report))
}

func (rs *RestfulServer) LoadRules(c *gin.Context) {
	var specs []models.RuleSpec
	if err := c.ShouldBindJSON(&specs); err != nil {
		badBody(c, err)
		return
	}

	report := rs.Engine.Rule.LoadRules(c.Request.Context(), specs)
	if len(report.Accepted) == 0 && len(report.Rejected) > 0 {
		c.JSON(http.StatusBadRequest, report)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (rs *RestfulServer) ListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": rs.Engine.Rule.ListRules()})
}

func (rs *RestfulServer) GetRule(c *gin.Context) {
	rule, err := rs.Engine.Rule.GetRule(c.Param("rule_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (rs *RestfulServer) UpdateRule(c *gin.Context) {
	var patch models.RulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badBody(c, err)
		return
	}

	rule, err := rs.Engine.Rule.UpdateRule(c.Request.Context(), c.Param("rule_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (rs *RestfulServer) EnableRule(c *gin.Context) {
	rs.setRuleEnabled(c, true)
}

func (rs *RestfulServer) DisableRule(c *gin.Context) {
	rs.setRuleEnabled(c, false)
}

func (rs *RestfulServer) setRuleEnabled(c *gin.Context, enabled bool) {
	rule, err := rs.Engine.Rule.SetEnabled(c.Request.Context(), c.Param("rule_id"), enabled)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (rs *RestfulServer) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": rs.Engine.Delivery.ListChannels()})
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

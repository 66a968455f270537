package portfoliosync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
	"github.com/fieldlend/portfolio_backend/scoring"
	"github.com/fieldlend/portfolio_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if strings.TrimSpace(req.Source) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
			return
		}

		run, err := StartSyncRun(c.Request.Context(), organizationId, req)
		if err != nil {
			if errors.Is(err, ErrSyncAlreadyRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": "a sync is already in progress"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"id": run.ID})
	}
}

// SyncStatusHandler reports the newest run; callers poll it for progress.
func SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		run, err := models.LatestSyncRun(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if run == nil {
			c.JSON(http.StatusOK, gin.H{"status": "never_synced"})
			return
		}

		c.JSON(http.StatusOK, mapRunToResponse(run))
	}
}

// SyncRunDetailHandler returns one run including its quality report and any
// officer accounts provisioned during ingestion.
func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		run, err := models.GetSyncRun(c.Request.Context(), organizationId, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"run":                 mapRunToResponse(run),
			"qualityReport":       rawJSON(run.QualityReportJSON),
			"provisionedOfficers": rawJSON(run.ProvisionedOfficersJSON),
		})
	}
}

// RetrySyncHandler starts a fresh run against a past run's source.
func RetrySyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		prior, err := models.GetSyncRun(c.Request.Context(), organizationId, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		run, err := StartSyncRun(c.Request.Context(), organizationId, TriggerSyncRequest{
			Source:      prior.SourceRef,
			TriggeredBy: models.SyncTriggeredRetry,
		})
		if err != nil {
			if errors.Is(err, ErrSyncAlreadyRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": "a sync is already in progress"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"id": run.ID})
	}
}

// ListOfficersHandler lists the officer external ids present in the portfolio.
func ListOfficersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ids, err := models.DistinctOfficerIds(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": ids})
	}
}

func GetWeightsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		settings, err := models.GetWeightSettings(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// UpdateWeightsHandler validates and saves new weights, then recalculates the
// organization's scores in the background. Scores served between save and
// recalculation completion reflect the old weights.
func UpdateWeightsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var settings models.WeightSettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		settings.OrganizationId = organizationId

		if err := settings.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := models.SaveWeightSettings(c.Request.Context(), &settings); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		go recalculateAfterWeightChange(organizationId)

		c.JSON(http.StatusOK, gin.H{"success": true, "recalculating": true})
	}
}

func recalculateAfterWeightChange(organizationId string) {
	logger := config.GetLogger()
	ctx := context.Background()

	recalculated, err := scoring.RecalculateOrganization(ctx, organizationId, nil)
	if err != nil {
		config.LogError(logger, "portfoliosync", "recalculateAfterWeightChange", "recalculate", organizationId, err)
	}
	BroadcastWeightsChanged(ctx, organizationId, recalculated)
}

// RecordVisitHandler marks a field visit completed and rescores the client.
func RecordVisitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, clientId, ok := resolveClientScope(c)
		if !ok {
			return
		}

		var req RecordVisitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		visitedAt, err := parseTimestamp(req.VisitedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visitedAt"})
			return
		}

		updates := map[string]interface{}{"last_visit_at": visitedAt}
		if strings.TrimSpace(req.Notes) != "" {
			updates["visit_notes"] = req.Notes
		}

		updateInteraction(c, organizationId, clientId, updates)
	}
}

func RecordCallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, clientId, ok := resolveClientScope(c)
		if !ok {
			return
		}

		var req RecordCallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		calledAt, err := parseTimestamp(req.CalledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid calledAt"})
			return
		}

		updates := map[string]interface{}{"last_call_at": calledAt}
		if strings.TrimSpace(req.Notes) != "" {
			updates["visit_notes"] = req.Notes
		}

		updateInteraction(c, organizationId, clientId, updates)
	}
}

// UpdateFeedbackHandler stores the officer's assessment and rescores the
// client with the new feedback.
func UpdateFeedbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, clientId, ok := resolveClientScope(c)
		if !ok {
			return
		}

		var req UpdateFeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}

		updates := map[string]interface{}{"feedback_score": req.Overall}
		if req.Repayment != nil {
			updates["feedback_repayment"] = *req.Repayment
		}
		if req.Communication != nil {
			updates["feedback_communication"] = *req.Communication
		}
		if req.Cooperation != nil {
			updates["feedback_cooperation"] = *req.Cooperation
		}
		if req.Stability != nil {
			updates["feedback_stability"] = *req.Stability
		}
		if req.Outlook != nil {
			updates["feedback_outlook"] = *req.Outlook
		}

		updateInteraction(c, organizationId, clientId, updates)
	}
}

func updateInteraction(c *gin.Context, organizationId string, clientId uint, updates map[string]interface{}) {
	ctx := c.Request.Context()
	db := config.GetDB()

	res := db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND organization_id = ?", clientId, organizationId).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := scoring.RecalculateClient(ctx, organizationId, clientId); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	BroadcastScoresUpdated(ctx, organizationId, clientId)

	client, err := models.GetClient(ctx, organizationId, clientId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, client)
}

// ListClientsHandler pages clients by ascending id, optionally filtered by
// classification or officer.
func ListClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, err := resolveOrganizationID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := 50
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		var afterId uint
		if v := strings.TrimSpace(c.Query("after_id")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				afterId = uint(n)
			}
		}

		ctx := c.Request.Context()
		query := config.GetDB().WithContext(ctx).
			Where("organization_id = ? AND id > ?", organizationId, afterId).
			Order("id asc").
			Limit(limit)
		if v := strings.TrimSpace(c.Query("classification")); v != "" {
			query = query.Where("urgency_classification = ?", v)
		}
		if v := strings.TrimSpace(c.Query("officer_id")); v != "" {
			query = query.Where("officer_external_id = ?", v)
		}

		var clients []models.Client
		if err := query.Find(&clients).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": clients})
	}
}

func ClientDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, clientId, ok := resolveClientScope(c)
		if !ok {
			return
		}

		client, err := models.GetClient(c.Request.Context(), organizationId, clientId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func resolveClientScope(c *gin.Context) (string, uint, bool) {
	organizationId, err := resolveOrganizationID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", 0, false
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return "", 0, false
	}
	return organizationId, uint(id), true
}

func resolveOrganizationID(c *gin.Context) (string, error) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(username) == "" {
		return "", errors.New("unauthorized")
	}

	organizationId := strings.TrimSpace(c.Query("organization_id"))
	if organizationId != "" {
		if err := authorizeOrganization(c.Request.Context(), organizationId); err != nil {
			return "", err
		}
		return organizationId, nil
	}

	user, err := lookupUser(c.Request.Context(), username)
	if err != nil {
		return "", err
	}
	organizationId = strings.TrimSpace(user.OrganizationId)
	if organizationId == "" {
		return "", errors.New("organization_id is required")
	}
	return organizationId, nil
}

// authorizeOrganization allows admins to address any organization; everyone
// else is pinned to their own.
func authorizeOrganization(ctx context.Context, organizationId string) error {
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return errors.New("unauthorized")
	}

	user, err := lookupUser(ctx, username)
	if err != nil {
		return err
	}
	if user.Role == models.UserRoleAdmin {
		return nil
	}
	if user.OrganizationId != organizationId {
		return errors.New("unauthorized")
	}
	return nil
}

func lookupUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if db == nil {
			return nil, errors.New("db is nil")
		}
		if err := db.WithContext(ctx).
			Model(&models.User{}).
			Where("username = ?", username).
			Take(&user).Error; err != nil {
			return nil, errors.New("unauthorized")
		}
	}
	return &user, nil
}

// parseTimestamp accepts RFC3339 or empty (meaning now).
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, s)
}

func mapRunToResponse(run *models.PortfolioSyncRun) SyncStatusResponse {
	return SyncStatusResponse{
		ID:               run.ID,
		Status:           run.Status,
		Progress:         run.Progress,
		CurrentStep:      run.CurrentStep,
		RecordsProcessed: run.RecordsProcessed,
		RecordsChanged:   run.RecordsChanged,
		LastError:        run.LastError,
		StartedAt:        formatTime(run.StartedAt),
		FinishedAt:       formatTime(run.FinishedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func rawJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

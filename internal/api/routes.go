package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthrisk/cardagg-engine/internal/pipeline"
	"github.com/healthrisk/cardagg-engine/internal/store"
	"github.com/healthrisk/cardagg-engine/internal/taskqueue"
	"github.com/healthrisk/cardagg-engine/internal/windows"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// maxWindowsPerRun caps how many windows one /runs request may enqueue,
// to prevent an unbounded date range from exhausting worker capacity.
const maxWindowsPerRun = 500

// APIHandler serves the operational HTTP surface: triggering window
// runs, listing persisted groups, and streaming pipeline progress.
type APIHandler struct {
	pipeline *pipeline.Pipeline
	pg       *store.PostgresStore
	wsHub    *Hub
	queue    *taskqueue.Queue
}

// SetupRouter builds the gin engine, mirroring the teacher's CORS and
// auth/rate-limit group layout. queue may be nil, in which case every
// /runs request is executed synchronously inline.
func SetupRouter(p *pipeline.Pipeline, pg *store.PostgresStore, wsHub *Hub, queue *taskqueue.Queue) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{pipeline: p, pg: pg, wsHub: wsHub, queue: queue}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/runs", handler.handleTriggerRun)
		auth.GET("/runs/:id/groups", handler.handleListGroups)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"engine":      "card aggregation cohort detector",
		"dbConnected": h.pg != nil,
	})
}

// handleTriggerRun accepts a date range and run parameters and iterates
// the windows over the range. With a task queue and more than one window,
// each window is enqueued and the task ids are returned; otherwise the
// pipeline runs for each window synchronously.
// POST /api/v1/runs
func (h *APIHandler) handleTriggerRun(c *gin.Context) {
	var req struct {
		StartDate  string  `json:"start_date"`
		EndDate    string  `json:"end_date"`
		Admdvs     string  `json:"admdvs"`
		ModelNo    string  `json:"model_no"`
		WindowSize int     `json:"window_size"`
		StepSize   int     `json:"step_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.WindowSize <= 0 {
		req.WindowSize = 3
	}
	if req.StepSize <= 0 {
		req.StepSize = 3
	}

	wins, err := windows.Iterate(req.StartDate, req.EndDate, req.WindowSize, req.StepSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(wins) > maxWindowsPerRun {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date range produces too many windows", "max": maxWindowsPerRun})
		return
	}

	groupPrefix := strconv.FormatInt(time.Now().Unix(), 10)

	// More than one window in a run goes through the task queue, per the
	// original's distributed-dispatch behavior; a single window runs
	// inline so callers get its result synchronously.
	if h.queue != nil && len(wins) > 1 {
		taskIDs := make([]string, 0, len(wins))
		for _, w := range wins {
			task := taskqueue.NewTask(w.Begin, w.End, req.Admdvs)
			h.broadcastProgress(models.WindowMetadata{InputBegnDate: w.Begin, InputEndDate: w.End}, "queued")
			h.queue.Submit(task)
			taskIDs = append(taskIDs, task.ID)
		}
		c.JSON(http.StatusAccepted, gin.H{
			"windows":     len(wins),
			"taskIds":     taskIDs,
			"groupPrefix": groupPrefix,
		})
		return
	}

	var totalGroups int
	var warnings int
	for _, w := range wins {
		meta := models.WindowMetadata{
			ModelNo:       req.ModelNo,
			RunTime:       time.Now(),
			Admdvs:        req.Admdvs,
			InputBegnDate: w.Begin,
			InputEndDate:  w.End,
			GroupIDPrefix: groupPrefix,
		}
		h.broadcastProgress(meta, "started")
		res, err := h.pipeline.RunWindow(c.Request.Context(), meta)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "window": w})
			return
		}
		if res != nil {
			totalGroups += len(res.Groups)
			if res.Warning != nil {
				warnings++
			}
		}
		h.broadcastProgress(meta, "completed")
	}

	c.JSON(http.StatusOK, gin.H{
		"windows":      len(wins),
		"totalGroups":  totalGroups,
		"warningCount": warnings,
		"groupPrefix":  groupPrefix,
	})
}

func (h *APIHandler) broadcastProgress(meta models.WindowMetadata, stage string) {
	if h.wsHub == nil {
		return
	}
	h.wsHub.Broadcast([]byte(`{"type":"window_progress","stage":"` + stage + `","begin":"` + meta.InputBegnDate + `","end":"` + meta.InputEndDate + `"}`))
}

// handleListGroups lists persisted risk groups for a model_no.
// GET /api/v1/runs/:id/groups
func (h *APIHandler) handleListGroups(c *gin.Context) {
	if h.pg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}
	modelNo := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	rows, err := listGroups(c.Request.Context(), h.pg, modelNo, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "page": page, "limit": limit})
}

func listGroups(ctx context.Context, pg *store.PostgresStore, modelNo string, page, limit int) ([]models.RiskGroup, error) {
	offset := (page - 1) * limit
	sql := `
		SELECT group_id, subgroup_id, risk_clinic_ratio, person_id, med_clinic_id, flx_med_org_id, med_type, adm_date, adm_time
		FROM risk_group WHERE model_no = $1
		ORDER BY group_id
		LIMIT $2 OFFSET $3
	`
	rows, err := pg.GetPool().Query(ctx, sql, modelNo, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RiskGroup
	for rows.Next() {
		var r models.RiskGroup
		if err := rows.Scan(&r.GroupID, &r.SubgroupID, &r.RiskClinicRatio, &r.PersonID, &r.MedClinicID, &r.FlxMedOrgID, &r.MedType, &r.AdmDate, &r.AdmTime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

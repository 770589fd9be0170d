package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/service"
	"github.com/gin-gonic/gin"
)

// Handler API 处理器
type Handler struct {
	analysisService *service.AnalysisService
	overlayService  *service.OverlayService
	historyService  *service.HistoryService
	breakpoints     *model.BreakpointSet
}

// NewHandler 创建处理器
func NewHandler(
	analysisService *service.AnalysisService,
	overlayService *service.OverlayService,
	historyService *service.HistoryService,
	breakpoints *model.BreakpointSet,
) *Handler {
	return &Handler{
		analysisService: analysisService,
		overlayService:  overlayService,
		historyService:  historyService,
		breakpoints:     breakpoints,
	}
}

// Analyze 对点击点执行行车时间分析
// POST /api/v1/analyze
func (h *Handler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	run, err := h.analysisService.Analyze(c.Request.Context(), &req)
	if err != nil {
		status := statusForError(err)
		body := gin.H{
			"error":   "analysis failed",
			"details": err.Error(),
		}
		// 失败时点击标记已上图，把终态一并返回
		if run != nil {
			body["phase"] = run.Phase
		}
		c.JSON(status, body)
		return
	}

	fc := model.NewFeatureCollection()
	for _, g := range run.Graphics {
		fc.AddFeature(g.ToFeature())
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":         run.Phase,
		"breakpoints":   run.Breakpoints,
		"polygon_count": run.PolygonCount,
		"graphics":      fc,
	})
}

// statusForError 按错误类别映射 HTTP 状态码
func statusForError(err error) int {
	var validation *model.ValidationError
	var auth *model.AuthError
	var empty *model.EmptyResultError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusBadGateway
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// GetBreakpoints 获取时间阈值
// GET /api/v1/breakpoints
func (h *Handler) GetBreakpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"breakpoints": h.breakpoints.Get(),
	})
}

// SetBreakpoint 修改指定下标的时间阈值
// PUT /api/v1/breakpoints/:index
func (h *Handler) SetBreakpoint(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid index",
			"details": err.Error(),
		})
		return
	}

	// 指针绑定：0 要走到 Set 被范围检查拒绝，而不是在绑定层被当成缺失
	var req struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.breakpoints.Set(index, *req.Value); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"breakpoints": h.breakpoints.Get(),
	})
}

// GetOverlay 获取当前覆盖物
// GET /api/v1/overlay
func (h *Handler) GetOverlay(c *gin.Context) {
	c.JSON(http.StatusOK, h.overlayService.ToGeoJSON())
}

// ClearOverlay 清空覆盖物
// DELETE /api/v1/overlay
func (h *Handler) ClearOverlay(c *gin.Context) {
	h.overlayService.Clear()
	c.Status(http.StatusNoContent)
}

// GetStatus 运行状态（进行中的分析数即前端加载指示）
// GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"in_flight":     h.analysisService.InFlight(),
		"overlay_count": h.overlayService.Len(),
	})
}

// GetRuns 最近的分析记录
// GET /api/v1/runs?limit=
func (h *Handler) GetRuns(c *gin.Context) {
	if !h.historyService.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "history disabled",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.historyService.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to get runs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": records,
	})
}

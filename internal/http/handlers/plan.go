package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dermatrack-backend/internal/http/response"
	"github.com/yungbote/dermatrack-backend/internal/services"
)

type PlanHandler struct {
	planService services.PlanService
}

func NewPlanHandler(planService services.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// POST /treatment/start
func (h *PlanHandler) Start(c *gin.Context) {
	plan, err := h.planService.Start(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

// POST /treatment/review
// body: { "day": N, "feedback": "positive"|"negative", "notes": "..." }
func (h *PlanHandler) Review(c *gin.Context) {
	var req struct {
		Day      int    `json:"day"`
		Feedback string `json:"feedback"`
		Notes    string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	day, err := h.planService.Review(c.Request.Context(), req.Day, req.Feedback, req.Notes)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"day": day})
}

// GET /treatment/status
func (h *PlanHandler) Status(c *gin.Context) {
	status, err := h.planService.Status(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, status)
}

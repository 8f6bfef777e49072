package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/http/response"
	"github.com/yungbote/dermatrack-backend/internal/services"
)

type UserInfoHandler struct {
	userInfoService services.UserInfoService
}

func NewUserInfoHandler(userInfoService services.UserInfoService) *UserInfoHandler {
	return &UserInfoHandler{userInfoService: userInfoService}
}

// PUT /userinfo
// Body is the full questionnaire document; resubmitting replaces the
// previous answers.
func (h *UserInfoHandler) Submit(c *gin.Context) {
	var req types.UserInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	info, err := h.userInfoService.Submit(c.Request.Context(), &req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_info": info})
}

// GET /userinfo
func (h *UserInfoHandler) Get(c *gin.Context) {
	info, err := h.userInfoService.Get(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_info": info})
}

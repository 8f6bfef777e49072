package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/http/response"
	"github.com/yungbote/dermatrack-backend/internal/services"
)

var errFileTooLarge = errors.New("file too large")

type PredictionHandler struct {
	predictionService services.PredictionService
}

func NewPredictionHandler(predictionService services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictionService: predictionService}
}

// POST /predictions/upload (multipart/form-data)
// fields: "file", "faceArea"
func (h *PredictionHandler) Upload(c *gin.Context) {
	faceArea := c.PostForm("faceArea")
	if !types.ValidArea(faceArea) {
		response.RespondError(c, http.StatusBadRequest, "invalid_face_area", errors.New("unknown faceArea"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "read_file_failed", err)
		return
	}

	pred, err := h.predictionService.UploadImage(c.Request.Context(), faceArea, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prediction": pred})
}

// GET /predictions?limit=&offset=
func (h *PredictionHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	preds, err := h.predictionService.History(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"predictions": preds})
}

// GET /predictions/session
func (h *PredictionHandler) Session(c *gin.Context) {
	summary, err := h.predictionService.SessionSummary(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": summary})
}

package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/http/response"
	"github.com/yungbote/dermatrack-backend/internal/services"
)

// maxImageBytes caps a single uploaded image.
const maxImageBytes = 10 << 20

type AcneHandler struct {
	acneService services.AcneService
}

func NewAcneHandler(acneService services.AcneService) *AcneHandler {
	return &AcneHandler{acneService: acneService}
}

// POST /acne/upload (multipart/form-data)
// One file field per body area, field name = area name. At least one
// area is required; the analysis is write-once.
func (h *AcneHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var images []services.AreaImage
	for field, files := range form.File {
		if !types.ValidArea(field) || len(files) == 0 {
			continue
		}
		data, err := readUpload(files[0])
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "read_file_failed", err)
			return
		}
		images = append(images, services.AreaImage{
			Area:        field,
			Filename:    files[0].Filename,
			ContentType: files[0].Header.Get("Content-Type"),
			Data:        data,
		})
	}

	set, err := h.acneService.UploadAreaImages(c.Request.Context(), images)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"level_set": set})
}

// GET /acne/levels
func (h *AcneHandler) GetLevels(c *gin.Context) {
	set, err := h.acneService.GetLevels(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"level_set": set})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, errFileTooLarge
	}
	return data, nil
}

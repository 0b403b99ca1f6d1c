package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	leadapp "github.com/leadflow/backend/internal/application/lead"
	"github.com/leadflow/backend/internal/interfaces/http/dto"
)

// LeadFileField is the multipart field holding the uploaded file
const LeadFileField = "file"

// LeadUploader validates and stores lead files
type LeadUploader interface {
	Upload(ctx context.Context, userID, filename string, data []byte) (*leadapp.UploadResult, error)
}

// LeadHandler handles lead file uploads
type LeadHandler struct {
	BaseHandler
	uploader LeadUploader
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(uploader LeadUploader) *LeadHandler {
	return &LeadHandler{uploader: uploader}
}

// Upload accepts a multipart CSV upload and returns the parsed lead count
// and the storage key of the archived file
func (h *LeadHandler) Upload(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile(LeadFileField)
	if err != nil {
		if isBodyTooLarge(err) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Uploaded file is too large")
			return
		}
		h.BadRequest(c, "Missing file field")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		if isBodyTooLarge(err) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Uploaded file is too large")
			return
		}
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}

	result, err := h.uploader.Upload(c.Request.Context(), userID, fh.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"critvue-backend/internal/models"
	"critvue-backend/internal/services"
)

type AttachmentsHandler struct {
	service *services.WizardService
}

func NewAttachmentsHandler(service *services.WizardService) *AttachmentsHandler {
	return &AttachmentsHandler{service: service}
}

// Upload godoc
// @Summary     Attach files to the draft
// @Description Uploads one or more files to storage keyed by the review id and appends their references to the draft. The details step must already have been left so the review id exists.
// @Tags        wizard
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Param       files formData file true "Attachment files (multiple allowed)"
// @Success     200 {object} models.AttachmentResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/attachments [post]
func (h *AttachmentsHandler) Upload(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	// Max memory for multipart parsing (32MB)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}

	form := c.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no files provided"})
		return
	}

	var files []services.UploadedFile
	for _, fileHeader := range form.File["files"] {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to open uploaded file",
				Message: err.Error(),
			})
			return
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to read uploaded file",
				Message: err.Error(),
			})
			return
		}

		files = append(files, services.UploadedFile{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	session, uploadErrors, err := h.service.AttachFiles(c.Request.Context(), sessionID, userID, files)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AttachmentResponse{
		Files:  session.Draft.UploadedFiles,
		Errors: uploadErrors,
	})
}

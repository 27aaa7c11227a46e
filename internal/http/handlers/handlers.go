package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/db"
	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/service"
)

// Store is the persistence side used by the API.
type Store interface {
	Ping(ctx context.Context) error
	ListTickets(ctx context.Context, f db.TicketFilter) ([]models.Ticket, error)
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	GetTicketDetails(ctx context.Context, id string) (db.TicketDetails, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	UpdateTicketStatus(ctx context.Context, id string, to models.TicketStatus, actorID string) (models.Ticket, error)
}

// Intake runs submissions through the claim pipeline.
type Intake interface {
	Submit(ctx context.Context, sub service.Submission) (service.Result, error)
	Reindex(ticketID string)
}

type Handler struct {
	Store          Store
	Intake         Intake
	Validator      *validator.Validate
	Logger         zerolog.Logger
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ClaimRequest struct {
	Description string `form:"description" validate:"max=20000"`
	SubmitterID string `form:"submitter_id" validate:"required,max=128"`
}

// @Summary Submit a claim
// @Description Multimodal intake: description plus optional documents, images and a voice clip
// @Tags claims
// @Accept multipart/form-data
// @Produce json
// @Param description formData string false "Free-text description"
// @Param submitter_id formData string true "Submitting user id"
// @Param files formData file false "Attachments (repeatable)"
// @Param voice formData file false "Voice recording"
// @Success 201 {object} service.Result
// @Failure 400 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/claims [post]
func (h *Handler) ClaimsCreate(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid form", err.Error())
		return
	}
	req.SubmitterID = strings.TrimSpace(req.SubmitterID)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	sub := service.Submission{Description: req.Description, SubmitterID: req.SubmitterID}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			up, err := h.readUpload(fh)
			if err != nil {
				writeError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read attachment", err.Error())
				return
			}
			sub.Files = append(sub.Files, up)
		}
		if voices := form.File["voice"]; len(voices) > 0 {
			if len(voices) > 1 {
				writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "At most one voice recording", nil)
				return
			}
			up, err := h.readUpload(voices[0])
			if err != nil {
				writeError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read voice recording", err.Error())
				return
			}
			sub.Voice = &up
		}
	}

	ctx := c.Request.Context()
	if h.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RequestTimeout)
		defer cancel()
	}

	res, err := h.Intake.Submit(ctx, sub)
	switch {
	case errors.Is(err, service.ErrEmptySubmission):
		writeError(c, http.StatusBadRequest, "EMPTY_SUBMISSION", "Provide a description, a file or a voice recording", nil)
		return
	case errors.Is(err, service.ErrPersist):
		writeError(c, http.StatusInternalServerError, "PERSIST_ERROR", "Failed to save ticket, please resubmit", err.Error())
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Claim intake failed", err.Error())
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return service.Upload{}, fmt.Errorf("%s exceeds %d bytes", fh.Filename, h.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, err
	}
	return service.Upload{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// @Summary List tickets
// @Tags tickets
// @Produce json
// @Param status query string false "Status"
// @Param category query string false "Category"
// @Param department query string false "Department id"
// @Param q query string false "Search in number, title and description"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := db.TicketFilter{
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Category:   strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Department: strings.TrimSpace(c.Query("department")),
		Query:      strings.TrimSpace(c.Query("q")),
		Limit:      limit,
		Offset:     offset,
	}

	items, err := h.Store.ListTickets(c.Request.Context(), filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tickets", err.Error())
		return
	}
	if items == nil {
		items = []models.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// @Summary Ticket details
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket id"
// @Success 200 {object} db.TicketDetails
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id} [get]
func (h *Handler) TicketDetails(c *gin.Context) {
	result, err := h.Store.GetTicketDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) DepartmentsList(c *gin.Context) {
	items, err := h.Store.ListDepartments(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list departments", err.Error())
		return
	}
	if items == nil {
		items = []models.Department{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Re-run index sync for a ticket
// @Tags admin
// @Produce json
// @Param id path string true "Ticket id"
// @Success 202 {object} map[string]any
// @Router /api/tickets/{id}/reindex [post]
func (h *Handler) Reindex(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Store.GetTicket(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	h.Intake.Reindex(id)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "ticket_id": id})
}

type StatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=in_progress pending_review resolved closed rejected"`
	ActorID string `json:"actor_id" validate:"required,max=128"`
}

// @Summary Move a ticket to a new status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Ticket id"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/tickets/{id}/status [post]
func (h *Handler) StatusUpdate(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body", err.Error())
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	t, err := h.Store.UpdateTicketStatus(c.Request.Context(), c.Param("id"), models.TicketStatus(req.Status), req.ActorID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
		return
	case errors.Is(err, db.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_TRANSITION", "Status cannot move backwards or leave a terminal state", err.Error())
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, t)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

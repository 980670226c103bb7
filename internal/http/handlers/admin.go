package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/http/response"
	"github.com/yungbote/studyflow-backend/internal/modules/admin"
	"github.com/yungbote/studyflow-backend/internal/services"
)

type AdminHandler struct {
	admin   admin.Usecases
	stimuli services.StimulusService
}

func NewAdminHandler(admin admin.Usecases, stimuli services.StimulusService) *AdminHandler {
	return &AdminHandler{admin: admin, stimuli: stimuli}
}

func (h *AdminHandler) stimuliAvailable(c *gin.Context) bool {
	if h.stimuli == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "stimuli_unavailable", errors.New("no stimulus bucket configured"))
		return false
	}
	return true
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/admin/users?role=&q=&limit=&offset=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	page, err := h.admin.ListUsers(c.Request.Context(), admin.ListUsersInput{
		Role:   c.Query("role"),
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	detail, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": detail})
}

// PATCH /api/admin/users/:id/active
// body: { "active": false }
func (h *AdminHandler) SetActive(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	summary, err := h.admin.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": summary})
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/admin/export?format=csv|xlsx
func (h *AdminHandler) Export(c *gin.Context) {
	format, err := admin.ParseExportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		respondErr(c, err)
		return
	}
	var buf bytes.Buffer
	file, err := h.admin.Export(c.Request.Context(), format, &buf)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, buf.Bytes())
}

// POST /api/admin/reminders/run
func (h *AdminHandler) RunReminders(c *gin.Context) {
	report, err := h.admin.TriggerSweep(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	errs := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		errs = append(errs, e.Error())
	}
	response.RespondOK(c, gin.H{"report": report, "errors": errs})
}

// PUT /api/admin/stimuli/:testType/:version/:sentence (raw audio body)
func (h *AdminHandler) UploadStimulus(c *gin.Context) {
	if !h.stimuliAvailable(c) {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	key, err := h.stimuli.Upload(c.Request.Context(), c.Param("testType"), version, c.Param("sentence"), c.Request.Body)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"key": key})
}

// GET /api/admin/stimuli/:testType/:version
func (h *AdminHandler) ListStimuli(c *gin.Context) {
	if !h.stimuliAvailable(c) {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	keys, err := h.stimuli.List(c.Request.Context(), c.Param("testType"), version)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"keys": keys})
}

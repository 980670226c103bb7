package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyflow-backend/internal/http/response"
	studymod "github.com/yungbote/studyflow-backend/internal/modules/study"
	"github.com/yungbote/studyflow-backend/internal/platform/ctxutil"
)

type StudyHandler struct {
	study studymod.Usecases
}

func NewStudyHandler(study studymod.Usecases) *StudyHandler {
	return &StudyHandler{study: study}
}

// POST /api/activities
// body: { "phase": "training", "activity": "transcription", "training_day": 2, "payload": {...} }
func (h *StudyHandler) SubmitActivity(c *gin.Context) {
	var req struct {
		Phase       string          `json:"phase" binding:"required"`
		Activity    string          `json:"activity" binding:"required"`
		TrainingDay int             `json:"training_day"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.study.SubmitActivity(c.Request.Context(), studymod.SubmitActivityInput{
		UserID:      ctxutil.UserID(c.Request.Context()),
		Phase:       req.Phase,
		Activity:    req.Activity,
		TrainingDay: req.TrainingDay,
		Payload:     req.Payload,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": view})
}

// GET /api/progress
func (h *StudyHandler) GetProgress(c *gin.Context) {
	view, err := h.study.GetProgress(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": view})
}

// GET /api/eligibility
func (h *StudyHandler) Eligibility(c *gin.Context) {
	el, err := h.study.Eligibility(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"eligibility": el})
}

// GET /api/protocol
func (h *StudyHandler) Protocol(c *gin.Context) {
	response.RespondOK(c, h.study.Protocol())
}

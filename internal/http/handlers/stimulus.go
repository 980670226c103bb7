package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyflow-backend/internal/services"
)

type StimulusHandler struct {
	stimuli services.StimulusService
}

func NewStimulusHandler(stimuli services.StimulusService) *StimulusHandler {
	return &StimulusHandler{stimuli: stimuli}
}

// GET /api/stimuli/:testType/:sentence
func (h *StimulusHandler) Get(c *gin.Context) {
	sentence := strings.TrimSuffix(c.Param("sentence"), ".wav")
	st, err := h.stimuli.Fetch(c.Request.Context(), ctxutil.UserID(c.Request.Context()), c.Param("testType"), sentence)
	if err != nil {
		respondErr(c, err)
		return
	}
	if st.ETag != "" {
		c.Header("ETag", st.ETag)
		if match := c.GetHeader("If-None-Match"); match != "" && match == st.ETag {
			c.Status(http.StatusNotModified)
			return
		}
	}
	// Versions differ per participant, so shared caches must not store it.
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, st.ContentType, st.Body)
}

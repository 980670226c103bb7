package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyflow-backend/internal/http/response"
	studymod "github.com/yungbote/studyflow-backend/internal/modules/study"
)

func respondErr(c *gin.Context, err error) {
	response.RespondAPIError(c, studymod.MapError(err))
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyflow-backend/internal/platform/apierr"
)

func render(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAPIError(c, err)
	var env ErrorEnvelope
	if e := json.Unmarshal(rec.Body.Bytes(), &env); e != nil {
		t.Fatalf("decode envelope: %v body=%s", e, rec.Body.String())
	}
	return rec.Code, env
}

func TestRespondAPIError(t *testing.T) {
	t.Parallel()
	status, env := render(t, apierr.New(http.StatusForbidden, "out_of_window", errors.New("posttest1 opens on day 4")))
	if status != http.StatusForbidden || env.Error.Code != "out_of_window" || env.Error.Message != "posttest1 opens on day 4" {
		t.Fatalf("typed error: status=%d env=%+v", status, env)
	}

	status, env = render(t, errors.New("pq: connection refused"))
	if status != http.StatusInternalServerError || env.Error.Code != "internal_error" {
		t.Fatalf("plain error: status=%d env=%+v", status, env)
	}
	if env.Error.Message != "internal server error" {
		t.Fatalf("internal detail leaked: %q", env.Error.Message)
	}
}

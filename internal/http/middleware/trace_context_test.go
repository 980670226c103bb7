package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyflow-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("request id: got=%q want=req-123", got)
	}
	if seen == nil || seen.RequestID != "req-123" || seen.TraceID == "" {
		t.Fatalf("trace data not attached: %+v", seen)
	}
	if w.Header().Get(headerTraceID) != seen.TraceID {
		t.Fatalf("trace header does not match context")
	}
}

func TestCleanRequestID(t *testing.T) {
	cases := map[string]string{
		"  abc  ":                "abc",
		"has space":              "",
		"line\nbreak":            "",
		strings.Repeat("a", 129): "",
		strings.Repeat("b", 128): strings.Repeat("b", 128),
		"":                       "",
	}
	for in, want := range cases {
		if got := cleanRequestID(in); got != want {
			t.Fatalf("cleanRequestID(%q)=%q want=%q", in, got, want)
		}
	}
}

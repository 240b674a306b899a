package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ankurclub/clever-video-summarizer/internal/auth"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	logger, buf := bufferLogger()
	mw := NewRequestLoggingMiddleware(logger)

	req := httptest.NewRequest("GET", "/api/usage", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	mw.Handler(okHandler).ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"GET", "/api/usage", "status=200", "duration_ms", "192.168.1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingMiddleware_ServerErrorAtWarn(t *testing.T) {
	logger, buf := bufferLogger()
	mw := NewRequestLoggingMiddleware(logger)

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mw.Handler(failing).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/summaries", nil))

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("5xx should log at WARN, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_LogsIdentity(t *testing.T) {
	logger, buf := bufferLogger()
	mw := NewRequestLoggingMiddleware(logger)

	req := httptest.NewRequest("GET", "/api/usage", nil)
	req = req.WithContext(auth.SetIdentity(req.Context(), domain.Identity{Key: "user_9", Tier: domain.PlanPro}))
	mw.Handler(okHandler).ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "identity=user_9") {
		t.Errorf("log should contain identity, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	logger, buf := bufferLogger()
	mw := NewRequestLoggingMiddleware(logger)

	for _, path := range []string{"/health", "/metrics", "/files/exports/abc.txt"} {
		mw.Handler(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	if buf.Len() != 0 {
		t.Errorf("expected no logs, got: %s", buf.String())
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{"no query", "/api/artifacts", "", "/api/artifacts"},
		{"safe params", "/api/artifacts", "limit=10", "/api/artifacts?limit=10"},
		{"token", "/x", "token=abc&page=2", "/x?token=[REDACTED]&page=2"},
		{"presigned", "/file", "X-Amz-Signature=dead&X-Amz-Credential=beef", "/file?X-Amz-Signature=[REDACTED]&X-Amz-Credential=[REDACTED]"},
		{"malformed only", "/x", "flag", "/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizePath(tt.path, tt.rawQuery); got != tt.want {
				t.Errorf("sanitizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

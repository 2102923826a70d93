package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestInfrastructurePathsAreSkipped(t *testing.T) {
	tests := []struct {
		path    string
		metrics bool
		traced  bool
	}{
		{"/api/v1/users/5/profile", true, true},
		{"/health", false, false},
		{"/ready", false, false},
		{"/metrics", false, false},
		{"/livez", true, false},
	}
	for _, tt := range tests {
		if got := shouldCollectMetrics(tt.path); got != tt.metrics {
			t.Errorf("shouldCollectMetrics(%q) = %v, want %v", tt.path, got, tt.metrics)
		}
		if got := shouldTrace(tt.path); got != tt.traced {
			t.Errorf("shouldTrace(%q) = %v, want %v", tt.path, got, tt.traced)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var labels []string
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		labels = append(labels, routeLabel(c))
	})
	r.POST("/api/v1/users/:user_id/profile", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, path := range []string{"/api/v1/users/5/profile", "/wp-admin/setup.php", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	want := []string{"/api/v1/users/:user_id/profile", unmatchedRoute, unmatchedRoute}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels, got %v", len(want), labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
		}
	}
}

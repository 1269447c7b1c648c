package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitProvider(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, "test")
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	defer shutdown(ctx)

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordTransition(ctx, "Halo")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), "mudra_gesture_transitions") {
		t.Errorf("scrape does not include the transition counter:\n%s", body)
	}
	if !strings.Contains(string(body), `service_name="mudra"`) {
		t.Errorf("scrape does not carry the service name:\n%s", body)
	}
}

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	m := New()
	m.RecordPlayed()
	m.RecordPlayed()
	m.SeekPerformed()
	m.SetElapsed(12.5)
	m.SetSpeed(2.0)
	m.SetDrift(150)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"ttyplay_records_played_total 2",
		"ttyplay_seeks_total 1",
		"ttyplay_elapsed_seconds 12.5",
		"ttyplay_speed_multiplier 2",
		"ttyplay_drift_microseconds 150",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordPlayed()
	m.SeekPerformed()
	m.SetElapsed(1)
	m.SetSpeed(1)
	m.SetDrift(1)
	if m.Handler() != nil {
		t.Error("expected nil Handler for nil Metrics")
	}
}

package metrics

import "testing"

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.IncrementSearches()
	m.AddCandidates(5, 2)
	m.AddNewsDelivered(3)
	m.IncrementReportsPushed()
	m.IncrementPushFailures()

	stats := m.GetStats()
	if stats["searches"] != int64(1) || stats["candidates_seen"] != int64(5) || stats["duplicates_filtered"] != int64(2) {
		t.Errorf("unexpected counters: %v", stats)
	}
	if stats["news_delivered"] != int64(3) || stats["reports_pushed"] != int64(1) || stats["push_failures"] != int64(1) {
		t.Errorf("unexpected delivery counters: %v", stats)
	}
}

func TestMetricsHealth(t *testing.T) {
	m := New()
	if !m.Healthy() {
		t.Fatal("new metrics should be healthy")
	}
	m.SetError("push failed")
	if m.Healthy() || m.GetStats()["last_error"] != "push failed" {
		t.Error("SetError should mark unhealthy and record the message")
	}
	m.SetLastRun()
	if !m.Healthy() {
		t.Error("a successful run should restore health")
	}
}

func TestMetricsSources(t *testing.T) {
	m := New()
	m.AddSource("gemini_quota", func() map[string]interface{} {
		return map[string]interface{}{"used": 3, "limit": 20}
	})

	quota, ok := m.GetStats()["gemini_quota"].(map[string]interface{})
	if !ok || quota["used"] != 3 || quota["limit"] != 20 {
		t.Errorf("source stats missing: %v", m.GetStats())
	}
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSyncSuccess_IncrementsCounter は同期成功カウンタが増加することを検証する。
func TestRecordSyncSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSyncSuccess()
	c.RecordSyncSuccess()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "lorebook_sync_success_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric, got %d", len(mf.GetMetric()))
			}
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 2 {
				t.Errorf("sync_success_total = %v, want 2", val)
			}
		}
	}
	if !found {
		t.Error("lorebook_sync_success_total metric not found")
	}
}

// TestRecordSyncFailure_IncrementsCounterWithReason は同期失敗カウンタが原因別に増加することを検証する。
func TestRecordSyncFailure_IncrementsCounterWithReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSyncFailure("fetch")
	c.RecordSyncFailure("fetch")
	c.RecordSyncFailure("upsert")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "lorebook_sync_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "fetch":
					if val != 2 {
						t.Errorf("sync_fail_total{reason=fetch} = %v, want 2", val)
					}
				case "upsert":
					if val != 1 {
						t.Errorf("sync_fail_total{reason=upsert} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("lorebook_sync_fail_total metric not found")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "lorebook_http_status_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "200":
					if val != 2 {
						t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
					}
				case "404":
					if val != 1 {
						t.Errorf("http_status_total{status_code=404} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("lorebook_http_status_total metric not found")
	}
}

// TestRecordSyncLatency_ObservesHistogram は同期レイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordSyncLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSyncLatency(100 * time.Millisecond)
	c.RecordSyncLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "lorebook_sync_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("lorebook_sync_latency_seconds metric not found")
	}
}

// TestRecordCharactersUpserted_IncrementsCounter はアップサートカウンタが増加することを検証する。
func TestRecordCharactersUpserted_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCharactersUpserted(900)
	c.RecordCharactersUpserted(33)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "lorebook_characters_upserted_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 933 {
				t.Errorf("characters_upserted_total = %v, want 933", val)
			}
		}
	}
	if !found {
		t.Error("lorebook_characters_upserted_total metric not found")
	}
}

// TestRecordCacheHitMiss_IncrementsPerCache はキャッシュ別のヒット/ミスカウンタを検証する。
func TestRecordCacheHitMiss_IncrementsPerCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("favorites")
	c.RecordCacheHit("favorites")
	c.RecordCacheMiss("characters")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	var hits, misses float64
	for _, mf := range metrics {
		switch mf.GetName() {
		case "lorebook_cache_hit_total":
			hits = mf.GetMetric()[0].GetCounter().GetValue()
		case "lorebook_cache_miss_total":
			misses = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if hits != 2 {
		t.Errorf("cache_hit_total = %v, want 2", hits)
	}
	if misses != 1 {
		t.Errorf("cache_miss_total = %v, want 1", misses)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordSyncSuccess()
	c.RecordSyncFailure("fetch")
	c.RecordHTTPStatus(200)
	c.RecordSyncLatency(500 * time.Millisecond)
	c.RecordCharactersUpserted(3)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"lorebook_sync_success_total",
		"lorebook_sync_fail_total",
		"lorebook_http_status_total",
		"lorebook_sync_latency_seconds",
		"lorebook_characters_upserted_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordSyncSuccess()
	c2.RecordSyncSuccess()
	c2.RecordSyncSuccess()

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "lorebook_sync_success_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "lorebook_sync_success_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 sync_success = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 sync_success = %v, want 2", val2)
	}
}

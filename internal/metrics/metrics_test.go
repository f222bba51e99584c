package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestRecordLogin_CountsByStatus はログイン結果がステータス別に集計されることを検証する。
func TestRecordLogin_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("verification_required")
	c.RecordLogin("verification_required")
	c.RecordLogin("success")

	mf := findMetric(t, reg, "oauthrelay_login_outcomes_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "status")] = m.GetCounter().GetValue()
	}
	if got["verification_required"] != 2 || got["success"] != 1 {
		t.Errorf("login outcomes = %v", got)
	}
}

// TestRecordAuthorize_Labels は成功・失敗と抽出戦略がラベルに反映されることを検証する。
func TestRecordAuthorize_Labels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthorize(true, "url_query")
	c.RecordAuthorize(false, "")

	mf := findMetric(t, reg, "oauthrelay_authorize_outcomes_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "outcome")+"/"+labelValue(m, "strategy")] = m.GetCounter().GetValue()
	}
	if got["success/url_query"] != 1 {
		t.Errorf("success/url_query = %v, want 1", got["success/url_query"])
	}
	if got["failed/none"] != 1 {
		t.Errorf("failed/none = %v, want 1", got["failed/none"])
	}
}

// TestObserveFlow_RecordsHistogram はフロー所要時間がヒストグラムに記録されることを検証する。
func TestObserveFlow_RecordsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveFlow("login", 1500*time.Millisecond)
	c.ObserveLockWait(10 * time.Millisecond)

	mf := findMetric(t, reg, "oauthrelay_flow_duration_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() != 1.5 {
		t.Errorf("sample sum = %v, want 1.5", h.GetSampleSum())
	}

	lw := findMetric(t, reg, "oauthrelay_browser_lock_wait_seconds")
	if lw.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Error("lock wait should have one sample")
	}
}

// TestRecordHTTPStatus_ByCode はステータスコード別に集計されることを検証する。
func TestRecordHTTPStatus_ByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordHTTPStatus(401)

	mf := findMetric(t, reg, "oauthrelay_http_status_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "status_code")] = m.GetCounter().GetValue()
	}
	if got["200"] != 1 || got["401"] != 2 {
		t.Errorf("http status = %v", got)
	}
}

// TestRecordAttemptsPruned_Adds は削除件数が加算されることを検証する。
func TestRecordAttemptsPruned_Adds(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAttemptsPruned(3)
	c.RecordAttemptsPruned(4)

	mf := findMetric(t, reg, "oauthrelay_attempts_pruned_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 7 {
		t.Errorf("attempts pruned = %v, want 7", v)
	}
}

// TestHandler_ServesMetrics はスクレイプ用ハンドラーがメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), "oauthrelay_login_outcomes_total") {
		t.Error("response should contain oauthrelay_login_outcomes_total")
	}
}

// TestNop_SatisfiesRecorder はNopがRecorderとして使えることを検証する。
func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordLogin("success")
	r.RecordAuthorize(true, "url_query")
	r.ObserveFlow("authorize", time.Second)
	r.ObserveLockWait(time.Millisecond)
	r.RecordHTTPStatus(200)
	r.RecordAttemptsPruned(1)
}

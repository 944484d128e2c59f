package jobmetrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerExposesStockAlerts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddStockIssues("stock_mismatch", 2)
	require.NoError(t, m.Track("inventory:expiry_scan").End(nil))

	status, body := scrape(t, NewServer(":0", reg).Handler, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `gestao_stock_issues_total{kind="stock_mismatch"} 2`)
	require.Contains(t, body, `gestao_job_last_success_timestamp_seconds{job="inventory:expiry_scan"}`)
	require.Contains(t, body, `gestao_jobs_total{job="inventory:expiry_scan",status="success"} 1`)
}

func TestDefaultHandlerServesDefaultRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.AddStockIssues("expired_lot", 1)

	status, body := scrape(t, Handler(nil), "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "gestao_stock_issues_total")

	status, _ = scrape(t, Handler(nil), "/jobs")
	require.Equal(t, http.StatusNotFound, status)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveAndScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.ObserveRestore("func-a", 0.012)
	m.ObserveColdStart("func-b")
	m.SetWarmPoolSize("func-a", 3)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	buf := new(strings.Builder)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	body := buf.String()

	if !strings.Contains(body, "function_restores_total") {
		t.Errorf("scrape output missing function_restores_total:\n%s", body)
	}
	if !strings.Contains(body, "function_cold_starts_total") {
		t.Errorf("scrape output missing function_cold_starts_total:\n%s", body)
	}
	if !strings.Contains(body, "warm_pool_size") {
		t.Errorf("scrape output missing warm_pool_size:\n%s", body)
	}
}

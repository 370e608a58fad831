package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/infra/store"
)

type memStore struct {
	recs []store.RunRecord
	last store.RunQuery
}

func (m *memStore) Append(_ context.Context, rec store.RunRecord) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) Query(_ context.Context, q store.RunQuery) ([]store.RunRecord, error) {
	m.last = q
	var out []store.RunRecord
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func TestHandler_Filters(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC)
	st := &memStore{recs: []store.RunRecord{
		{RunID: "a", Timestamp: ts, Depot: "midi", Status: "optimal", Vehicles: []store.VehicleSummary{{VehicleID: "v1"}}},
		{RunID: "b", Timestamp: ts, Depot: "nord", Status: "infeasible"},
	}}
	h := NewHandler(st, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?depot=midi&vehicle_id=v1&start=2024-03-04T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []store.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].RunID)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), st.last.Start)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?status=failed", nil))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	h := NewHandler(&memStore{}, "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?end=yesterday", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMux_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "handler_test_total"})
	reg.MustRegister(c)
	c.Inc()
	srv := httptest.NewServer(NewMux(&memStore{}, "", reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

package backend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	testDate          = domain.DateKey("20231025")
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL + "/api",
		rainURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func requireFailure(t *testing.T, err error, kind domain.FailureKind) *domain.Failure {
	t.Helper()
	require.Error(t, err)
	f := domain.AsFailure(err)
	assert.Equal(t, kind, f.Kind)
	return f
}

func TestClient_ListStormMaps_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/date/{date}/maps/{id}/list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20231025", r.PathValue("date"))
		assert.Equal(t, "otis", r.PathValue("id"))
		writeJSON(w, http.StatusOK, `{"date":"20231025","storm_id":"otis","total_images":3,
			"images":[{"index":2,"filename":"c.png"},{"index":0,"filename":"a.png"},{"index":1,"filename":"b.png"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL)
	indices, err := c.ListStormMaps(context.Background(), testDate, "otis")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, indices)
	assert.InDelta(t, 1, counterValue(t, c.metrics.BackendRequests.WithLabelValues("list_storm", "success")), 0)
}

func TestClient_ListGeneralMaps_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/date/20231025/maps/general/list", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"date":"20231025","total_images":0,"images":[]}`)
	}))
	defer srv.Close()

	indices, err := testClient(srv.URL).ListGeneralMaps(context.Background(), testDate)
	require.NoError(t, err)
	assert.Empty(t, indices)
}

func TestClient_List_NotFoundCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"No hay mapas para la fecha 20231025"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ListGeneralMaps(context.Background(), testDate)
	f := requireFailure(t, err, domain.FailureNotFound)
	assert.Equal(t, http.StatusNotFound, f.Status)
	assert.Equal(t, "No hay mapas para la fecha 20231025", f.Reason)
	assert.Contains(t, err.Error(), "list general maps")
	assert.InDelta(t, 1, counterValue(t, c.metrics.BackendRequests.WithLabelValues("list_general", "not_found")), 0)
}

func TestClient_List_NonSuccessWithoutDetailUsesGenericReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListStormMaps(context.Background(), testDate, "otis")
	f := requireFailure(t, err, domain.FailureNotFound)
	assert.Equal(t, domain.GenericNetworkReason, f.Reason)
}

func TestClient_List_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "missing images", body: `{"date":"20231025","total_images":0}`},
		{name: "entry without index", body: `{"images":[{"filename":"a.png"}]}`},
		{name: "index wrong type", body: `{"images":[{"index":"zero"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).ListGeneralMaps(context.Background(), testDate)
			requireFailure(t, err, domain.FailureMalformed)
		})
	}
}

func TestClient_List_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := testClient(base).ListGeneralMaps(context.Background(), testDate)
	f := requireFailure(t, err, domain.FailureNetwork)
	assert.Equal(t, domain.GenericNetworkReason, f.Reason)
}

func TestClient_List_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ListGeneralMaps(context.Background(), testDate)
	requireFailure(t, err, domain.FailureNetwork)
}

func TestClient_Addresses(t *testing.T) {
	c := testClient("http://storms.test")
	assert.Equal(t, "http://storms.test/api/date/20231025/maps/general/4", c.GeneralMapAddress(testDate, 4))
	assert.Equal(t, "http://storms.test/api/date/20231025/maps/otis/0", c.StormMapAddress(testDate, "otis", 0))
	assert.Equal(t, "http://storms.test/api/date/20231025/maps/a%2Fb/0", c.StormMapAddress(testDate, "a/b", 0))
}

func TestClient_ProbeStormMap_Head(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "/api/maps/otis", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, err := testClient(srv.URL).ProbeStormMap(context.Background(), "otis")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/maps/otis", addr)
	assert.Equal(t, []string{http.MethodHead}, methods)
}

func TestClient_ProbeGeneralMap_FallsBackToGet(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			writeJSON(w, http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`)
			return
		}
		w.Header().Set(headerContentType, "image/png")
		_, _ = w.Write(pngBytes(t, 2, 2))
	}))
	defer srv.Close()

	addr, err := testClient(srv.URL).ProbeGeneralMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/maps", addr)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, methods)
}

func TestClient_ProbeStormMap_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ProbeStormMap(context.Background(), "ghost")
	f := requireFailure(t, err, domain.FailureNotFound)
	assert.Equal(t, http.StatusNotFound, f.Status)
}

func TestClient_FetchRainMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime", r.URL.Path)
		assert.Equal(t, "15", r.URL.Query().Get("grid_size"))
		assert.Equal(t, "50", r.URL.Query().Get("density"))
		writeJSON(w, http.StatusOK, `{"timestamp":"2023-10-25T06:00:00","original_points":2,"interpolated_points":3,
			"data":[{"lat":16.8,"lon":-99.9,"rain":12.5},{"lat":17.0,"lon":-100.1,"rain":4.5},{"lat":17.2,"lon":-100.3,"rain":0}]}`)
	}))
	defer srv.Close()

	m, err := testClient(srv.URL).FetchRainMap(context.Background(), 15, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, m.OriginalPoints)
	require.Len(t, m.Data, 3)

	s := m.Summarize()
	assert.InDelta(t, 12.5, s.MaxRain, 1e-9)
	assert.InDelta(t, 17.0/3, s.MeanRain, 1e-9)
}

func TestServerReason(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail":" Tormenta no encontrada "}`, want: "Tormenta no encontrada"},
		{name: "validation list", body: `{"detail":[{"msg":"bad date"},{"msg":"bad id"}]}`, want: "bad date; bad id"},
		{name: "no detail", body: `{"message":"nope"}`},
		{name: "not json", body: `nope`},
		{name: "empty", body: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serverReason([]byte(tt.body)))
		})
	}
}

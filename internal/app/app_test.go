package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/catalog-editor/internal/domain/product"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

// productAPI is a minimal in-memory product API that records the headers of
// the last call.
type productAPI struct {
	mu       sync.Mutex
	products []product.Product
	header   http.Header
}

func (a *productAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.header = r.Header.Clone()

	var e jx.Encoder
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/products":
		product.EncodeProducts(&e, a.products)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && r.URL.Path == "/products":
		body, _ := io.ReadAll(r.Body)
		p, err := product.DecodeProduct(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.ID = "p1"
		a.products = append(a.products, p)
		p.Encode(&e)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPut:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write(e.Bytes())
}

func (a *productAPI) lastHeader() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.header
}

func newTestServer(t *testing.T) (*httptest.Server, *productAPI) {
	t.Helper()
	clearEnv(t)

	api := &productAPI{}
	backendSrv := httptest.NewServer(api)
	t.Cleanup(backendSrv.Close)

	t.Setenv("CATALOG_BACKEND_BASE_URL", backendSrv.URL)
	t.Setenv("CATALOG_BACKEND_SECRET_KEY", "s3cret")
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, healthSvc, err := newServer(ctx, zap.NewNop(), noopTelemetry{}, cfg)
	require.NoError(t, err)
	healthSvc.SetReady(true)

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)
	return srv, api
}

func request(t *testing.T, method, url, body string, header map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestServer_CreateThenList(t *testing.T) {
	srv, api := newTestServer(t)

	resp := request(t, http.MethodPost, srv.URL+"/api/products", `{"name":"Widget","price":100}`, map[string]string{
		"Content-Type": "application/json",
		"X-Request-ID": "req-e2e",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"data":{"id":"p1","name":"Widget","price":100}}`, readBody(t, resp))
	assert.Equal(t, "req-e2e", resp.Header.Get("X-Request-ID"))

	sent := api.lastHeader()
	assert.Equal(t, "Bearer s3cret", sent.Get("Authorization"))
	assert.Equal(t, "req-e2e", sent.Get("X-Request-ID"))

	resp = request(t, http.MethodGet, srv.URL+"/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Catalog-Generation"))
	assert.JSONEq(t, `{"success":true,"data":[{"id":"p1","name":"Widget","price":100}]}`, readBody(t, resp))
}

func TestServer_Failures(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{
			name:   "validation",
			method: http.MethodPost,
			path:   "/api/products",
			body:   `{"name":"","price":100}`,
			status: http.StatusBadRequest,
			want:   `{"success":false,"error":"name and a positive price are required"}`,
		},
		{
			name:   "invalid id",
			method: http.MethodDelete,
			path:   "/api/products/p1%3B%20drop",
			status: http.StatusBadRequest,
			want:   `{"success":false,"error":"invalid product id"}`,
		},
		{
			name:   "unsupported update",
			method: http.MethodPut,
			path:   "/api/products/p1",
			body:   `{"name":"Widget","price":150}`,
			status: http.StatusMethodNotAllowed,
			want:   `{"success":false,"error":"update is not supported by the product API"}`,
		},
		{
			name:   "not found",
			method: http.MethodDelete,
			path:   "/api/products/ghost",
			status: http.StatusNotFound,
			want:   `{"success":false,"error":"product not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := request(t, tt.method, srv.URL+tt.path, tt.body, map[string]string{"Content-Type": "application/json"})
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.JSONEq(t, tt.want, readBody(t, resp))
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		resp := request(t, http.MethodGet, srv.URL+path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp), path)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := request(t, http.MethodOptions, srv.URL+"/api/products/p1", "", map[string]string{
		"Origin":                        "http://editor.local",
		"Access-Control-Request-Method": http.MethodDelete,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodDelete)
}

func TestServer_ChangeStream(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/products/changes", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = stream.Body.Close() }()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	var got strings.Builder
	readUntil := func(marker string) {
		buf := make([]byte, 4096)
		for !strings.Contains(got.String(), marker) {
			n, err := stream.Body.Read(buf)
			got.Write(buf[:n])
			require.NoError(t, err)
		}
	}

	readUntil("event: ready")
	assert.Contains(t, got.String(), `"generation":0`)

	resp := request(t, http.MethodPost, srv.URL+"/api/products", `{"name":"Widget","price":100}`, map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	readUntil("event: invalidate")
	assert.Contains(t, got.String(), `"generation":1`)
}

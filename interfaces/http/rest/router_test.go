package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"projectgraph/application/services"
	"projectgraph/domain/core/entities"
	"projectgraph/infrastructure/persistence/kvstore"
	"projectgraph/pkg/observability"
)

type fixture struct {
	engine  *services.GraphEngine
	handler http.Handler
	metrics *observability.Collector
	cart    *entities.Node
	pay     *entities.Node
}

func newFixture(t *testing.T, withGraph bool) *fixture {
	t.Helper()
	metrics := observability.NewCollector("resttest")
	engine := services.NewGraphEngine(kvstore.New(nil),
		services.WithLogger(zap.NewNop()),
		services.WithMetrics(metrics),
	)
	t.Cleanup(func() { engine.Close() })
	f := &fixture{
		engine:  engine,
		metrics: metrics,
		handler: NewRouter(engine, metrics, zap.NewNop(), true).Setup(),
	}
	if !withGraph {
		return f
	}

	engine.NewGraph("Shop", "")
	var err error
	f.cart, err = engine.AddNode(entities.Record{"kind": "feature", "name": "Cart", "status": "planned", "priority": "high"})
	require.NoError(t, err)
	f.pay, err = engine.AddNode(entities.Record{"kind": "feature", "name": "Payments", "status": "in_progress", "priority": "critical"})
	require.NoError(t, err)
	_, err = engine.AddRelationship(entities.Record{"sourceId": f.cart.ID, "targetId": f.pay.ID, "type": "depends_on"})
	require.NoError(t, err)
	require.True(t, engine.SaveGraph(context.Background()))
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t, false)
	rec := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "uninitialized", body["state"])
	assert.Equal(t, "kvstore", body["backend"])
}

func TestRouter_NoActiveGraph(t *testing.T) {
	f := newFixture(t, false)
	for _, path := range []string{"/api/v1/graph", "/api/v1/graph/stats", "/api/v1/graph/export", "/api/v1/nodes"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, f.get(t, path).Code)
		})
	}
}

func TestRouter_GraphEndpoints(t *testing.T) {
	f := newFixture(t, true)

	rec := f.get(t, "/api/v1/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	graph := decode[map[string]any](t, rec)
	assert.Equal(t, "Shop", graph["name"])

	rec = f.get(t, "/api/v1/graph/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, stats["nodeCount"])
	assert.EqualValues(t, 1, stats["edgeCount"])
	assert.EqualValues(t, 10, stats["complexity"])
	assert.Len(t, stats["clusters"], 1)
	assert.Equal(t, []any{}, stats["orphans"])

	rec = f.get(t, "/api/v1/graphs")
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode[map[string]any](t, rec)
	assert.Equal(t, "kvstore", listing["backend"])
	assert.Len(t, listing["graphs"], 1)

	rec = f.get(t, "/api/v1/graphs/"+f.engine.Snapshot().ID+"/backups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backups":[]`)

	rec = f.get(t, "/api/v1/graphs/unknown/backups")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "GRAPH_NOT_FOUND", decode[map[string]string](t, rec)["code"])
}

func TestRouter_StatsReportsOrphans(t *testing.T) {
	f := newFixture(t, true)
	lonely, err := f.engine.AddNode(entities.Record{"kind": "screen", "name": "Settings"})
	require.NoError(t, err)

	rec := f.get(t, "/api/v1/graph/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, []any{lonely.ID}, stats["orphans"])
}

func TestRouter_NodeDegree(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name   string
		nodeID string
		in     int
		out    int
	}{
		{"source", f.cart.ID, 0, 1},
		{"target", f.pay.ID, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, "/api/v1/nodes/"+tt.nodeID+"/degree")
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.nodeID, body["nodeId"])
			assert.EqualValues(t, tt.in, body["inDegree"])
			assert.EqualValues(t, tt.out, body["outDegree"])
		})
	}

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/nodes/missing/degree").Code)
}

func TestRouter_Export(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name        string
		query       string
		status      int
		contentType string
	}{
		{"default json", "", http.StatusOK, "application/json"},
		{"json", "?format=json", http.StatusOK, "application/json"},
		{"yaml", "?format=yaml", http.StatusOK, "application/yaml"},
		{"unsupported", "?format=pdf", http.StatusBadRequest, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, "/api/v1/graph/export"+tt.query)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}

	rec := f.get(t, "/api/v1/graph/export?format=yaml")
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Shop", doc["name"])
}

func TestRouter_NodeEndpoints(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"all nodes", "/api/v1/nodes", http.StatusOK, 2},
		{"by kind", "/api/v1/nodes?kind=feature", http.StatusOK, 2},
		{"empty kind", "/api/v1/nodes?kind=screen", http.StatusOK, 0},
		{"bad kind", "/api/v1/nodes?kind=widget", http.StatusBadRequest, -1},
		{"connected", "/api/v1/nodes/" + f.cart.ID + "/connected", http.StatusOK, 1},
		{"relationships", "/api/v1/nodes/" + f.pay.ID + "/relationships", http.StatusOK, 1},
		{"search", "/api/v1/search?q=pay", http.StatusOK, 1},
		{"search without query", "/api/v1/search", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.count >= 0 {
				assert.Len(t, decode[[]map[string]any](t, rec), tt.count)
			}
		})
	}

	rec := f.get(t, "/api/v1/nodes/"+f.cart.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	node := decode[map[string]any](t, rec)
	assert.Equal(t, "Cart", node["name"])
	assert.Equal(t, "planned", node["status"], "kind fields are flattened")

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/nodes/missing").Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)
	f.get(t, "/api/v1/nodes/"+f.cart.ID)

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `resttest_http_requests_total{method="GET",route="/api/v1/nodes/{nodeID}",status="200"} 1`)
	assert.Contains(t, body, "resttest_graph_nodes 2")
}

func TestRouter_CORS(t *testing.T) {
	f := newFixture(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/graph", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

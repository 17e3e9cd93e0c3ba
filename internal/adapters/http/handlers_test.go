package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/infrastructure/storage"
	"svw.info/playfair/internal/ports"
	"svw.info/playfair/internal/runner"
	"svw.info/playfair/internal/usecase"
)

func newServer(t *testing.T, src ports.StreamSource) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	r := runner.New(1, domain.DefaultRewards(), zap.NewNop(), runner.NewMetrics(reg))
	uc := usecase.NewService(src, r, storage.NewFS(t.TempDir()), zap.NewNop())
	h := New(uc, zap.NewNop(), domain.DefaultRewards(), 20, reg)
	mux := http.NewServeMux()
	h.Register(mux)
	return RequestLogger(zap.NewNop(), mux), reg
}

func do(t *testing.T, srv http.Handler, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestEpisodeSession(t *testing.T) {
	srv, _ := newServer(t, nil)

	var reset resetResp
	code := do(t, srv, http.MethodPost, "/api/reset", `{"plain":"abxy","cipher":"cdzw","seed":3}`, &reset)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, reset.ID)
	assert.Equal(t, 4, reset.Length)
	assert.Equal(t, domain.EmptySnapshot(), reset.Snapshot)
	assert.Equal(t, int('a'), reset.State[0])
	assert.Equal(t, int('c'), reset.State[2])

	var step stepResp
	code = do(t, srv, http.MethodPost, "/api/step", `{"id":"`+reset.ID+`","relation":"row"}`, &step)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 10, step.Reward)
	assert.False(t, step.Terminal)
	assert.Equal(t, domain.Running, step.Status)
	assert.Equal(t, int('x'), step.State[0])

	code = do(t, srv, http.MethodPost, "/api/step", `{"id":"`+reset.ID+`","relation":"row"}`, &step)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1000, step.Reward)
	assert.True(t, step.Terminal)
	assert.Equal(t, domain.TerminalSuccess, step.Status)
	assert.Equal(t, int(domain.Unused), step.State[0])

	var e errorResp
	code = do(t, srv, http.MethodPost, "/api/step", `{"id":"`+reset.ID+`","relation":"row"}`, &e)
	assert.Equal(t, http.StatusConflict, code)

	var snap snapshotResp
	code = do(t, srv, http.MethodGet, "/api/snapshot?id="+reset.ID, "", &snap)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, snap.Pos)
	assert.Equal(t, 1010, snap.Reward)
	placed := 0
	for _, r := range snap.Snapshot {
		if r != domain.Unused {
			placed++
		}
	}
	assert.Equal(t, 8, placed)

	var list recordsResp
	code = do(t, srv, http.MethodGet, "/api/records", "", &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list.Records, 1)
	assert.Equal(t, reset.ID, list.Records[0].ID)

	var stored domain.Record
	code = do(t, srv, http.MethodGet, "/api/record?id="+reset.ID, "", &stored)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(3), stored.Seed)
	assert.Equal(t, snap.Snapshot, stored.Snapshot)
	assert.Len(t, stored.Steps, 2)

	code = do(t, srv, http.MethodPost, "/api/close", `{"id":"`+reset.ID+`"}`, nil)
	assert.Equal(t, http.StatusOK, code)
	code = do(t, srv, http.MethodGet, "/api/snapshot?id="+reset.ID, "", &e)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSeededReset(t *testing.T) {
	srv, _ := newServer(t, nil)
	var a, b resetResp
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", `{"seed":7}`, &a))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", `{"seed":7}`, &b))
	assert.Equal(t, 20, a.Length)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.State, b.State)
}

func TestRequestErrors(t *testing.T) {
	srv, _ := newServer(t, nil)
	var reset resetResp
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", "", &reset))

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"reset wrong method", http.MethodGet, "/api/reset", "", http.StatusMethodNotAllowed},
		{"reset bad json", http.MethodPost, "/api/reset", "{", http.StatusBadRequest},
		{"reset odd stream", http.MethodPost, "/api/reset", `{"plain":"abc","cipher":"def"}`, http.StatusBadRequest},
		{"reset nul byte", http.MethodPost, "/api/reset", `{"plain":"\u0000bab","cipher":"cdcd"}`, http.StatusBadRequest},
		{"step bad relation", http.MethodPost, "/api/step", `{"id":"` + reset.ID + `","relation":"diagonal"}`, http.StatusBadRequest},
		{"step unknown id", http.MethodPost, "/api/step", `{"id":"nope","relation":"row"}`, http.StatusNotFound},
		{"close unknown id", http.MethodPost, "/api/close", `{"id":"nope"}`, http.StatusNotFound},
		{"record missing id", http.MethodGet, "/api/record", "", http.StatusBadRequest},
		{"record not found", http.MethodGet, "/api/record?id=nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e errorResp
			assert.Equal(t, tc.want, do(t, srv, tc.method, tc.path, tc.body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestMetricsCountHTTPEpisodes(t *testing.T) {
	srv, reg := newServer(t, nil)
	var reset resetResp
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", `{"plain":"ab","cipher":"cb"}`, &reset))

	// e2 == d2 can never be a row
	var step stepResp
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/step", `{"id":"`+reset.ID+`","relation":"row"}`, &step))
	require.True(t, step.Terminal)
	assert.Equal(t, domain.TerminalFailure, step.Status)

	n, err := testutil.GatherAndCount(reg, "keyenv_episodes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `keyenv_episodes_total{outcome="failure"} 1`)
}

type fixedSource struct {
	sample domain.Sample
	calls  int
}

func (f *fixedSource) Samples(_ context.Context, n int) ([]domain.Sample, error) {
	f.calls++
	out := make([]domain.Sample, n)
	for i := range out {
		out[i] = f.sample
	}
	return out, nil
}

func TestResetDrawsFromConfiguredSource(t *testing.T) {
	src := &fixedSource{sample: domain.Sample{
		Stream: domain.Stream{Plain: "abxy", Cipher: "cdzw"},
		Key:    "monarchybdefgiklpqstuvwxz",
	}}
	srv, _ := newServer(t, src)

	var reset resetResp
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", `{"seed":7}`, &reset))
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 4, reset.Length)
	assert.Equal(t, int('a'), reset.State[0])
	assert.Equal(t, int('c'), reset.State[2])

	// explicit streams bypass the source
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset", `{"plain":"ab","cipher":"cd"}`, &reset))
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 2, reset.Length)
}

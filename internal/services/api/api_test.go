package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"msgstats/internal/modkit"
	"msgstats/internal/modkit/module"
	"msgstats/internal/modkit/repokit"
	"msgstats/internal/platform/config"
	"msgstats/internal/platform/metrics"
	phttp "msgstats/internal/platform/net/http"
	"msgstats/internal/platform/store"
	"msgstats/internal/services/collector/domain"
	collectormod "msgstats/internal/services/collector/module"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type nopPG struct{}

func (nopPG) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (nopPG) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("no rows")
}
func (nopPG) QueryRow(context.Context, string, ...any) repokit.Row { return nil }
func (nopPG) Tx(_ context.Context, fn func(repokit.Queryer) error) error {
	return fn(nopPG{})
}

type emptyGuild struct{}

func (emptyGuild) Guild(_ context.Context, id string) (domain.GuildInfo, error) {
	return domain.GuildInfo{ID: id, Name: "g"}, nil
}

func (emptyGuild) ListChannels(context.Context, string) ([]domain.Channel, error) { return nil, nil }

func (emptyGuild) FetchHistory(context.Context, string, *time.Time) (domain.HistoryReader, error) {
	return nil, errors.New("no history")
}

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	module.Reset()
	t.Cleanup(module.Reset)

	rec := metrics.New(true)
	st := &store.Store{PG: nopPG{}}
	coll, err := collectormod.New(modkit.Deps{Cfg: config.New(), PG: st.PG, Metrics: rec}, collectormod.WithPlatform(emptyGuild{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = coll.Shutdown(context.Background()) })

	m := chi.NewRouter()
	opt := FromConfig(config.New())
	opt.Store, opt.Metrics, opt.Collector = st, rec, coll
	Mount(phttp.AdaptChi(m), opt)
	return m
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMountServesModules(t *testing.T) {
	h := newAPI(t)

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/meta/health", "").Code)
	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/collect/jobs/missing", "").Code)

	rec := serve(h, http.MethodGet, "/api/v1/meta/collector", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"enabled":true`)
}

func TestMountStartsJobs(t *testing.T) {
	h := newAPI(t)

	rec := serve(h, http.MethodPost, "/api/v1/collect/jobs", `{"guild_id":"42"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"guild_id":"42"`)

	rec = serve(h, http.MethodGet, "/api/v1/collect/jobs?guild=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"guild_id":"42"`)
}

func TestMountExposesMetrics(t *testing.T) {
	h := newAPI(t)
	serve(h, http.MethodGet, "/api/v1/meta/version", "")

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "msgstats_http_requests_total")
}

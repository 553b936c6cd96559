package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "msgstats/internal/platform/errors"
	phttp "msgstats/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type startReq struct {
	GuildID string `json:"guild_id" validate:"required"`
}

func newRouter() (*chi.Mux, Router) {
	m := chi.NewRouter()
	m.Use(CommonStack(StackOptions{})...)
	return m, phttp.AdaptChi(m)
}

func TestMountAPIV1AndHandlers(t *testing.T) {
	m, r := newRouter()
	MountAPIV1(r, nil, func(api Router) {
		api.Route("/collect", func(c Router) {
			PostJSON(c, "/jobs", func(_ *http.Request, in startReq) (any, error) {
				return Accepted(map[string]string{"guild": in.GuildID}), nil
			})
			Get(c, "/jobs/{id}", func(req *http.Request) (any, error) {
				if Param(req, "id") == "missing" {
					return nil, perr.NotFoundf("job %s not found", Param(req, "id"))
				}
				return map[string]string{"id": Param(req, "id")}, nil
			})
			Delete(c, "/jobs/{id}", func(*http.Request) (any, error) { return NoContent(), nil })
		})
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/collect/jobs", strings.NewReader(`{"guild_id":"1"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"guild":"1"`)

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/collect/jobs/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/collect/jobs/j1/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	m, _ := newRouter()
	m.Get("/x", func(http.ResponseWriter, *http.Request) {})
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

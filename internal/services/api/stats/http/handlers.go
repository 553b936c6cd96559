// Package http provides http transport for stats
package http

import (
	stdhttp "net/http"
	"strconv"

	"msgstats/internal/modkit/httpkit"
	"msgstats/internal/modkit/swaggerkit"
	"msgstats/internal/services/api/stats/domain"
	svc "msgstats/internal/services/api/stats/service"
)

// Register mounts stats endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/guilds", h.guilds)
	httpkit.PostJSON[domain.GuildQuery](r, "/guild", h.guild)
	httpkit.Get(r, "/guilds/{guild}/users/{user}", h.user)
	httpkit.Get(r, "/guilds/{guild}/jobs", h.jobs)

	swaggerkit.Register(
		swaggerkit.Op{Method: "GET", Path: "/api/v1/stats/guilds", Summary: "Guilds with statistics", Tag: "Stats"},
		swaggerkit.Op{Method: "POST", Path: "/api/v1/stats/guild", Summary: "Users and channels ranked by window", Tag: "Stats"},
		swaggerkit.Op{Method: "GET", Path: "/api/v1/stats/guilds/{guild}/users/{user}", Summary: "Per channel statistics of a user", Tag: "Stats"},
		swaggerkit.Op{Method: "GET", Path: "/api/v1/stats/guilds/{guild}/jobs", Summary: "Recent collection jobs", Tag: "Stats"},
	)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /stats/guilds Stats statsGuilds
// @Summary Guilds with statistics
// @Tags Stats
// @Produce json
// @Success 200 {array} domain.GuildSummary "ok"
// @Router /stats/guilds [get]
func (h *handlers) guilds(r *stdhttp.Request) (any, error) {
	return h.svc.Guilds(r.Context())
}

// swagger:route POST /stats/guild Stats statsGuild
// @Summary Users and channels ranked by window
// @Tags Stats
// @Accept json
// @Produce json
// @Param payload body domain.GuildQuery true "Query"
// @Success 200 {object} domain.GuildReport "ok"
// @Router /stats/guild [post]
func (h *handlers) guild(r *stdhttp.Request, in domain.GuildQuery) (any, error) {
	return h.svc.Guild(r.Context(), in)
}

// swagger:route GET /stats/guilds/{guild}/users/{user} Stats statsUser
// @Summary Per channel statistics of a user
// @Tags Stats
// @Produce json
// @Success 200 {object} domain.UserDetail "ok"
// @Router /stats/guilds/{guild}/users/{user} [get]
func (h *handlers) user(r *stdhttp.Request) (any, error) {
	return h.svc.User(r.Context(), httpkit.Param(r, "guild"), httpkit.Param(r, "user"))
}

// swagger:route GET /stats/guilds/{guild}/jobs Stats statsJobs
// @Summary Recent collection jobs
// @Tags Stats
// @Produce json
// @Param limit query int false "max rows"
// @Success 200 {array} domain.JobSummary "ok"
// @Router /stats/guilds/{guild}/jobs [get]
func (h *handlers) jobs(r *stdhttp.Request) (any, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return h.svc.Jobs(r.Context(), httpkit.Param(r, "guild"), limit)
}

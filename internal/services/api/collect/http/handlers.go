// Package http exposes the collector over http: job control and a websocket progress watch
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"msgstats/internal/modkit/httpkit"
	"msgstats/internal/modkit/swaggerkit"
	"msgstats/internal/platform/logger"
	"msgstats/internal/services/collector/domain"
	"msgstats/internal/services/collector/service"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Jobs lists registry jobs
type Jobs interface {
	List(guildID string) []domain.Job
}

// Deps are the handler dependencies
type Deps struct {
	Collector domain.CollectorPort
	Jobs      Jobs
	// Interval between watch frames
	Interval time.Duration
	Now      func() time.Time
}

// CancelResponse reports whether a cancel request was accepted
type CancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

type handlers struct{ d Deps }

// Register mounts the collect routes
func Register(r httpkit.Router, d Deps) {
	if d.Interval <= 0 {
		d.Interval = time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{d: d}

	httpkit.PostJSON[domain.StartRequest](r, "/jobs", h.start)
	httpkit.Get(r, "/jobs", h.list)
	httpkit.Get(r, "/jobs/{id}", h.status)
	httpkit.Delete(r, "/jobs/{id}", h.cancel)
	r.Get("/jobs/{id}/watch", h.watch)

	swaggerkit.Register(
		swaggerkit.Op{Method: "POST", Path: "/api/v1/collect/jobs", Summary: "Start a collection job", Tag: "Collect"},
		swaggerkit.Op{Method: "GET", Path: "/api/v1/collect/jobs", Summary: "Jobs held in memory", Tag: "Collect"},
		swaggerkit.Op{Method: "GET", Path: "/api/v1/collect/jobs/{id}", Summary: "Job status with progress", Tag: "Collect"},
		swaggerkit.Op{Method: "DELETE", Path: "/api/v1/collect/jobs/{id}", Summary: "Request cancellation", Tag: "Collect"},
		swaggerkit.Op{Method: "GET", Path: "/api/v1/collect/jobs/{id}/watch", Summary: "Websocket progress stream", Tag: "Collect"},
	)
}

// swagger:route POST /collect/jobs Collect collectStart
// @Summary Start a collection job
// @Tags Collect
// @Accept json
// @Produce json
// @Param payload body domain.StartRequest true "Job"
// @Success 202 {object} domain.JobStatus "accepted"
// @Router /collect/jobs [post]
func (h *handlers) start(r *stdhttp.Request, in domain.StartRequest) (any, error) {
	job, err := h.d.Collector.StartCollection(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(service.StatusOf(job, h.d.Now())), nil
}

// swagger:route GET /collect/jobs Collect collectList
// @Summary Jobs held in memory, newest first
// @Tags Collect
// @Produce json
// @Param guild query string false "guild id"
// @Success 200 {array} domain.JobStatus "ok"
// @Router /collect/jobs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	now := h.d.Now()
	jobs := h.d.Jobs.List(r.URL.Query().Get("guild"))
	out := make([]domain.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, service.StatusOf(j, now))
	}
	return out, nil
}

// swagger:route GET /collect/jobs/{id} Collect collectStatus
// @Summary Job status with progress
// @Tags Collect
// @Produce json
// @Success 200 {object} domain.JobStatus "ok"
// @Router /collect/jobs/{id} [get]
func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.d.Collector.GetStatus(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route DELETE /collect/jobs/{id} Collect collectCancel
// @Summary Request cancellation; false when the job already finished
// @Tags Collect
// @Produce json
// @Success 200 {object} CancelResponse "ok"
// @Router /collect/jobs/{id} [delete]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	id := httpkit.Param(r, "id")
	if h.d.Collector.CancelJob(r.Context(), id) {
		return CancelResponse{JobID: id, Cancelled: true}, nil
	}
	if _, err := h.d.Collector.GetStatus(r.Context(), id); err != nil {
		return nil, err
	}
	return CancelResponse{JobID: id}, nil
}

// swagger:route GET /collect/jobs/{id}/watch Collect collectWatch
// @Summary Websocket stream of job status frames until the job ends
// @Tags Collect
// @Success 101
// @Router /collect/jobs/{id}/watch [get]
func (h *handlers) watch(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	id := httpkit.Param(r, "id")
	st, err := h.d.Collector.GetStatus(ctx, id)
	if err != nil {
		httpkit.RespondError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("job_id", id).Msg("watch upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "watch aborted")

	// clients only listen; CloseRead handles their close frames
	ctx = conn.CloseRead(ctx)

	if err := h.stream(ctx, conn, id, st); err != nil {
		logger.C(ctx).Debug().Err(err).Str("job_id", id).Msg("watch ended")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "job finished")
}

// stream writes a frame per tick until the job is terminal
func (h *handlers) stream(ctx context.Context, conn *websocket.Conn, id string, st domain.JobStatus) error {
	t := time.NewTicker(h.d.Interval)
	defer t.Stop()
	for {
		if err := wsjson.Write(ctx, conn, st); err != nil {
			return err
		}
		if st.Status.Terminal() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		next, err := h.d.Collector.GetStatus(ctx, id)
		if err != nil {
			return err
		}
		st = next
	}
}

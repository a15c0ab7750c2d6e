package server

import (
	"encoding/json"
	"net/http"
	"strings"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/minigames/internal/handler/health"
	"github.com/playperu/minigames/internal/worldstore"
)

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               []response
}

// Parameter structures for the reflector. Every placeholder in a path must
// be declared or the operation is rejected.
type arenaParams struct {
	ArenaID string `path:"arenaID"`
}

type spawnParams struct {
	ArenaID string `path:"arenaID"`
	Index   int    `path:"index"`
}

type playerParams struct {
	ArenaID  string `path:"arenaID"`
	PlayerID string `path:"playerID"`
}

type historyParams struct {
	ArenaID string `path:"arenaID"`
	Limit   int    `query:"limit" default:"20"`
}

type endParams struct {
	ArenaID  string `path:"arenaID"`
	Rollback *bool  `query:"rollback"`
}

type response struct {
	status int
	body   any
	ctype  string
}

func ok(body any) response         { return response{status: http.StatusOK, body: body} }
func created(body any) response    { return response{status: http.StatusCreated, body: body} }
func noContent() response          { return response{status: http.StatusNoContent} }
func fail(status int) response     { return response{status: status, body: ErrorResponse{}} }
func stream(ctype string) response { return response{status: http.StatusOK, ctype: ctype} }

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the status of the database and the tick scheduler.", nil,
		[]response{ok(health.Response{}), {status: http.StatusServiceUnavailable, body: health.Response{}}}},
	{http.MethodGet, "/metrics", "Prometheus metrics", "Round, join, stage and rollback series.", nil,
		[]response{stream("text/plain")}},

	{http.MethodGet, "/api/arenas", "List arenas", "Returns every arena with its live round, if any.", nil,
		[]response{ok([]ArenaResponse{})}},
	{http.MethodGet, "/api/arenas/{arenaID}", "Get arena", "Arena ids are matched without regard to case.", nil,
		[]response{ok(ArenaResponse{}), fail(http.StatusNotFound)}},
	{http.MethodPost, "/api/arenas/{arenaID}/spawns", "Add spawn point", "The location must lie inside the arena boundary.", AddSpawnRequest{},
		[]response{created(SpawnResponse{}), fail(http.StatusBadRequest), fail(http.StatusNotFound)}},
	{http.MethodDelete, "/api/arenas/{arenaID}/spawns/{index}", "Remove spawn point", "The last spawn point cannot be removed.", nil,
		[]response{noContent(), fail(http.StatusBadRequest), fail(http.StatusNotFound)}},
	{http.MethodPost, "/api/arenas/{arenaID}/rollback", "Restore arena", "Restores marked cells, or completes a round end whose restore failed.", nil,
		[]response{noContent(), fail(http.StatusConflict), fail(http.StatusNotFound)}},
	{http.MethodGet, "/api/arenas/{arenaID}/history", "Round history", "Most recent finished rounds, newest first.", nil,
		[]response{ok([]worldstore.RoundRecord{}), fail(http.StatusNotFound)}},
	{http.MethodGet, "/api/arenas/{arenaID}/events", "Event stream", "Server-Sent Events for every engine event of the arena.", nil,
		[]response{stream("text/event-stream")}},

	{http.MethodPost, "/api/arenas/{arenaID}/round", "Create round", "Starts a round. The arena is snapshotted and the timer starts.", CreateRoundRequest{},
		[]response{created(RoundResponse{}), fail(http.StatusBadRequest), fail(http.StatusConflict)}},
	{http.MethodGet, "/api/arenas/{arenaID}/round", "Get round", "", nil,
		[]response{ok(RoundResponse{}), fail(http.StatusNotFound)}},
	{http.MethodDelete, "/api/arenas/{arenaID}/round", "End round", "Pass rollback=false to keep changes to the arena.", nil,
		[]response{noContent(), fail(http.StatusConflict), fail(http.StatusInternalServerError)}},
	{http.MethodPost, "/api/arenas/{arenaID}/round/stage/next", "Next stage", "Fails with 409 at the last stage or when vetoed.", nil,
		[]response{ok(RoundResponse{}), fail(http.StatusConflict)}},
	{http.MethodPut, "/api/arenas/{arenaID}/round/stage", "Set stage", "Jumps to a stage without touching the timer.", SetStageRequest{},
		[]response{ok(RoundResponse{}), fail(http.StatusBadRequest), fail(http.StatusConflict)}},
	{http.MethodPut, "/api/arenas/{arenaID}/round/time", "Set timer", "", SetTimeRequest{},
		[]response{ok(RoundResponse{}), fail(http.StatusBadRequest)}},
	{http.MethodPost, "/api/arenas/{arenaID}/round/timer/start", "Start timer", "", nil,
		[]response{ok(RoundResponse{})}},
	{http.MethodPost, "/api/arenas/{arenaID}/round/timer/stop", "Stop timer", "", nil,
		[]response{ok(RoundResponse{})}},
	{http.MethodPost, "/api/arenas/{arenaID}/round/challengers", "Join round", "Refused joins answer 409 with the join status.", JoinRequest{},
		[]response{created(JoinResponse{}), {status: http.StatusConflict, body: JoinResponse{}}}},
	{http.MethodDelete, "/api/arenas/{arenaID}/round/challengers/{playerID}", "Leave round", "", nil,
		[]response{noContent(), fail(http.StatusNotFound)}},
	{http.MethodPut, "/api/arenas/{arenaID}/round/challengers/{playerID}/team", "Set team", "An empty team id removes the challenger from their team.", TeamRequest{},
		[]response{ok(ChallengerResponse{}), fail(http.StatusBadRequest), fail(http.StatusNotFound)}},
	{http.MethodPut, "/api/arenas/{arenaID}/round/challengers/{playerID}/spectating", "Set spectating", "", SpectateRequest{},
		[]response{ok(ChallengerResponse{}), fail(http.StatusNotFound)}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Minigames API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Administration API for minigame arenas and rounds.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if params := pathParams(op.method, op.path); params != nil {
			oc.AddReqStructure(params)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.ctype != "" {
				opts = append(opts, openapi.WithContentType(resp.ctype))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func pathParams(method, path string) any {
	switch {
	case strings.Contains(path, "{index}"):
		return spawnParams{}
	case strings.Contains(path, "{playerID}"):
		return playerParams{}
	case strings.HasSuffix(path, "/history"):
		return historyParams{}
	case method == http.MethodDelete && strings.HasSuffix(path, "/round"):
		return endParams{}
	case strings.Contains(path, "{arenaID}"):
		return arenaParams{}
	}
	return nil
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

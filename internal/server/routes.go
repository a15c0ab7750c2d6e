package server

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/minigames/internal/minigame"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Minigame *minigame.Minigame
	// Events feeds the SSE stream. Nil disables the stream.
	Events message.Subscriber
	// History serves finished rounds. Nil disables the endpoint.
	History HistoryReader
	Logger  *slog.Logger
}

// AddRoutes mounts the API docs and the arena API on r.
func AddRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Minigames API", "/openapi.json", "/docs"))

	r.Get("/api/arenas", handleListArenas(d.Minigame))
	r.Route("/api/arenas/{arenaID}", func(r chi.Router) {
		r.Use(arenaMiddleware(d.Minigame))
		r.Get("/", handleGetArena())
		r.Post("/spawns", handleAddSpawn())
		r.Delete("/spawns/{index}", handleRemoveSpawn())
		r.Post("/rollback", handleRollback())
		if d.History != nil {
			r.Get("/history", handleHistory(d.History))
		}
		if d.Events != nil {
			r.Get("/events", handleEvents(d.Events, d.Logger))
		}

		r.Route("/round", func(r chi.Router) {
			r.Post("/", handleCreateRound())
			r.Group(func(r chi.Router) {
				r.Use(roundMiddleware)
				r.Get("/", handleGetRound())
				r.Delete("/", handleEndRound())
				r.Post("/stage/next", handleNextStage())
				r.Put("/stage", handleSetStage())
				r.Put("/time", handleSetTime())
				r.Post("/timer/start", handleStartTimer())
				r.Post("/timer/stop", handleStopTimer())
				r.Post("/challengers", handleJoin())
				r.Delete("/challengers/{playerID}", handleLeave())
				r.Put("/challengers/{playerID}/team", handleSetTeam())
				r.Put("/challengers/{playerID}/spectating", handleSpectate())
			})
		})
	})
}

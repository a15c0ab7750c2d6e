package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/playperu/minigames/internal/events"
)

// handleEvents streams an arena's forwarded events as Server-Sent Events.
func handleEvents(sub message.Subscriber, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		a := arenaFrom(r)
		msgs, err := sub.Subscribe(r.Context(), events.Topic(a.ID()))
		if err != nil {
			logger.Error("subscribing to arena events", "arena", a.ID(), "error", err)
			writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				msg.Ack()
				kind := msg.Metadata.Get("kind")
				if kind == "" {
					if env, err := events.Decode(msg); err == nil {
						kind = env.Kind
					}
				}
				fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.UUID, kind, msg.Payload)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

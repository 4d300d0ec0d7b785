package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/phase"
	"github.com/mcdev12/roundsync/go/internal/session"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	if services.Player != nil {
		registerPlayerRoutes(mux, services.Player)
	}
	if services.Host != nil {
		registerHostRoutes(mux, services.Host)
	}

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerPlayerRoutes(mux *http.ServeMux, player *session.Player) {
	mux.HandleFunc("GET /api/view", func(w http.ResponseWriter, r *http.Request) {
		view, err := player.View(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	mux.HandleFunc("POST /api/action", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Choice models.Choice `json:"choice"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		respond(w, player.SubmitAction(r.Context(), req.Choice))
	})

	mux.HandleFunc("POST /api/draft", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Draft string `json:"draft"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		respond(w, player.SetMessageDraft(req.Draft))
	})

	mux.HandleFunc("POST /api/message", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		respond(w, player.SendMessage(r.Context(), req.Content))
	})

	mux.HandleFunc("POST /api/indicator/close", func(w http.ResponseWriter, r *http.Request) {
		respond(w, player.CloseIndicatorDialog(r.Context()))
	})

	mux.HandleFunc("POST /api/resync", func(w http.ResponseWriter, r *http.Request) {
		player.Resync()
		respond(w, nil)
	})

	mux.HandleFunc("POST /api/exit", func(w http.ResponseWriter, r *http.Request) {
		respond(w, player.Exit(r.Context()))
	})
}

func registerHostRoutes(mux *http.ServeMux, host *session.Host) {
	mux.HandleFunc("GET /api/view", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, host.View())
	})

	mux.HandleFunc("POST /api/host/start", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.StartGame(r.Context()))
	})
	mux.HandleFunc("POST /api/host/publish", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.PublishResults(r.Context()))
	})
	mux.HandleFunc("POST /api/host/next", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.NextRound(r.Context()))
	})
	mux.HandleFunc("POST /api/host/indicators", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.AssignIndicators(r.Context()))
	})
	mux.HandleFunc("POST /api/host/end", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.EndGame(r.Context()))
	})

	mux.HandleFunc("POST /api/resync", func(w http.ResponseWriter, r *http.Request) {
		host.Resync()
		respond(w, nil)
	})

	mux.HandleFunc("POST /api/exit", func(w http.ResponseWriter, r *http.Request) {
		respond(w, host.Exit(r.Context()))
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := map[string]string{"error": err.Error()}
	if kind := clients.Kind(err); status >= http.StatusBadGateway {
		body["kind"] = string(kind)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, phase.ErrInvalidChoice),
		errors.Is(err, phase.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, phase.ErrNoRound),
		errors.Is(err, phase.ErrRoundChanged),
		errors.Is(err, phase.ErrNotChoosing),
		errors.Is(err, phase.ErrNotComposing),
		errors.Is(err, phase.ErrSubmitInFlight),
		errors.Is(err, phase.ErrMessageInFlight),
		errors.Is(err, session.ErrControlUnavailable):
		return http.StatusConflict
	case errors.Is(err, contextstore.ErrNoContext):
		return http.StatusNotFound
	case clients.IsApplication(err):
		return http.StatusBadGateway
	case clients.IsTransport(err), clients.IsData(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

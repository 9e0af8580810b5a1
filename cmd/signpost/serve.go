package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/signpost-dev/signpost/internal/config"
	"github.com/signpost-dev/signpost/pkg/middleware"
	"github.com/signpost-dev/signpost/pkg/plugins/loggerplugin"
	"github.com/signpost-dev/signpost/pkg/router"
)

func serveCmd() *cobra.Command {
	var (
		file string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the router over HTTP for development",
		Long: `Expose the router over HTTP for development.

Starts an HTTP server that resolves paths, builds URLs and drives
navigations against the configured route tree. Transition events are
streamed to WebSocket clients on /events and Prometheus metrics are
served on /metrics.

Endpoints:
  GET  /api/match?path=/users/42   resolve a path
  GET  /api/routes                 configured route definitions
  GET  /api/build/{route}          build a URL (query params become route params)
  POST /api/navigate               run a guarded transition
  GET  /api/state                  current router state
  GET  /events                     WebSocket event feed
  GET  /metrics                    Prometheus metrics

Example:
  signpost serve --addr :4200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			r, err := cfg.Router()
			if err != nil {
				return err
			}

			logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				ReportTimestamp: true,
				Prefix:          "signpost",
			})

			r.UseMiddleware(middleware.Prometheus())
			r.UsePlugin(loggerplugin.New(loggerplugin.Options{Logger: logger}))

			if _, err := r.Start("/").Wait(); err != nil {
				logger.Warn("no route matched start path", "path", "/", "err", err)
			}
			defer r.Dispose()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServeHandler(r, cfg, logger),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr, "config", cfg.Path())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":4200", "Listen address")

	return cmd
}

func newServeHandler(r *router.Router, cfg *config.Config, logger *log.Logger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)

	mux.Get("/api/match", handleMatch(r))
	mux.Get("/api/routes", handleRoutes(cfg))
	mux.Get("/api/build/{route}", handleBuild(r))
	mux.Post("/api/navigate", handleNavigate(r))
	mux.Get("/api/state", handleState(r))
	mux.Get("/events", handleEvents(r, logger))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func handleMatch(r *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Query().Get("path")
		if path == "" {
			writeJSONError(w, http.StatusBadRequest, "missing path query parameter")
			return
		}
		state := r.Match(path)
		if state == nil {
			writeJSONError(w, http.StatusNotFound, "no route matches "+path)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleRoutes(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":   cfg.Name,
			"routes": cfg.Routes,
		})
	}
}

func handleBuild(r *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "route")

		params := make(map[string]any)
		for key, values := range req.URL.Query() {
			if len(values) == 1 {
				params[key] = values[0]
			} else {
				params[key] = values
			}
		}

		path, err := r.BuildPath(name, params)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"route": name, "path": path})
	}
}

func handleNavigate(r *router.Router) http.HandlerFunc {
	type request struct {
		Route  string         `json:"route"`
		Path   string         `json:"path"`
		Params map[string]any `json:"params"`
		Reload bool           `json:"reload"`
	}

	return func(w http.ResponseWriter, req *http.Request) {
		var body request
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		var opts []router.NavigateOption
		if body.Reload {
			opts = append(opts, router.WithReload())
		}

		var nav *router.Navigation
		switch {
		case body.Route != "":
			nav = r.Navigate(body.Route, body.Params, opts...)
		case body.Path != "":
			nav = r.NavigateToPath(body.Path, opts...)
		default:
			writeJSONError(w, http.StatusBadRequest, "request needs a route or a path")
			return
		}

		select {
		case <-req.Context().Done():
			nav.Cancel()
			return
		case <-nav.Done():
		}

		state, err := nav.Wait()
		if err != nil {
			status := http.StatusUnprocessableEntity
			if rerr, ok := err.(*router.RouterError); ok && rerr.Code == router.CodeTransitionCancelled {
				status = http.StatusConflict
			}
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleState(r *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		state := r.GetState()
		if state == nil {
			writeJSONError(w, http.StatusNotFound, "router holds no state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// eventFrame is the wire shape of a router event on the /events feed.
type eventFrame struct {
	Event string        `json:"event"`
	To    *router.State `json:"to,omitempty"`
	From  *router.State `json:"from,omitempty"`
	Error string        `json:"error,omitempty"`
	Code  string        `json:"code,omitempty"`
}

func handleEvents(r *router.Router, logger *log.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}

	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "err", err)
			return
		}

		// Listener callbacks run on navigation goroutines, so frames are
		// funneled through a channel to keep a single connection writer.
		frames := make(chan eventFrame, 64)
		unsubscribe := r.Subscribe("", func(ev router.Event) {
			frame := eventFrame{Event: string(ev.Name), To: ev.To, From: ev.From}
			if ev.Err != nil {
				frame.Error = ev.Err.Error()
				frame.Code = string(ev.Err.Code)
			}
			select {
			case frames <- frame:
			default:
				// Slow consumer, drop the frame rather than stall routing.
			}
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		defer func() {
			unsubscribe()
			conn.Close()
		}()

		for {
			select {
			case <-done:
				return
			case frame := <-frames:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

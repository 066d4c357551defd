package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sharetube/watchroom/internal/metrics"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(metrics.Middleware)
	r.Use(cors.AllowAll().Handler)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Group(func(r chi.Router) {
			r.Use(c.authMw)

			r.Get("/ws", c.serveWS)
			r.Route("/rooms/{room-id}", func(r chi.Router) {
				r.Get("/state", c.getRoomState)
				r.Post("/state", c.initRoomState)
				r.Post("/close", c.closeRoom)
				r.Get("/messages", c.getMessages)
				r.Get("/messages/recent", c.getRecentMessages)
				r.Route("/queue", func(r chi.Router) {
					r.Get("/", c.getQueue)
					r.Post("/", c.addToQueue)
					r.Route("/{item-id}", func(r chi.Router) {
						r.Delete("/", c.removeFromQueue)
						r.Post("/vote", c.toggleVote)
						r.Get("/voted", c.hasVoted)
					})
				})
			})
		})
	})

	return r
}

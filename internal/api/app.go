package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isqad/melody"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/coordinator"
	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus"
)

// AppOptions is options of the application
type AppOptions struct {
	Env    core.Environment
	Config *config.Config

	EventsPublisher  eventbus.Publisher
	EventsSubscriber eventbus.Subscriber
	Coordinator      *coordinator.Coordinator

	// AuthStub replaces the identity middleware in tests
	AuthStub AuthHandler

	router         *chi.Mux
	websocket      *melody.Melody
	authMiddleware AuthHandler
}

// App is application for API
type App struct {
	AppOptions
}

// NewApp creates a new API application
func NewApp(options AppOptions) *App {
	options.router = chi.NewRouter()
	options.websocket = melody.New()
	options.websocket.Config.MaxMessageSize = 64 * 1024

	edgeAuth := NewEdgeAuth()
	edgeAuth.AuthFailFunc = authFailedFunc
	edgeAuth.StubHandler = options.AuthStub

	options.authMiddleware = edgeAuth.Middleware()

	app := &App{
		options,
	}
	return app
}

// Router is function for construct http router
func (app *App) Router() http.Handler {
	app.router.Use(middleware.RealIP)
	app.router.Use(middleware.Recoverer)

	app.router.With(app.authMiddleware).Route("/", func(r chi.Router) {
		r.Get("/ws", WebsocketsHandler(app.EventsSubscriber, app.websocket))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/voice/ice-servers", ICEServersHandler(app.Config))
			r.Get("/channels/{channelID}/voice", OccupantsHandler(app.Coordinator))
			r.Route("/moderation/{channelID}", ModerationRoutes(app.Coordinator))
		})
	})

	app.router.Method("GET", "/metrics", promhttp.Handler())

	app.websocket.HandleConnect(ConnectHandler())
	app.websocket.HandleDisconnect(DisconnectHandler(app.EventsPublisher))
	app.websocket.HandleMessage(HandleMessage(app.EventsPublisher))
	app.websocket.HandleError(func(s *melody.Session, err error) {
		log.Error().Err(err).Str("service", "websockets").Msg("error in websocket session")
	})

	return app.router
}

func (app *App) Start() error {
	quit := make(chan os.Signal, 1)
	done := make(chan struct{}, 1)

	app.initLogger()
	router := app.Router()

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := &http.Server{
		Addr:              app.Config.Address,
		Handler:           router,
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Warn().Msg("received signal to terminate the server")
		log.Info().Msg("all services are stopped")
		close(done)
	})

	// Shutdown the HTTP server
	go func() {
		<-quit
		log.Warn().Msg("the server is going shutting down")

		// Wait 20 seconds for close http connections
		waitIdleConnCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(waitIdleConnCtx); err != nil {
			log.Fatal().Err(err).Msg("can't gracefully shutdown the server")
		}
	}()

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server has been closed immediatelly")
	}

	<-done
	log.Info().Msg("server stopped")

	return nil
}

func (app *App) initLogger() {
	cw := zerolog.NewConsoleWriter()
	log.Logger = log.Output(cw)

	level := zerolog.InfoLevel

	if app.Env.IsDevelopment() {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)
}

func authFailedFunc(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(http.StatusUnauthorized)
}

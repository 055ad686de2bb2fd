package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"

	"rmfconsole/engine"
	"rmfconsole/launcher"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.SetupEngineListeners(eng)
	hub.Start()

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	if origin := eng.AppConfig().Web.ClientURL; origin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{origin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Real-time channel
	r.Get("/events", h.handleEvents)
	r.Handle("/metrics", eng.Metrics().Handler())

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// Reads
	r.Get("/get_tasks", h.handleGetTasks)
	r.Get("/get_fleets", h.handleGetFleets)
	r.Get("/get_yaml_map", h.handleGetYAMLMap)
	r.Get("/config", h.handleGetConfig)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/processes", h.apiProcesses)
		r.Get("/state", h.apiState)
		r.Get("/constants", h.apiListConstants)
		r.Get("/waypoints", h.apiWaypoints)
		r.Get("/audit", h.apiAuditLog)
	})

	// Writes and process control
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/dispatch_task", h.handleDispatchTask)
		r.Post("/update_config", h.handleUpdateConfig)
		r.Post("/create_config", h.handleCreateConfig)
		r.Post("/upload_map", h.handleUploadMap)
		r.Post("/colcon_build", h.handleColconBuild)
		r.Post("/launch_ros", h.handleLaunch(launcher.TargetROS))
		r.Post("/shutdown_ros", h.handleShutdown(launcher.TargetROS))
		r.Post("/launch_ros_secondary", h.handleLaunch(launcher.TargetROSSecondary))
		r.Post("/shutdown_ros_secondary", h.handleShutdown(launcher.TargetROSSecondary))
		r.Post("/run-traffic-editor", h.handleLaunch(launcher.TargetEditor))
		r.Post("/restart_ros", h.handleRestartROS)
		r.Put("/api/constants/{name}", h.apiSetConstant)
		r.Post("/api/config/robots", h.apiAddRobot)
		r.Delete("/api/config/robots/{name}", h.apiRemoveRobot)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

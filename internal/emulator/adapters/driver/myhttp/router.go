package myhttp

import (
	"net/http"

	"ride-sim/internal/emulator/adapters/driver/myhttp/handlers"
	"ride-sim/internal/emulator/adapters/driver/myhttp/middleware"
	"ride-sim/internal/emulator/adapters/driver/myhttp/ws"
	"ride-sim/internal/mylogger"

	"github.com/justinas/alice"
	"github.com/rs/cors"
)

// Router registers the control API. The feed socket authenticates in band,
// so it only gets the standard chain.
func Router(fh *handlers.FleetHandler, dispatcher *ws.Dispatcher, auth *middleware.AuthMiddleware, log mylogger.Logger) http.Handler {
	mux := http.NewServeMux()

	standard := alice.New(middleware.RecoverPanic(log), middleware.LogRequest(log), middleware.SecureHeaders)
	protected := standard.Append(auth.Wrap)

	mux.Handle("GET /vehicles", protected.ThenFunc(fh.ListVehicles))
	mux.Handle("GET /vehicles/{vehicle_id}", protected.ThenFunc(fh.GetVehicle))
	mux.Handle("POST /vehicles/{vehicle_id}/activate", protected.ThenFunc(fh.Activate))
	mux.Handle("POST /vehicles/{vehicle_id}/deactivate", protected.ThenFunc(fh.Deactivate))
	mux.Handle("PUT /vehicles/{vehicle_id}/notification", protected.ThenFunc(fh.OverrideNotification))
	mux.Handle("GET /vehicles/{vehicle_id}/events", protected.ThenFunc(fh.ListEvents))
	mux.Handle("POST /emulators/{vehicle_id}/start", protected.ThenFunc(fh.StartEmulator))
	mux.Handle("POST /emulators/{vehicle_id}/stop", protected.ThenFunc(fh.StopEmulator))
	mux.Handle("PUT /fleet/active", protected.ThenFunc(fh.SetActiveVehicle))
	mux.Handle("PUT /fleet/config", protected.ThenFunc(fh.ApplyConfig))
	mux.Handle("GET /ghosts", protected.ThenFunc(fh.ListGhosts))

	mux.Handle("GET /ws/fleet", standard.Then(dispatcher.WsHandler()))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})
	return c.Handler(mux)
}

package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// SetRoutes registers every endpoint on the router. The Prometheus
// scrape endpoint is unauthenticated; everything else requires a key.
func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/api/graph/stops.json", validateAPIKey(api, api.stopsHandler))
	router.Handler(http.MethodGet, "/api/graph/stop/:id", validateAPIKey(api, api.stopHandler))
	router.Handler(http.MethodGet, "/api/graph/routes.json", validateAPIKey(api, api.routesHandler))
	router.Handler(http.MethodGet, "/api/graph/route/:id", validateAPIKey(api, api.routeHandler))
	router.Handler(http.MethodGet, "/api/graph/services.json", validateAPIKey(api, api.servicesHandler))
	router.Handler(http.MethodGet, "/api/graph/service/:id", validateAPIKey(api, api.serviceHandler))
	router.Handler(http.MethodGet, "/api/graph/validation.json", validateAPIKey(api, api.validationHandler))
	router.Handler(http.MethodGet, "/api/graph/change-log.json", validateAPIKey(api, api.changeLogHandler))
	router.Handler(http.MethodGet, "/api/graph/vehicles.json", validateAPIKey(api, api.vehiclesHandler))
	router.Handler(http.MethodGet, "/api/graph/stats.json", validateAPIKey(api, api.statsHandler))

	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}
}

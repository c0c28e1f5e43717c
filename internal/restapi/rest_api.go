// Package restapi exposes the loaded schedule graph over a read-only
// JSON API.
package restapi

import (
	"netweave.openmodal.org/internal/app"
)

type RestAPI struct {
	*app.Application
}

// NewRestAPI creates a new RestAPI instance around the shared application
// state.
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
	}
}

// countRequest bumps the per-handler request counter when metrics are
// wired up.
func (api *RestAPI) countRequest(handler string) {
	if api.Metrics != nil {
		api.Metrics.HTTPRequests.WithLabelValues(handler).Inc()
	}
}

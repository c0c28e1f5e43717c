package app

import (
	"net/http"
	"slices"
)

// RequestHasInvalidAPIKey reports whether the request's key query
// parameter matches none of the configured API keys.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(r.URL.Query().Get("key"))
}

// IsInvalidAPIKey reports whether the key is rejected. An empty key is
// always invalid, even with an empty key list.
func (app *Application) IsInvalidAPIKey(key string) bool {
	return key == "" || !slices.Contains(app.Config.ApiKeys, key)
}

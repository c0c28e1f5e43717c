// Package webui serves a minimal HTML debug view over the loaded
// schedule graph.
package webui

import (
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/julienschmidt/httprouter"

	"netweave.openmodal.org/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(app *app.Application) *WebUI {
	return &WebUI{Application: app}
}

const debugTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<pre>{{.Pre}}</pre>
</body>
</html>`

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.New("debug").Parse(debugTemplate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dataStruct := debugData{
		Title: title,
		Pre:   content,
	}

	err = tmpl.Execute(w, dataStruct)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	schedule := webUI.Schedule

	switch dataType {
	case "stops":
		data = schedule.Stops()
		title = "Schedule - Stops"
	case "routes":
		data = schedule.Routes()
		title = "Schedule - Routes"
	case "services":
		data = schedule.Services()
		title = "Schedule - Services"
	case "vehicles":
		data = schedule.Vehicles
		title = "Schedule - Vehicles"
	case "vehicle_types":
		data = schedule.VehicleTypes
		title = "Schedule - Vehicle Types"
	case "transfer_times":
		data = schedule.MinimalTransferTimes
		title = "Schedule - Minimal Transfer Times"
	case "change_log":
		data = schedule.ChangeLog().Entries()
		title = "Schedule - Change Log"
	case "stats":
		data = schedule.Stats()
		title = "Schedule - Stats"
	default:
		data = map[string]string{
			"error": "Please use one of the following: stops, routes, services, vehicles, vehicle_types, transfer_times, change_log, stats.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

func (webUI *WebUI) SetWebUIRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/debug/graph", http.HandlerFunc(webUI.debugIndexHandler))
}

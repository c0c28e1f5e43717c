package restapi

import (
	"net/http"
	"sort"
)

type validationModel struct {
	HasValidServices bool     `json:"hasValidServices"`
	InvalidRoutes    []string `json:"invalidRoutes"`
	InvalidServices  []string `json:"invalidServices"`
	VehicleReport    []string `json:"vehicleReport,omitempty"`
}

func (api *RestAPI) validationHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("validation")

	entry := validationModel{
		HasValidServices: api.Schedule.HasValidServices(),
		InvalidRoutes:    api.Schedule.InvalidRoutes(),
		InvalidServices:  api.Schedule.InvalidServices(),
	}
	if api.VehicleDefs != nil {
		entry.VehicleReport = api.Schedule.ValidateVehicleDefinitions(api.VehicleDefs)
	}

	api.sendResponse(w, r, NewEntryResponse(entry))
}

type statsModel struct {
	EPSG             string `json:"epsg"`
	Services         int    `json:"services"`
	Routes           int    `json:"routes"`
	Stops            int    `json:"stops"`
	Edges            int    `json:"edges"`
	Vehicles         int    `json:"vehicles"`
	ChangeLogEntries int    `json:"changeLogEntries"`
}

func (api *RestAPI) statsHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("stats")

	stats := api.Schedule.Stats()
	entry := statsModel{
		EPSG:             api.Schedule.EPSG,
		Services:         stats.NumServices,
		Routes:           stats.NumRoutes,
		Stops:            stats.NumStops,
		Edges:            stats.NumEdges,
		Vehicles:         stats.NumVehicles,
		ChangeLogEntries: api.Schedule.ChangeLog().Len(),
	}

	api.sendResponse(w, r, NewEntryResponse(entry))
}

type vehiclesModel struct {
	Vehicles     map[string]string `json:"vehicles"`
	DefinedTypes []string          `json:"definedTypes"`
}

func (api *RestAPI) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("vehicles")

	entry := vehiclesModel{
		Vehicles:     make(map[string]string, len(api.Schedule.Vehicles)),
		DefinedTypes: make([]string, 0, len(api.Schedule.VehicleTypes)),
	}
	for id, vehicle := range api.Schedule.Vehicles {
		entry.Vehicles[id] = vehicle.Type
	}
	for typeName := range api.Schedule.VehicleTypes {
		entry.DefinedTypes = append(entry.DefinedTypes, typeName)
	}
	sort.Strings(entry.DefinedTypes)

	api.sendResponse(w, r, NewEntryResponse(entry))
}

func (api *RestAPI) changeLogHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("change_log")

	api.sendResponse(w, r, NewListResponse(api.Schedule.ChangeLog().Entries()))
}

package restapi

import (
	"net/http"

	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/utils"
)

type stopModel struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	EPSG string  `json:"epsg"`
}

type stopDetailModel struct {
	stopModel
	Attributes    map[string]any     `json:"attributes,omitempty"`
	RouteIDs      []string           `json:"routeIds"`
	ServiceIDs    []string           `json:"serviceIds"`
	TransferTimes map[string]float64 `json:"minimalTransferTimes,omitempty"`
}

func newStopModel(stop *elements.Stop) stopModel {
	return stopModel{
		ID:   stop.ID,
		Name: stop.Name,
		Lat:  stop.Lat,
		Lon:  stop.Lon,
		X:    stop.X,
		Y:    stop.Y,
		EPSG: stop.EPSG,
	}
}

func (api *RestAPI) stopsHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("stops")

	stops := api.Schedule.Stops()
	list := make([]stopModel, 0, len(stops))
	for _, stop := range stops {
		list = append(list, newStopModel(stop))
	}

	api.sendResponse(w, r, NewListResponse(list))
}

func (api *RestAPI) stopHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("stop")

	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}

	stop, err := api.Schedule.Stop(id)
	if err != nil {
		api.sendNotFound(w, r)
		return
	}

	entry := stopDetailModel{
		stopModel:  newStopModel(stop),
		Attributes: stop.Attributes,
	}

	if node, ok := api.Schedule.Graph().StopNode(id); ok {
		entry.RouteIDs = node.Routes.Sorted()
		entry.ServiceIDs = node.Services.Sorted()
	}
	if times, ok := api.Schedule.MinimalTransferTimes[id]; ok && len(times) > 0 {
		entry.TransferTimes = times
	}

	api.sendResponse(w, r, NewEntryResponse(entry))
}

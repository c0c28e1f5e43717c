package restapi

import (
	"net/http"

	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/geo"
	"netweave.openmodal.org/internal/utils"
)

type routeModel struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName,omitempty"`
	LongName  string `json:"longName,omitempty"`
	Mode      string `json:"mode"`
	StopCount int    `json:"stopCount"`
	TripCount int    `json:"tripCount"`
	Valid     bool   `json:"valid"`
}

type routeDetailModel struct {
	routeModel
	ServiceID        string                `json:"serviceId,omitempty"`
	OrderedStops     []string              `json:"orderedStops"`
	LengthMeters     float64               `json:"lengthMeters"`
	ArrivalOffsets   []string              `json:"arrivalOffsets"`
	DepartureOffsets []string              `json:"departureOffsets"`
	NetworkLinks     []string              `json:"networkLinks,omitempty"`
	Attributes       map[string]any        `json:"attributes,omitempty"`
	Trips            []elements.TripRecord `json:"trips"`
	InvalidReasons   []string              `json:"invalidReasons,omitempty"`
}

func newRouteModel(route *elements.Route) routeModel {
	return routeModel{
		ID:        route.ID,
		ShortName: route.ShortName,
		LongName:  route.LongName,
		Mode:      route.Mode,
		StopCount: len(route.OrderedStops),
		TripCount: route.Trips.Len(),
		Valid:     route.IsValidRoute(),
	}
}

func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("routes")

	routes := api.Schedule.Routes()
	list := make([]routeModel, 0, len(routes))
	for _, route := range routes {
		list = append(list, newRouteModel(route))
	}

	api.sendResponse(w, r, NewListResponse(list))
}

func (api *RestAPI) routeHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("route")

	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}

	route, err := api.Schedule.Route(id)
	if err != nil {
		api.sendNotFound(w, r)
		return
	}

	entry := routeDetailModel{
		routeModel:       newRouteModel(route),
		OrderedStops:     route.OrderedStops,
		LengthMeters:     routeLengthMeters(api.Schedule.Graph(), route),
		ArrivalOffsets:   route.ArrivalOffsets,
		DepartureOffsets: route.DepartureOffsets,
		NetworkLinks:     route.NetworkLinks,
		Attributes:       route.Attributes,
		Trips:            route.TripsWithOffsets(),
	}
	if serviceID, ok := api.Schedule.Graph().ServiceForRoute(id); ok {
		entry.ServiceID = serviceID
	}
	if !entry.Valid {
		entry.InvalidReasons = route.InvalidReasons()
	}

	api.sendResponse(w, r, NewEntryResponse(entry))
}

// routeLengthMeters sums the great-circle distance between the WGS84
// anchors of consecutive stops along the route.
func routeLengthMeters(g *elements.ElementGraph, route *elements.Route) float64 {
	var total float64
	for i := 0; i+1 < len(route.OrderedStops); i++ {
		from, ok := g.StopNode(route.OrderedStops[i])
		if !ok {
			continue
		}
		to, ok := g.StopNode(route.OrderedStops[i+1])
		if !ok {
			continue
		}
		total += geo.Haversine(from.Stop.Lat, from.Stop.Lon, to.Stop.Lat, to.Stop.Lon)
	}
	return total
}

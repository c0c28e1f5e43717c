package restapi

import (
	"net/http"

	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/utils"
)

type serviceModel struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	RouteIDs   []string `json:"routeIds"`
	RouteCount int      `json:"routeCount"`
	Valid      bool     `json:"valid"`
}

type serviceDetailModel struct {
	serviceModel
	StopIDs    []string            `json:"stopIds"`
	Directions map[string][]string `json:"directions"`
	Attributes map[string]any      `json:"attributes,omitempty"`
}

func newServiceModel(service *elements.Service) serviceModel {
	routeIDs := service.RouteIDs()
	return serviceModel{
		ID:         service.ID,
		Name:       service.Name,
		RouteIDs:   routeIDs,
		RouteCount: len(routeIDs),
		Valid:      service.IsValidService(),
	}
}

func (api *RestAPI) servicesHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("services")

	services := api.Schedule.Services()
	list := make([]serviceModel, 0, len(services))
	for _, service := range services {
		list = append(list, newServiceModel(service))
	}

	api.sendResponse(w, r, NewListResponse(list))
}

func (api *RestAPI) serviceHandler(w http.ResponseWriter, r *http.Request) {
	api.countRequest("service")

	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}

	service, err := api.Schedule.Service(id)
	if err != nil {
		api.sendNotFound(w, r)
		return
	}

	entry := serviceDetailModel{
		serviceModel: newServiceModel(service),
		StopIDs:      service.StopIDs(),
		Directions:   service.SplitByDirection(),
		Attributes:   service.Attributes,
	}

	api.sendResponse(w, r, NewEntryResponse(entry))
}

package restapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// ResponseModel is the envelope every endpoint answers with. Version is 2
// for successful responses and 1 for errors.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Data        any    `json:"data,omitempty"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
}

type entryData struct {
	Entry any `json:"entry"`
}

type listData struct {
	List          any  `json:"list"`
	LimitExceeded bool `json:"limitExceeded"`
}

// ResponseCurrentTime returns the current time in Unix milliseconds, the
// unit the envelope's currentTime field carries.
func ResponseCurrentTime() int64 {
	return time.Now().UnixMilli()
}

// NewEntryResponse wraps a single object in a successful envelope.
func NewEntryResponse(entry any) ResponseModel {
	return ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: ResponseCurrentTime(),
		Data:        entryData{Entry: entry},
		Text:        "OK",
		Version:     2,
	}
}

// NewListResponse wraps a collection in a successful envelope.
func NewListResponse(list any) ResponseModel {
	return ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: ResponseCurrentTime(),
		Data:        listData{List: list},
		Text:        "OK",
		Version:     2,
	}
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response ResponseModel) {
	setJSONResponseType(&w)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusNotFound)

	response := ResponseModel{
		Code:        http.StatusNotFound,
		CurrentTime: ResponseCurrentTime(),
		Text:        "resource not found",
		Version:     2,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

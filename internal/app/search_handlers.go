package app

import (
	"context"
	"errors"
	"net/http"

	"explorer.placeexplorer.org/internal/discovery"
	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/location"
	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/ranking"
)

type sortRequest struct {
	By        string `json:"by"`
	Direction string `json:"direction"`
}

func (s sortRequest) criterion() (ranking.Criterion, error) {
	return ranking.ParseCriterion(s.By, s.Direction)
}

// searchRequest is the body of POST /v1/search. Location is the result of
// the browser geolocation call; LocationError is sent instead when that
// call failed ("denied", "timeout", "unavailable"). MinKm and MaxKm default
// to the search form's band.
type searchRequest struct {
	Category      string          `json:"category"`
	MinKm         *float64        `json:"min_km"`
	MaxKm         *float64        `json:"max_km"`
	Location      *geo.Coordinate `json:"location"`
	LocationError string          `json:"location_error"`
	Sort          sortRequest     `json:"sort"`
}

func (req searchRequest) preferences() discovery.Preferences {
	minKm, maxKm := float64(discovery.DefaultMinKm), float64(discovery.DefaultMaxKm)
	if req.MinKm != nil {
		minKm = *req.MinKm
	}
	if req.MaxKm != nil {
		maxKm = *req.MaxKm
	}
	return discovery.PreferencesFromKilometers(req.Category, minKm, maxKm)
}

// placeResponse is a summary decorated for the result cards.
type placeResponse struct {
	models.PlaceSummary
	DistanceMeters *float64 `json:"distance_m,omitempty"`
	Saved          bool     `json:"saved"`
}

type searchResponse struct {
	SearchID string            `json:"search_id"`
	Origin   geo.Coordinate    `json:"origin"`
	Current  bool              `json:"current"`
	Sort     ranking.Criterion `json:"sort"`
	Places   []placeResponse   `json:"places"`
	States   []discovery.State `json:"states"`
}

// locatorFor picks the origin source of one search: a client-reported
// failure wins over a client position, which wins over the server fallback.
func (app *Application) locatorFor(req searchRequest) discovery.Locator {
	switch {
	case req.LocationError != "":
		return location.NewAdapter(location.FromClientError(req.LocationError), app.Logger)
	case req.Location != nil:
		return location.NewAdapter(location.Fixed(*req.Location), app.Logger)
	default:
		return location.NewAdapter(app.Positioner, app.Logger)
	}
}

func (app *Application) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	criterion, err := req.Sort.criterion()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.Pipeline.Submit(r.Context(), app.locatorFor(req), req.preferences())
	if err != nil {
		app.searchFailedResponse(w, r, result, err)
		return
	}

	ranked := ranking.Rank(result.Places, criterion, result.Origin)
	resp := searchResponse{
		SearchID: result.Token.String(),
		Origin:   result.Origin,
		Current:  app.Pipeline.IsCurrent(result.Token),
		Sort:     criterion,
		Places:   app.decorate(r.Context(), ranked, &result.Origin),
		States:   result.Transitions,
	}
	if err := app.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// searchFailureStatus maps a pipeline failure reason onto an HTTP status.
func searchFailureStatus(reason discovery.Reason) int {
	switch reason {
	case discovery.ReasonInvalidPreferences:
		return http.StatusBadRequest
	case discovery.ReasonLocationDenied:
		return http.StatusForbidden
	case discovery.ReasonLocationUnavailable:
		return http.StatusUnprocessableEntity
	case discovery.ReasonProviderUnavailable:
		return http.StatusServiceUnavailable
	case discovery.ReasonSearchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (app *Application) searchFailedResponse(w http.ResponseWriter, r *http.Request, result discovery.Result, err error) {
	var failed *discovery.FailedError
	if !errors.As(err, &failed) {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.errorResponse(w, r, searchFailureStatus(failed.Reason), envelope{
		"error":     failed.Err.Error(),
		"reason":    failed.Reason,
		"state":     failed.State,
		"search_id": result.Token.String(),
		"states":    result.Transitions,
	})
}

// rankRequest is the body of POST /v1/rank. It re-orders a list the client
// already holds, so toggling a sort key never re-runs the search. Select is
// a column-header click applied on top of Sort: the current key flips its
// direction, any other key starts in its default direction.
type rankRequest struct {
	Origin *geo.Coordinate       `json:"origin"`
	Places []models.PlaceSummary `json:"places"`
	Sort   sortRequest           `json:"sort"`
	Select string                `json:"select"`
}

func (app *Application) rankHandler(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	criterion, err := req.Sort.criterion()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	key := criterion.Key
	if req.Select != "" {
		selected, err := ranking.ParseCriterion(req.Select, "")
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		key = selected.Key
	}

	var origin geo.Coordinate
	switch {
	case req.Origin != nil && !req.Origin.Valid():
		app.badRequestResponse(w, r, geo.ErrInvalidCoordinate)
		return
	case req.Origin != nil:
		origin = *req.Origin
	case key == ranking.KeyDistance || criterion.Key == ranking.KeyDistance:
		app.badRequestResponse(w, r, errors.New("sorting by distance requires an origin"))
		return
	}

	sorter := ranking.NewSorter(req.Places, origin)
	ranked := sorter.Apply(criterion)
	if req.Select != "" {
		ranked = sorter.Select(key)
	}

	body := envelope{
		"sort":   sorter.Criterion(),
		"places": app.decorate(r.Context(), ranked, req.Origin),
	}
	if err := app.writeJSON(w, http.StatusOK, body, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// decorate adds the distance from origin (when known) and the saved flag.
func (app *Application) decorate(ctx context.Context, list []models.PlaceSummary, origin *geo.Coordinate) []placeResponse {
	saved := make(map[string]struct{})
	for _, id := range app.Wishlist.Load(ctx) {
		saved[id] = struct{}{}
	}

	out := make([]placeResponse, 0, len(list))
	for _, p := range list {
		item := placeResponse{PlaceSummary: p}
		if origin != nil && p.HasLocation() {
			d := geo.GeodesicDistanceMeters(*origin, *p.Location)
			item.DistanceMeters = &d
		}
		_, item.Saved = saved[p.ID]
		out = append(out, item)
	}
	return out
}

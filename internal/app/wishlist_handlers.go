package app

import (
	"errors"
	"net/http"

	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/wishlist"
	"github.com/julienschmidt/httprouter"
)

func (app *Application) listWishlistHandler(w http.ResponseWriter, r *http.Request) {
	ids := app.Wishlist.Load(r.Context())
	if err := app.writeJSON(w, http.StatusOK, envelope{"ids": ids, "count": len(ids)}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// wishlistDetailsHandler hydrates every saved id. A failed id is listed under
// "errors" and never hides the others.
func (app *Application) wishlistDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ids := app.Wishlist.Load(r.Context())
	results := app.Wishlist.HydrateDetails(r.Context(), ids)

	hydrated := make(map[string]models.PlaceSummary, len(results))
	failed := make(map[string]string)
	for id, res := range results {
		if res.OK() {
			hydrated[id] = *res.Place
			continue
		}
		failed[id] = res.Err.Error()
	}

	body := envelope{"ids": ids, "places": hydrated, "errors": failed}
	if err := app.writeJSON(w, http.StatusOK, body, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) addWishlistHandler(w http.ResponseWriter, r *http.Request) {
	placeID := httprouter.ParamsFromContext(r.Context()).ByName("placeID")
	changed, err := app.Wishlist.Add(r.Context(), placeID)
	app.mutationResponse(w, r, placeID, true, changed, err)
}

func (app *Application) removeWishlistHandler(w http.ResponseWriter, r *http.Request) {
	placeID := httprouter.ParamsFromContext(r.Context()).ByName("placeID")
	changed, err := app.Wishlist.Remove(r.Context(), placeID)
	app.mutationResponse(w, r, placeID, false, changed, err)
}

// toggleWishlistHandler is the star on a result card.
func (app *Application) toggleWishlistHandler(w http.ResponseWriter, r *http.Request) {
	placeID := httprouter.ParamsFromContext(r.Context()).ByName("placeID")
	saved, err := app.Wishlist.Toggle(r.Context(), placeID)
	app.mutationResponse(w, r, placeID, saved, err == nil, err)
}

func (app *Application) mutationResponse(w http.ResponseWriter, r *http.Request, placeID string, saved, changed bool, err error) {
	switch {
	case errors.Is(err, wishlist.ErrInvalidPlaceID):
		app.badRequestResponse(w, r, err)
		return
	case err != nil:
		app.serverErrorResponse(w, r, err)
		return
	}

	body := envelope{"place_id": placeID, "saved": saved, "changed": changed}
	if err := app.writeJSON(w, http.StatusOK, body, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

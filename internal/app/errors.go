package app

import (
	"net/http"

	"explorer.placeexplorer.org/internal/middleware"
	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

func (app *Application) logError(r *http.Request, err error) {
	app.Logger.Error(err.Error(),
		"method", r.Method,
		"uri", r.URL.RequestURI(),
		"request_id", middleware.RequestIDFrom(r.Context()))
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	if err := app.writeJSON(w, status, body, nil); err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs and reports err; the client only sees a generic message.
func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags:  utils.MakeTags("component", "http", "route", r.URL.Path),
		Level: sentry.LevelError,
		ExtraContext: map[string]interface{}{
			"method":     r.Method,
			"request_id": middleware.RequestIDFrom(r.Context()),
		},
	})
	app.errorResponse(w, r, http.StatusInternalServerError,
		envelope{"error": "the server encountered a problem and could not process your request"})
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, envelope{"error": err.Error()})
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound,
		envelope{"error": "the requested resource could not be found"})
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed,
		envelope{"error": "the " + r.Method + " method is not supported for this resource"})
}

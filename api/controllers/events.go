package controllers

import (
	"net/http"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/events"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

const maxRecentEvents = 100

type logEventRequest struct {
	identityFields
	events.LogInput
}

type recentEventsResponse struct {
	Identity     string         `json:"identity"`
	RecentEvents []events.Event `json:"recent_events"`
}

// EventLog records one behaviour event for the session.
func EventLog(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "events")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload logEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Log(r.Context(), id, payload.LogInput)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// EventRecent returns the session's latest events, newest first.
func EventRecent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "events")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", events.DefaultRecentLimit, 1, maxRecentEvents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recent, err := svc.Recent(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if recent == nil {
			recent = []events.Event{}
		}
		responses.WriteSuccess(w, recentEventsResponse{Identity: id.String(), RecentEvents: recent})
	}
}

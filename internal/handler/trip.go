package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/viagemapp/tripledger/internal/domain"
)

// createTripRequest is the body for POST /trips.
type createTripRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Budget      *domain.Money `json:"budget,omitempty"`
}

// joinTripRequest is the body for POST /trips/join.
type joinTripRequest struct {
	Code string `json:"code"`
}

// tripResponse is the JSON representation of a trip. Money fields render as
// quoted two-decimal strings via domain.Money.
type tripResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Budget      *domain.Money    `json:"budget,omitempty"`
	JoinCode    string           `json:"join_code"`
	CreatorID   string           `json:"creator_id"`
	CreatorName string           `json:"creator_name"`
	Members     []memberResponse `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type memberResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// handleCreateTrip handles POST /trips.
func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	created, err := s.trips.Create(r.Context(), actor(r), req.Name, req.Description, req.Budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// handleListTrips handles GET /trips. It returns the trips the calling actor
// is a member of, newest first.
func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.trips.ListForActor(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]tripResponse, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// handleGetTrip handles GET /trips/{tripID}.
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// handleDeleteTrip handles DELETE /trips/{tripID}. Admin only.
func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	if err := s.trips.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleJoinTrip handles POST /trips/join.
func (s *Server) handleJoinTrip(w http.ResponseWriter, r *http.Request) {
	var req joinTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	trip, err := s.trips.Join(r.Context(), actor(r), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// tripToResponse converts a domain.Trip into its JSON representation.
func tripToResponse(t domain.Trip) tripResponse {
	members := make([]memberResponse, len(t.Members))
	for i, m := range t.Members {
		members[i] = memberResponse{ID: m.ID, DisplayName: m.DisplayName, JoinedAt: m.JoinedAt}
	}
	return tripResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Budget:      t.Budget,
		JoinCode:    t.JoinCode,
		CreatorID:   t.CreatorID,
		CreatorName: t.CreatorName,
		Members:     members,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

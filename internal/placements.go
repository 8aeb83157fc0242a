package internal

import (
	"net/http"

	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/listing"
	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/placement"
)

// moveEquipment handles POST /equipment/{id}/move.
func (s *Server) moveEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.MoveRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.move(w, r, id, in)
}

// createPlacement handles POST /placements, which names the equipment in
// the body.
func (s *Server) createPlacement(w http.ResponseWriter, r *http.Request) {
	var in models.CreatePlacementRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.move(w, r, in.EquipmentID, in.MoveRequest)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request, equipmentID int64, in models.MoveRequest) {
	cmd := placement.MoveCommand{
		EquipmentID: equipmentID,
		ToSlotID:    in.ToSlotID,
		StatusAfter: in.StatusAfter,
		Description: in.Description,
	}
	// The performer is whoever holds the token.
	if uid := auth.UserIDFromContext(r.Context()); uid > 0 {
		cmd.PerformedBy = &uid
	}

	res, err := s.Engine.Move(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	f, err := listing.ParseHistoryFilter(r.URL.Query(), s.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeHistory(w, r, f)
}

func (s *Server) listEquipmentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := listing.ParseHistoryFilter(r.URL.Query(), s.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f.EquipmentID = &id
	s.writeHistory(w, r, f)
}

func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, f listing.HistoryFilter) {
	page, err := s.Lister.ListHistory(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

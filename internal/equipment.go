package internal

import (
	"net/http"
	"strings"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/listing"
	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/storage/postgres"
)

func (s *Server) listEquipment(w http.ResponseWriter, r *http.Request) {
	f, err := listing.ParseEquipmentFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.Lister.ListEquipment(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// listUnplacedEquipment feeds the "choose equipment" side of a move.
func (s *Server) listUnplacedEquipment(w http.ResponseWriter, r *http.Request) {
	f, err := listing.ParseEquipmentFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	unplaced := false
	f.Placed = &unplaced
	page, err := s.Lister.ListEquipment(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eq, err := s.Lister.GetEquipment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

// createEquipment registers unplaced equipment. A slot is assigned only by
// a later move.
func (s *Server) createEquipment(w http.ResponseWriter, r *http.Request) {
	var in models.CreateEquipmentRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	status := models.StatusReady
	if in.ReadinessStatus != nil && strings.TrimSpace(*in.ReadinessStatus) != "" {
		st, err := models.ParseReadinessStatus(*in.ReadinessStatus)
		if err != nil {
			s.badRequest(w, r, "readiness_status: %v", err)
			return
		}
		status = st
	}

	var id int64
	err := s.db().QueryRowContext(r.Context(), `
		INSERT INTO equipment (equipment_code, equipment_name, class_id, serial_number,
		                       brand, model, condition_note, readiness_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING equipment_id`,
		strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), in.ClassID,
		nullIfEmpty(in.SerialNumber), nullIfEmpty(in.Brand), nullIfEmpty(in.Model),
		nullIfEmpty(in.ConditionNote), string(status),
	).Scan(&id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			s.notFound(w, r, "class")
			return
		}
		s.writeError(w, r, catalogWriteError(err, "equipment_code"))
		return
	}

	eq, err := s.Lister.GetEquipment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

// updateEquipment edits descriptive fields only. The request type has no
// slot or readiness field, so unknown-field decoding rejects attempts to
// move equipment through this route.
func (s *Server) updateEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.UpdateEquipmentRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Empty() {
		s.badRequest(w, r, "no fields to update")
		return
	}

	var set updateSet
	if in.Code != nil {
		set.add("equipment_code", strings.TrimSpace(*in.Code))
	}
	if in.Name != nil {
		set.add("equipment_name", strings.TrimSpace(*in.Name))
	}
	if in.ClassID != nil {
		set.add("class_id", *in.ClassID)
	}
	if in.SerialNumber != nil {
		set.add("serial_number", nullIfEmpty(in.SerialNumber))
	}
	if in.Brand != nil {
		set.add("brand", nullIfEmpty(in.Brand))
	}
	if in.Model != nil {
		set.add("model", nullIfEmpty(in.Model))
	}
	if in.ConditionNote != nil {
		set.add("condition_note", nullIfEmpty(in.ConditionNote))
	}

	sqlStr, args := set.build("equipment", "equipment_id", id, true, "equipment_id")
	if err := s.db().QueryRowContext(r.Context(), sqlStr, args...).Scan(&id); err != nil {
		switch {
		case isNoRows(err):
			s.writeError(w, r, apperr.NotFound(apperr.CodeEquipmentNotFound, "equipment not found"))
		case postgres.IsForeignKeyViolation(err):
			s.notFound(w, r, "class")
		default:
			s.writeError(w, r, catalogWriteError(err, "equipment_code"))
		}
		return
	}

	eq, err := s.Lister.GetEquipment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

// deleteEquipment removes the equipment row and frees its slot. Its history
// rows stay.
func (s *Server) deleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.db().ExecContext(r.Context(), `DELETE FROM equipment WHERE equipment_id = $1`, id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.writeError(w, r, apperr.NotFound(apperr.CodeEquipmentNotFound, "equipment not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

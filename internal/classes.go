package internal

import (
	"net/http"
	"strings"

	"rdw-inventory-api/internal/models"
)

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db().QueryContext(r.Context(), `
		SELECT class_id, class_code, class_name, description, created_at
		FROM classes
		ORDER BY class_code`)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rows.Close()

	out := []models.Class{}
	for rows.Next() {
		var c models.Class
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			s.internalError(w, r, err)
			return
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

func (s *Server) createClass(w http.ResponseWriter, r *http.Request) {
	var in models.CreateClassRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	var c models.Class
	err := s.db().QueryRowContext(r.Context(), `
		INSERT INTO classes (class_code, class_name, description)
		VALUES ($1, $2, $3)
		RETURNING class_id, class_code, class_name, description, created_at`,
		strings.TrimSpace(in.Code), strings.TrimSpace(in.Name), nullIfEmpty(in.Description),
	).Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		s.writeError(w, r, catalogWriteError(err, "class_code"))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

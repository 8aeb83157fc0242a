package internal

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/models"
)

const userColumns = `user_id, username, full_name, role, is_active, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.IsActive,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Server) fetchUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if isNoRows(err) {
		return u, apperr.NotFound("user_not_found", "user not found")
	}
	return u, err
}

func (s *Server) cookieSecure() bool {
	return s.Config != nil && s.Config.CookieSecure
}

// loginUser handles user authentication. The token is returned in the body
// and as an HttpOnly cookie.
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var user models.User
	err := s.db().QueryRowContext(r.Context(), `
		SELECT `+userColumns+`, password_hash
		FROM users WHERE username = $1`, strings.TrimSpace(req.Username),
	).Scan(&user.ID, &user.Username, &user.FullName, &user.Role, &user.IsActive,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.PasswordHash)
	if isNoRows(err) {
		writeJSON(w, http.StatusUnauthorized, auth.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, auth.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if !user.IsActive {
		writeJSON(w, http.StatusForbidden, auth.ErrorResponse{Error: "Account is disabled", Code: "ACCOUNT_DISABLED"})
		return
	}

	now := time.Now()
	if _, err := s.db().ExecContext(r.Context(), `UPDATE users SET last_login_at = $1 WHERE user_id = $2`, now, user.ID); err != nil {
		// Log error but don't fail login
		s.Logger.Warn("update last_login_at", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	expiresAt := now.Add(s.JWTManager.Expiry())

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})

	s.Logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// logoutUser clears the session cookie. Bearer tokens simply expire.
func (s *Server) logoutUser(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user, err := scanUser(s.db().QueryRowContext(r.Context(), `
		INSERT INTO users (username, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		strings.TrimSpace(req.Username), string(hashedPassword), strings.TrimSpace(req.FullName), req.Role, active))
	if err != nil {
		s.writeError(w, r, catalogWriteError(err, "username"))
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// listUsers accepts role=a,b to filter by any of several roles.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	clauses := []string{}
	args := []any{}
	if v := strings.TrimSpace(r.URL.Query().Get("role")); v != "" {
		roles := splitCSV(v)
		for _, role := range roles {
			if !models.IsValidRole(role) {
				s.badRequest(w, r, "unknown role %q", role)
				return
			}
		}
		args = append(args, pq.Array(roles))
		clauses = append(clauses, "role = ANY($1)")
	}
	if params.q != "" {
		args = append(args, "%"+params.q+"%")
		n := len(args)
		clauses = append(clauses, "(username ILIKE $"+strconv.Itoa(n)+" OR full_name ILIKE $"+strconv.Itoa(n)+")")
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db().QueryRowContext(r.Context(), "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		s.internalError(w, r, err)
		return
	}

	allowedSort := map[string]string{
		"id":         "user_id",
		"username":   "username",
		"full_name":  "full_name",
		"role":       "role",
		"created_at": "created_at",
	}
	sqlStr := "SELECT " + userColumns + " FROM users" + where + buildOrderBy(params.sort, allowedSort) +
		params.limitOffset()

	rows, err := s.db().QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		s.internalError(w, r, err)
		return
	}
	sendListResponse(w, users, total, params)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.fetchUser(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req models.UpdateUserRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// An admin may not lock themselves out.
	if id == auth.UserIDFromContext(r.Context()) {
		if (req.Role != nil && *req.Role != models.RoleAdmin) || (req.IsActive != nil && !*req.IsActive) {
			s.conflict(w, r, "self_demotion", "cannot remove your own admin access")
			return
		}
	}

	var set updateSet
	if req.FullName != nil {
		set.add("full_name", strings.TrimSpace(*req.FullName))
	}
	if req.Role != nil {
		set.add("role", *req.Role)
	}
	if req.IsActive != nil {
		set.add("is_active", *req.IsActive)
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		set.add("password_hash", string(hash))
	}
	if set.empty() {
		s.badRequest(w, r, "no fields to update")
		return
	}

	sqlStr, args := set.build("users", "user_id", id, true, userColumns)
	u, err := scanUser(s.db().QueryRowContext(r.Context(), sqlStr, args...))
	if err != nil {
		if isNoRows(err) {
			s.notFound(w, r, "user")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// deleteUser removes an account. History rows keep the old user id.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if id == auth.UserIDFromContext(r.Context()) {
		s.conflict(w, r, "self_delete", "cannot delete your own account")
		return
	}

	u, err := s.fetchUser(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u.Role == models.RoleAdmin && u.IsActive {
		var admins int
		if err := s.db().QueryRowContext(r.Context(),
			`SELECT COUNT(*) FROM users WHERE role = $1 AND is_active`, models.RoleAdmin,
		).Scan(&admins); err != nil {
			s.internalError(w, r, err)
			return
		}
		if admins <= 1 {
			s.conflict(w, r, "last_admin", "cannot delete the last active admin")
			return
		}
	}

	if _, err := s.db().ExecContext(r.Context(), `DELETE FROM users WHERE user_id = $1`, id); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUserProfile returns the caller's own account.
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.fetchUser(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.FullName == nil {
		s.badRequest(w, r, "no fields to update")
		return
	}

	var set updateSet
	set.add("full_name", strings.TrimSpace(*req.FullName))
	sqlStr, args := set.build("users", "user_id", auth.UserIDFromContext(r.Context()), true, userColumns)
	u, err := scanUser(s.db().QueryRowContext(r.Context(), sqlStr, args...))
	if err != nil {
		if isNoRows(err) {
			s.notFound(w, r, "user")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	var currentHash string
	err := s.db().QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE user_id = $1`, userID).Scan(&currentHash)
	if isNoRows(err) {
		s.notFound(w, r, "user")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		s.badRequest(w, r, "current password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if _, err := s.db().ExecContext(r.Context(),
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE user_id = $2`, string(newHash), userID,
	); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/auth"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/crypto"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	OrgID    *int64 `json:"orgId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgetPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type addUsernameRequest struct {
	Name string `json:"name"`
}

type authResponse struct {
	Success bool           `json:"success"`
	Token   auth.TokenPair `json:"token"`
	User    userSummary    `json:"user"`
}

type userSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Org   *int64 `json:"org"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func summarize(user model.User) userSummary {
	return userSummary{ID: user.ID, Email: user.Email, Role: user.Role, Org: user.OrgID}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials", "Email and password are required")
		return
	}
	req.Role = strings.TrimSpace(strings.ToLower(req.Role))
	if !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role", "Role must be parent, student or admin")
		return
	}
	if req.Role != model.RoleAdmin && req.OrgID == nil {
		writeError(w, http.StatusBadRequest, "missing_org_id", "Organization is required")
		return
	}

	ctx := r.Context()
	if req.OrgID != nil {
		if _, err := s.store.GetOrg(ctx, *req.OrgID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
				return
			}
			s.serverError(w, r, "register.get_org", err)
			return
		}
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "user_exists", "User already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.serverError(w, r, "register.get_user", err)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, r, "register.hash", err)
		return
	}
	user, err := s.store.CreateUser(ctx, model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		OrgID:        req.OrgID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusBadRequest, "user_exists", "User already exists")
			return
		}
		s.serverError(w, r, "register.create", err)
		return
	}

	pair, err := s.issueTokens(r, user, nil)
	if err != nil {
		s.serverError(w, r, "register.tokens", err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Token: pair, User: summarize(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials", "Email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		s.serverError(w, r, "login.get_user", err)
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	pair, err := s.issueTokens(r, user, user.OrgID)
	if err != nil {
		s.serverError(w, r, "login.tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: pair, User: summarize(user)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "Refresh token is required")
		return
	}

	claims, err := s.issuer.Parse(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
		return
	}
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}
		s.serverError(w, r, "refresh.get_user", err)
		return
	}
	// Only the most recently issued refresh token is live.
	if user.RefreshTokenHash == nil || !crypto.TokenMatches(*user.RefreshTokenHash, req.RefreshToken) ||
		user.RefreshTokenExpiresAt == nil || time.Now().After(*user.RefreshTokenExpiresAt) {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
		return
	}

	pair, err := s.issueTokens(r, user, user.OrgID)
	if err != nil {
		s.serverError(w, r, "refresh.tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: pair, User: summarize(user)})
}

func (s *Server) handleForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req forgetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_email", "Email is required")
		return
	}

	ctx := r.Context()
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		s.serverError(w, r, "forget_password.get_user", err)
		return
	}

	tokenID, err := crypto.NewTokenID()
	if err != nil {
		s.serverError(w, r, "forget_password.token_id", err)
		return
	}
	token, err := s.issuer.NewResetToken(user.ID, tokenID)
	if err != nil {
		s.serverError(w, r, "forget_password.sign", err)
		return
	}
	if s.resetTokens != nil {
		if err := s.resetTokens.Remember(ctx, tokenID, user.ID, s.issuer.ResetTTL()); err != nil {
			s.serverError(w, r, "forget_password.remember", err)
			return
		}
	}

	link := s.cfg.ClientURL + "/reset-password/" + token
	err = s.mailer.SendPasswordReset(ctx, user.Email, link)
	s.metrics.mail.WithLabelValues(result(err)).Inc()
	if err != nil {
		s.log.WithError(err).WithField("op", "forget_password.send").Error("reset mail failed")
		writeError(w, http.StatusInternalServerError, "mail_failed", "Failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password reset email sent successfully"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "Token and password are required")
		return
	}

	claims, err := s.issuer.Parse(req.Token, auth.TypeReset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token", "Invalid or expired token")
		return
	}

	ctx := r.Context()
	if s.resetTokens != nil {
		userID, ok, err := s.resetTokens.Consume(ctx, claims.ID)
		if err != nil {
			s.serverError(w, r, "reset_password.consume", err)
			return
		}
		if !ok || userID != claims.UserID {
			writeError(w, http.StatusBadRequest, "invalid_token", "Invalid or expired token")
			return
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, r, "reset_password.hash", err)
		return
	}
	if err := s.store.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		s.serverError(w, r, "reset_password.update", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password reset successfully"})
}

func (s *Server) handleAddUsername(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req addUsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "Username is required")
		return
	}

	ctx := r.Context()
	taken, err := s.store.UsernameTaken(ctx, name)
	if err != nil {
		s.serverError(w, r, "add_username.taken", err)
		return
	}
	if taken {
		writeError(w, http.StatusBadRequest, "username_taken", "Username already taken")
		return
	}

	user, err := s.store.SetUsername(ctx, claims.UserID, name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			writeError(w, http.StatusBadRequest, "username_taken", "Username already taken")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "user_not_found", "User not found")
		default:
			s.serverError(w, r, "add_username.set", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Username added successfully",
		"user":    user,
	})
}

// issueTokens signs a new pair and stores the refresh digest, replacing the old one.
func (s *Server) issueTokens(r *http.Request, user model.User, orgID *int64) (auth.TokenPair, error) {
	pair, err := s.issuer.NewTokenPair(user.ID, user.Role, orgID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if err := s.store.SetRefreshToken(r.Context(), user.ID, crypto.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}

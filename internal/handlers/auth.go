package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/auth"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, log logrus.FieldLogger) *AuthHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		log:            log,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), strings.ToLower(loginReq.Email))
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			respondError(w, r, h.log, err)
			return
		}
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, auth.ErrUserInactive.Error())
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	// Last login is informational; a failed write does not fail the login.
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	h.issueTokens(w, r, http.StatusOK, user)
}

// Register creates a regular user account. Admins are provisioned out of band.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(r, &registerReq); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(registerReq.Name),
		Email:        strings.ToLower(strings.TrimSpace(registerReq.Email)),
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := h.userCollection.InsertUser(r.Context(), &user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	h.log.WithField("user_id", user.ID.Hex()).Info("User registered")
	h.issueTokens(w, r, http.StatusCreated, &user)
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, status, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type profileUpdate struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=80"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile updates the current user's name and email
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var updateReq profileUpdate
	if err := decodeJSON(r, &updateReq); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if updateReq.Name != "" {
		user.Name = strings.TrimSpace(updateReq.Name)
	}
	if updateReq.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(updateReq.Email))
	}

	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	writeMessage(w, "Profile updated successfully")
}

type passwordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var passwordReq passwordChange
	if err := decodeJSON(r, &passwordReq); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeMessage(w, "Password changed successfully")
}

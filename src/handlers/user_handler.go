package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Mlocoes/BolsaV2/src/config"
	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/security"
	"github.com/Mlocoes/BolsaV2/src/security/validation"
	"github.com/Mlocoes/BolsaV2/src/services"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

// HandleRegister creates a local account after validating the credentials.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := models.GetUserByUsername(database.DB, req.Username); err == nil {
		utils.SendJSONError(w, "Username already taken", http.StatusConflict)
		return
	}
	if _, err := models.GetUserByEmail(database.DB, req.Email); err == nil {
		utils.SendJSONError(w, "Email already registered", http.StatusConflict)
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email, AuthProvider: "local"}
	if err := user.HashPassword(req.Password); err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("Failed to create user", "username", req.Username, "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User registered", "userID", user.ID, "username", user.Username)
	utils.SendJSON(w, user, http.StatusCreated)
}

// HandleLogin checks the credentials, opens a session and returns the token
// pair.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := models.GetUserByUsername(database.DB, req.Username)
	if err != nil {
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(req.Password); err != nil {
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	resp, err := h.openSession(user, r)
	if err != nil {
		logger.L.Error("Failed to open session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User logged in", "userID", user.ID)
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *UserHandler) openSession(user *models.User, r *http.Request) (*loginResponse, error) {
	accessToken, err := h.authService.GenerateToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := models.CreateSession(database.DB, session); err != nil {
		return nil, err
	}

	return &loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(config.Cfg.AccessTokenExpiry.Seconds()),
		User:         user,
	}, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefreshToken exchanges a valid refresh token for a fresh token pair.
// The old session is replaced so a stolen refresh token can be used once at
// most.
func (h *UserHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	session, err := models.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}
	user, err := models.GetUserByID(database.DB, session.UserID)
	if err != nil {
		utils.SendJSONError(w, "Invalid session", http.StatusUnauthorized)
		return
	}

	if err := models.DeleteSessionByToken(database.DB, session.Token); err != nil {
		logger.L.Error("Failed to rotate session", "userID", user.ID, "error", err)
	}

	resp, err := h.openSession(user, r)
	if err != nil {
		logger.L.Error("Failed to open session on refresh", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

// HandleLogout deletes the session of the presented access token.
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := ""
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		tokenString = authHeader[7:]
	}
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	if err := models.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Error("Failed to delete session on logout", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// HandleRequestPasswordReset issues a reset token and mails the reset link.
// The response is identical whether or not the email is registered.
func (h *UserHandler) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	msg := map[string]string{"message": "If the email is registered, a reset link has been sent"}

	user, err := models.GetUserByEmail(database.DB, req.Email)
	if err != nil {
		utils.SendJSON(w, msg, http.StatusOK)
		return
	}

	token, err := generateResetToken()
	if err != nil {
		logger.L.Error("Failed to generate reset token", "error", err)
		utils.SendJSONError(w, "Failed to process request", http.StatusInternalServerError)
		return
	}
	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if err := models.SetPasswordResetToken(database.DB, user.ID, token, expiresAt); err != nil {
		logger.L.Error("Failed to store reset token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to process request", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, token); err != nil {
		logger.L.Error("Failed to send reset email", "userID", user.ID, "error", err)
	}
	utils.SendJSON(w, msg, http.StatusOK)
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword sets a new password for the holder of a valid reset
// token and revokes every existing session of the account.
func (h *UserHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := models.GetUserByPasswordResetToken(database.DB, req.Token)
	if err != nil {
		utils.SendJSONError(w, "Invalid or expired reset token", http.StatusUnauthorized)
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.L.Error("Failed to hash new password", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}
	if err := models.UpdatePassword(database.DB, user.ID, hashed); err != nil {
		logger.L.Error("Failed to update password", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}
	if err := models.DeleteSessionsByUser(database.DB, user.ID); err != nil {
		logger.L.Error("Failed to revoke sessions after reset", "userID", user.ID, "error", err)
	}

	logger.L.Info("Password reset completed", "userID", user.ID)
	utils.SendJSON(w, map[string]string{"message": "password updated"}, http.StatusOK)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/config"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
)

// LoginHandler starts the Google OAuth flow.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if config.GoogleOauthConfig.ClientID == "" || config.GoogleOauthConfig.ClientSecret == "" {
		http.Error(w, "OAuth configuration error", http.StatusInternalServerError)
		return
	}

	state := config.GenerateStateOauthCookie(w)
	url := config.GoogleOauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler completes the OAuth flow, upserts the user and
// issues a session.
func GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if err := config.VerifyStateOauthCookie(r); err != nil {
		http.Error(w, "Invalid OAuth state: "+err.Error(), http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	token, err := config.GoogleOauthConfig.Exchange(r.Context(), code)
	if err != nil {
		http.Error(w, "Failed to exchange token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	user, err := auth.GetGoogleUserInfo(token.AccessToken)
	if err != nil {
		http.Error(w, "Failed to get user info: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := auth.CreateOrUpdateUser(user, auth.ClientIP(r)); err != nil {
		http.Error(w, "Failed to create/update user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := auth.IssueSession(w, r, user); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, config.FrontendURL()+"/dashboard", http.StatusSeeOther)
}

// RegisterHandler creates an email/password account.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		http.Error(w, "Email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	if _, err := auth.GetUserByEmail(req.Email); err == nil {
		http.Error(w, "An account with this email already exists", http.StatusConflict)
		return
	}

	newUser, err := auth.CreateUser(req.Email, req.Name, req.Password)
	if err != nil {
		http.Error(w, "Error creating user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, newUser)
}

// LoginHandlerEmail authenticates an email/password account and issues a
// session.
func LoginHandlerEmail(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.GetUserByEmail(strings.TrimSpace(strings.ToLower(credentials.Email)))
	if err != nil || !auth.CheckPasswordHash(credentials.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	db.DB.Model(user).UpdateColumns(map[string]interface{}{
		"last_login_at":   &now,
		"last_ip_address": auth.ClientIP(r),
	})

	if err := auth.IssueSession(w, r, user); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// LogoutHandler drops the session and sends the browser back to the
// frontend.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w, r)
	http.Redirect(w, r, config.FrontendURL()+"/login", http.StatusSeeOther)
}

// GetCurrentUser returns the authenticated user's profile.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(uint)
	var user models.User
	if err := db.DB.Preload("Groups").First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

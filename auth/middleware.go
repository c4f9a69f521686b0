package auth

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/antonlindstrom/pgstore"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

// Store backs both the login session and the anonymous voter session.
// Postgres in production; tests swap in a cookie store.
var Store sessions.Store

const sessionName = "session-name"

func InitStore() {
	var err error
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	Store, err = pgstore.NewPGStore(connStr, []byte(os.Getenv("SESSION_KEY")))
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
}

// AuthMiddleware requires an authenticated session and injects the user id
// into the request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := Store.Get(r, sessionName)
		if err != nil {
			http.Error(w, "Invalid session", http.StatusInternalServerError)
			return
		}
		if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		userID := session.Values["user_id"].(uint)
		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuth injects the user id when an authenticated session is
// present and continues anonymously otherwise. Vote submission uses this:
// anyone may vote, but identified votes carry the user id.
func OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := Store.Get(r, sessionName)
		if err == nil {
			if auth, ok := session.Values["authenticated"].(bool); ok && auth {
				if userID, ok := session.Values["user_id"].(uint); ok {
					r = r.WithContext(context.WithValue(r.Context(), "userID", userID))
				}
			}
		}
		next.ServeHTTP(w, r)
	}
}

// RequireRole wraps AuthMiddleware and additionally checks the user's role
// against the given roles (admin always passes).
func RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		user, err := CurrentUser(r)
		if err != nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}
		if user.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// CurrentUser loads the authenticated user from the request context, or
// nil when the request is anonymous.
func CurrentUser(r *http.Request) (*models.User, error) {
	userID, ok := r.Context().Value("userID").(uint)
	if !ok {
		return nil, nil
	}
	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ClearSession(w http.ResponseWriter, r *http.Request) {
	session, _ := Store.Get(r, sessionName)
	session.Options.MaxAge = -1
	session.Values["authenticated"] = false
	session.Values["user_id"] = nil
	session.Save(r, w)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func CreateUser(email, name, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	}

	if err := db.DB.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

func GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueSession marks the session authenticated for the given user.
func IssueSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, err := Store.New(r, sessionName)
	if err != nil {
		return err
	}
	session.Values["authenticated"] = true
	session.Values["user_id"] = user.ID
	return session.Save(r, w)
}

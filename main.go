package main

import (
	"log"
	"net/http"
	"os"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/handlers"
	"github.com/Alegandi83/webdemocracy/middleware"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	db.InitDB()
	auth.InitStore()
	r := mux.NewRouter()

	// cors Middleware

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", os.Getenv("FRONTEND_URL")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	// Auth routes
	r.HandleFunc("/login", handlers.LoginHandler)
	r.HandleFunc("/auth/google/callback", handlers.GoogleCallbackHandler)
	r.HandleFunc("/logout", handlers.LogoutHandler)
	r.HandleFunc("/api/auth/register", handlers.RegisterHandler).Methods("POST")
	r.HandleFunc("/api/auth/login", handlers.LoginHandlerEmail).Methods("POST")
	r.HandleFunc("/api/auth/me", auth.AuthMiddleware(handlers.GetCurrentUser)).Methods("GET")

	// Survey management
	r.HandleFunc("/api/surveys", auth.RequireRole(handlers.CreateSurvey, models.RolePollster)).Methods("POST")
	r.HandleFunc("/api/surveys", auth.OptionalAuth(handlers.ListSurveys)).Methods("GET")
	r.HandleFunc("/api/surveys", auth.RequireRole(handlers.DeleteAllSurveys, models.RoleAdmin)).Methods("DELETE")
	r.HandleFunc("/api/surveys/{id}", auth.OptionalAuth(handlers.GetSurvey)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(handlers.UpdateSurvey)).Methods("PATCH")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(handlers.DeleteSurvey)).Methods("DELETE")
	r.HandleFunc("/api/surveys/{id}/active", auth.AuthMiddleware(handlers.ToggleSurveyActive)).Methods("PUT")

	// Voting and results; anyone may vote, identified or not
	r.HandleFunc("/api/surveys/{id}/vote",
		middleware.RateLimitByIP(middleware.VoteLimiter, auth.OptionalAuth(handlers.SubmitVote))).Methods("POST")
	r.HandleFunc("/api/surveys/{id}/results", auth.OptionalAuth(handlers.GetSurveyResults)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/stats", auth.OptionalAuth(handlers.GetSurveyStats)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/votes-timeline", auth.OptionalAuth(handlers.GetVotesTimeline)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/export", auth.RequireRole(handlers.ExportSurveyData, models.RolePollster)).Methods("GET")

	// Likes
	r.HandleFunc("/api/surveys/{id}/like", auth.OptionalAuth(handlers.LikeSurvey)).Methods("POST")
	r.HandleFunc("/api/surveys/{id}/like", auth.OptionalAuth(handlers.GetUserLike)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/like-stats", auth.OptionalAuth(handlers.GetLikeStats)).Methods("GET")

	// Tags
	r.HandleFunc("/api/tags", handlers.ListTags).Methods("GET")
	r.HandleFunc("/api/tags", auth.RequireRole(handlers.CreateTag, models.RoleAdmin)).Methods("POST")
	r.HandleFunc("/api/tags/{id}", auth.RequireRole(handlers.UpdateTag, models.RoleAdmin)).Methods("PATCH")
	r.HandleFunc("/api/tags/{id}", auth.RequireRole(handlers.DeleteTag, models.RoleAdmin)).Methods("DELETE")

	// Settings
	r.HandleFunc("/api/settings/{key}", handlers.GetSetting).Methods("GET")
	r.HandleFunc("/api/settings/{key}", auth.RequireRole(handlers.PutSetting, models.RoleAdmin)).Methods("PUT")

	// Groups
	r.HandleFunc("/api/groups", auth.AuthMiddleware(handlers.CreateGroup)).Methods("POST")
	r.HandleFunc("/api/groups", auth.AuthMiddleware(handlers.ListGroups)).Methods("GET")
	r.HandleFunc("/api/groups/{groupId}", auth.AuthMiddleware(handlers.GetGroup)).Methods("GET")
	r.HandleFunc("/api/groups/{groupId}", auth.AuthMiddleware(handlers.DeleteGroup)).Methods("DELETE")
	r.HandleFunc("/api/groups/{groupId}/members", auth.AuthMiddleware(handlers.AddGroupMember)).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/members/{userId}", auth.AuthMiddleware(handlers.RemoveGroupMember)).Methods("DELETE")

	log.Println("Server starting on :8080")
	log.Fatal(http.ListenAndServe(":8080", handler))
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// GetSetting reads one key-value setting. Unknown keys return an empty
// value instead of 404 so clients can treat settings as optional.
func GetSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var setting models.Setting
	err := db.DB.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, models.Setting{Key: key})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// PutSetting upserts one key-value setting. Admin only.
func PutSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var setting models.Setting
	err := db.DB.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.Setting{Key: key, Value: req.Value}
		if err := db.DB.Create(&setting).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, setting)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	setting.Value = req.Value
	if err := db.DB.Save(&setting).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

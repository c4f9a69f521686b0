package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
)

// ListTags returns all active tags; pass include_inactive=true for the full
// set.
func ListTags(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Order("name ASC")
	if r.URL.Query().Get("include_inactive") != "true" {
		q = q.Where("is_active = ?", true)
	}

	var tags []models.Tag
	if err := q.Find(&tags).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// CreateTag adds a new tag. Admin only; names are unique.
func CreateTag(w http.ResponseWriter, r *http.Request) {
	var tag models.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		http.Error(w, "Tag name is required", http.StatusBadRequest)
		return
	}
	if tag.Color == "" {
		tag.Color = "#6366f1"
	}
	tag.IsActive = true

	var existing models.Tag
	if err := db.DB.Where("name = ?", tag.Name).First(&existing).Error; err == nil {
		http.Error(w, "A tag with this name already exists", http.StatusConflict)
		return
	}

	if err := db.DB.Create(&tag).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// UpdateTag changes a tag's name, color or active flag. Admin only.
func UpdateTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid tag ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Color    *string `json:"color"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var tag models.Tag
	if err := db.DB.First(&tag, tagID).Error; err != nil {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			http.Error(w, "Tag name cannot be empty", http.StatusBadRequest)
			return
		}
		tag.Name = name
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}
	if req.IsActive != nil {
		tag.IsActive = *req.IsActive
	}

	if err := db.DB.Save(&tag).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag removes a tag and its survey links. Admin only.
func DeleteTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid tag ID", http.StatusBadRequest)
		return
	}

	var tag models.Tag
	if err := db.DB.First(&tag, tagID).Error; err != nil {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}

	if err := db.DB.Exec("DELETE FROM survey_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.DB.Delete(&tag).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tag deleted"})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/gorilla/mux"
)

// CreateGroup creates a user group owned by the caller.
func CreateGroup(w http.ResponseWriter, r *http.Request) {
	var group models.Group
	if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID := r.Context().Value("userID").(uint)
	group.CreatedBy = &userID

	if err := db.DB.Create(&group).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var creator models.User
	if err := db.DB.First(&creator, userID).Error; err == nil {
		db.DB.Model(&group).Association("Users").Append(&creator)
	}

	writeJSON(w, http.StatusCreated, group)
}

// ListGroups returns the groups the caller created or belongs to.
func ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(uint)
	var groups []models.Group

	err := db.DB.Where("created_by = ?", userID).
		Or("id IN (?)", db.DB.Table("user_groups").Select("group_id").Where("user_id = ?", userID)).
		Find(&groups).Error
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetGroup returns one group with its members.
func GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := db.DB.Preload("Users").First(&group, groupID).Error; err != nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// AddGroupMember adds a user to a group by email. Group owner or admin only.
func AddGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := db.DB.First(&group, groupID).Error; err != nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}
	if !ownsGroup(r, &group) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := db.DB.Model(&group).Association("Users").Append(&user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User added to group"})
}

// RemoveGroupMember removes a user from a group. Group owner or admin only.
func RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseUint(mux.Vars(r)["userId"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := db.DB.First(&group, groupID).Error; err != nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}
	if !ownsGroup(r, &group) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var user models.User
	if err := db.DB.First(&user, uint(userID)).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := db.DB.Model(&group).Association("Users").Delete(&user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User removed from group"})
}

// DeleteGroup removes a group and its memberships. Group owner or admin
// only.
func DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := db.DB.First(&group, groupID).Error; err != nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}
	if !ownsGroup(r, &group) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := db.DB.Model(&group).Association("Users").Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.DB.Delete(&group).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}

func ownsGroup(r *http.Request, group *models.Group) bool {
	user, err := auth.CurrentUser(r)
	if err != nil || user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return group.CreatedBy != nil && *group.CreatedBy == user.ID
}

func groupIDFromPath(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["groupId"], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

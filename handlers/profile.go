package handlers

import (
	"context"
	"net/http"

	profileRepo "courtwise/database/repository/profile"
	"courtwise/models"
	"courtwise/services/storage"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	Profiles profileRepo.ProfileRepository
	Avatars  storage.AvatarStorage
}

func NewProfileHandler(profiles profileRepo.ProfileRepository, avatars storage.AvatarStorage) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Avatars: avatars}
}

// GetProfileHandler handles GET /api/profile.
func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	_, st, ok := signedIn(c)
	if !ok {
		return
	}
	if st.Profile == nil {
		utils.JSONErrorCode(c, http.StatusNotFound, "not_found", "Profile not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": st.Profile, "user_name": st.UserName, "role": st.Role})
}

// UpdateProfileHandler handles PUT /api/profile. The role cannot be edited here.
func (h *ProfileHandler) UpdateProfileHandler(c *gin.Context) {
	s, st, ok := signedIn(c)
	if !ok {
		return
	}
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid profile update", err.Error())
		return
	}
	h.apply(c, s, st.User.ID, update)
}

// UploadAvatarHandler handles POST /api/profile/avatar with a multipart "avatar" file.
func (h *ProfileHandler) UploadAvatarHandler(c *gin.Context) {
	s, st, ok := signedIn(c)
	if !ok {
		return
	}
	if h.Avatars == nil {
		utils.JSONErrorCode(c, http.StatusServiceUnavailable, "not_configured", "Avatar storage is not configured", "")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarSize+1<<20)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Avatar file not provided", err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to read avatar", err.Error())
		return
	}
	defer file.Close()

	url, err := h.Avatars.UploadAvatar(c.Request.Context(), st.User.ID, file)
	if err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, s, st.User.ID, models.ProfileUpdate{AvatarURL: &url})
}

func (h *ProfileHandler) apply(c *gin.Context, s ClientSession, userID string, update models.ProfileUpdate) {
	logger := getLogger(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()

	profile, err := h.Profiles.Update(ctx, userID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.JSONErrorCode(c, http.StatusConflict, "username_taken", "Username is already taken", "")
			return
		}
		logger.Error("Failed to update profile", zap.String("userID", userID), zap.Error(err))
		respondError(c, err)
		return
	}
	st, err := s.ReloadProfile(ctx)
	if err != nil {
		logger.Warn("Profile saved but session not reloaded", zap.String("userID", userID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "state": st})
}

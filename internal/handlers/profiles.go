package handlers

import (
	"errors"
	"io"
	"net/http"

	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errProfileNotFound = "profile not found"
	errProfileName     = "invalid profile name"
	errProfileList     = "failed to list profiles"
	errProfileSave     = "failed to save profile"
)

// ProfileRequest creates a profile.
type ProfileRequest struct {
	Name    string `json:"name" example:"powersave"`
	Content string `json:"content" example:"safe_max=2000000\ntemp_max=80\n"`
}

// ProfileContent replaces the content of an existing profile.
type ProfileContent struct {
	Content string `json:"content" example:"temp_max=85\n"`
}

// profileName reads and validates the :name path parameter. It writes the error
// response itself and reports false when the name is unusable.
func (h *Handler) profileName(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if err := repository.ValidateProfileName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "status": statusError, "error": errProfileName, "message": errProfileName})
		return "", false
	}
	return name, true
}

// @Summary      List profiles with content
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ok, profiles"
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/profiles [get]
func (h *Handler) listProfiles(c *gin.Context) {
	entries, err := h.services.Profiles.Entries()
	if err != nil {
		if h.log != nil {
			h.log.Errorw("profiles_list_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": errProfileList})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profiles": entries})
}

// @Summary      Create a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        body  body      ProfileRequest  true  "Profile"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/profiles [post]
func (h *Handler) createProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := repository.ValidateProfileName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errProfileName})
		return
	}
	h.save(c, req.Name, req.Content, http.StatusOK)
}

// @Summary      Replace a profile's content
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        name  path      string          true  "Profile name"
// @Param        body  body      ProfileContent  true  "Content"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/profiles/{name} [put]
func (h *Handler) updateProfile(c *gin.Context) {
	name, ok := h.profileName(c)
	if !ok {
		return
	}
	var req ProfileContent
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errInvalidBodyPref + err.Error()})
		return
	}
	h.save(c, name, req.Content, http.StatusOK)
}

// @Summary      Save a profile from the raw request body
// @Tags         profiles
// @Accept       plain
// @Produce      json
// @Param        name  path      string  true  "Profile name"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      413   {object}  map[string]interface{}
// @Router       /api/profiles/{name} [post]
func (h *Handler) saveRawProfile(c *gin.Context) {
	name, ok := h.profileName(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, service.MaxProfileBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "status": statusError, "error": errInvalidBodyPref + err.Error()})
		return
	}
	h.save(c, name, string(body), http.StatusCreated)
}

func (h *Handler) save(c *gin.Context, name, content string, code int) {
	err := h.services.Profiles.Save(c.Request.Context(), name, content)
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "status": statusError, "error": err.Error()})
	case err != nil:
		if h.log != nil {
			h.log.Errorw("profile_save_failed", "err", err, "name", name)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "status": statusError, "error": errProfileSave})
	default:
		c.JSON(code, gin.H{"ok": true, "status": statusOK})
	}
}

// @Summary      Read a profile
// @Tags         profiles
// @Produce      plain
// @Param        name  path      string  true  "Profile name"
// @Success      200   {string}  string
// @Failure      404   {object}  map[string]string
// @Router       /api/profiles/{name} [get]
func (h *Handler) getProfile(c *gin.Context) {
	name, ok := h.profileName(c)
	if !ok {
		return
	}
	content, err := h.services.Profiles.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": errProfileNotFound})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

// @Summary      Delete a profile
// @Tags         profiles
// @Produce      json
// @Param        name  path      string  true  "Profile name"
// @Success      200   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /api/profiles/{name} [delete]
func (h *Handler) deleteProfile(c *gin.Context) {
	name, ok := h.profileName(c)
	if !ok {
		return
	}
	if err := h.services.Profiles.Delete(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "status": statusError, "error": errProfileNotFound, "message": errProfileNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": statusOK})
}

// @Summary      Apply a profile
// @Tags         profiles
// @Produce      json
// @Param        name  path      string  true  "Profile name"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/profiles/{name}/load [post]
func (h *Handler) loadProfile(c *gin.Context) {
	name, ok := h.profileName(c)
	if !ok {
		return
	}
	_, err := h.services.Profiles.Load(c.Request.Context(), name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": errProfileNotFound})
	case errors.Is(err, service.ErrOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": "temp_max must be 50-110"})
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load profile", "profile_load_failed", err, "name", name)
	default:
		c.JSON(http.StatusOK, gin.H{"status": statusOK, "loaded": name})
	}
}

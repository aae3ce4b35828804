package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/service"

	"github.com/gin-gonic/gin"
)

// uploadBodyLimit is the largest request body accepted by /api/skins/upload: the
// base64 form of the decoded cap plus room for the JSON envelope.
var uploadBodyLimit = int64(base64.StdEncoding.EncodedLen(service.MaxSkinUploadBytes)) + 4<<10

// SkinUpload is the body of POST /api/skins/upload.
type SkinUpload struct {
	// Archive bytes (tar.gz, tar or zip), standard base64
	Archive  string `json:"archive"`
	Activate bool   `json:"activate"`
}

// @Summary      List installed skins
// @Tags         skins
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ok, skins, active"
// @Failure      500  {object}  map[string]string
// @Router       /api/skins [get]
func (h *Handler) listSkins(c *gin.Context) {
	skins, err := h.services.Skins.List()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list skins", "skins_list_failed", err)
		return
	}
	active := ""
	if s, ok := h.services.Skins.Active(); ok {
		active = s.ID
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "skins": skins, "active": active})
}

// @Summary      Upload and install a skin
// @Description  The decoded archive is capped at 10 MB; the check happens before decoding.
// @Tags         skins
// @Accept       json
// @Produce      json
// @Param        body  body      SkinUpload  true  "Archive"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      413   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /api/skins/upload [post]
func (h *Handler) uploadSkin(c *gin.Context) {
	if c.Request.ContentLength > uploadBodyLimit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "archive too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uploadBodyLimit)

	var req SkinUpload
	if err := c.ShouldBindJSON(&req); err != nil || req.Archive == "" {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "archive too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "archive required"})
		return
	}
	enc := strings.TrimSpace(req.Archive)
	if base64.StdEncoding.DecodedLen(len(enc)) > service.MaxSkinUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "archive too large"})
		return
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid base64"})
		return
	}

	ctx := c.Request.Context()
	skin, err := h.services.Skins.Install(ctx, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("skin_upload_failed", "err", err, "bytes", len(raw))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "install failed: " + err.Error()})
		return
	}
	if req.Activate {
		if err := h.services.Skins.Activate(ctx, skin.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "id": skin.ID, "error": "installed but activation failed"})
			return
		}
		skin.Active = true
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": skin.ID, "skin": skin})
}

// @Summary      Activate, deactivate or remove a skin
// @Tags         skins
// @Produce      json
// @Param        id      path      string  true  "Skin id"
// @Param        action  path      string  true  "Action"  Enums(activate,deactivate,remove)
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]interface{}
// @Router       /api/skins/{id}/{action} [post]
func (h *Handler) skinAction(c *gin.Context) {
	id, action := c.Param("id"), c.Param("action")
	ctx := c.Request.Context()

	var err error
	switch action {
	case "activate":
		err = h.services.Skins.Activate(ctx, id)
	case "deactivate":
		err = h.services.Skins.Deactivate(ctx, id)
	case "remove":
		err = h.services.Skins.Remove(ctx, id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown action"})
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidName):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "skin not found"})
	case errors.Is(err, service.ErrSkinNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "skin is not active"})
	case err != nil:
		if h.log != nil {
			h.log.Errorw("skin_action_failed", "err", err, "id", id, "action", action)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "action": action})
	}
}

// @Summary      Restore the built-in UI
// @Tags         skins
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/skins/default [post]
func (h *Handler) resetSkin(c *gin.Context) {
	if err := h.services.Skins.Reset(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to reset skin", "skin_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package handlers

import (
	"net/http"
	"strings"

	"cpu_throttle/internal/repository"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK    = "ok"
	statusError = "error"

	errGetZones        = "failed to read thermal zones"
	errInvalidBodyPref = "invalid body: "
	errNotAllowed      = "command not allowed"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"status": statusError, "message": userMsg})
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	// One of: status, load-profile <name>, quit
	Cmd string `json:"cmd" example:"load-profile powersave"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Live status
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  cpu_throttle.Status
// @Router       /api/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Status())
}

// @Summary      Controller metrics
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  cpu_throttle.Metrics
// @Router       /api/metrics [get]
func (h *Handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Metrics())
}

// @Summary      Hardware limits
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  models.Limits
// @Router       /api/limits [get]
func (h *Handler) getLimits(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Limits())
}

// @Summary      Thermal zones
// @Tags         monitoring
// @Produce      json
// @Success      200  {array}   models.ThermalZone
// @Failure      500  {object}  map[string]string
// @Router       /api/zones [get]
func (h *Handler) getZones(c *gin.Context) {
	zones, err := h.services.Monitoring.Zones()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetZones, "zones_read_failed", err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// @Summary      Daemon version
// @Tags         daemon
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/daemon/version [get]
func (h *Handler) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.services.Monitoring.Version()})
}

// @Summary      Stop the daemon
// @Tags         daemon
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/daemon/shutdown [post]
func (h *Handler) shutdown(c *gin.Context) {
	h.services.Daemon.Shutdown(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "shutting down"})
}

// @Summary      Restart the daemon
// @Tags         daemon
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/daemon/restart [post]
func (h *Handler) restart(c *gin.Context) {
	h.services.Daemon.Restart(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "restarting"})
}

// @Summary      Run a control command
// @Description  Forwards a whitelisted command to the socket dispatcher and returns its text reply.
// @Tags         daemon
// @Accept       json
// @Produce      json
// @Param        body  body      CommandRequest  true  "Command"
// @Success      200   {object}  map[string]interface{}  "ok, resp, loaded"
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/command [post]
func (h *Handler) runCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errInvalidBodyPref + err.Error()})
		return
	}
	line := strings.TrimSpace(req.Cmd)
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	allowed := (verb == "status" && (arg == "" || arg == "json")) ||
		(verb == "load-profile" && arg != "") ||
		(verb == "quit" && arg == "")
	if !allowed || h.opts.Commands == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errNotAllowed})
		return
	}
	if verb == "load-profile" {
		if err := repository.ValidateProfileName(arg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errProfileName})
			return
		}
	}

	resp := h.opts.Commands.Execute(c.Request.Context(), line)
	ok := !strings.HasPrefix(resp, "ERROR")
	out := gin.H{"ok": ok, "resp": resp}
	if verb == "load-profile" && ok {
		out["loaded"] = arg
	}
	c.JSON(http.StatusOK, out)
}

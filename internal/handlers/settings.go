package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SettingRequest carries one value. Numbers may be sent as JSON numbers or strings;
// excluded-types takes a comma separated string.
type SettingRequest struct {
	Value json.RawMessage `json:"value" swaggertype:"string" example:"2400000"`
}

var errBadValue = errors.New("value must be an integer")

// @Summary      Update one setting
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        name  path      string          true  "Setting"  Enums(safe-max,safe-min,temp-max,thermal-zone,excluded-types,use-avg-temp)
// @Param        body  body      SettingRequest  true  "New value"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/settings/{name} [post]
func (h *Handler) setSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": "missing value"})
		return
	}
	ctx := c.Request.Context()
	svc := h.services.Settings
	name := c.Param("name")

	switch name {
	case "safe-max", "safe-min", "temp-max", "thermal-zone":
		v, err := intValue(req.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": err.Error()})
			return
		}
		switch name {
		case "safe-max":
			c.JSON(http.StatusOK, gin.H{"status": statusOK, "safe_max": svc.SetSafeMax(ctx, v)})
		case "safe-min":
			c.JSON(http.StatusOK, gin.H{"status": statusOK, "safe_min": svc.SetSafeMin(ctx, v)})
		case "temp-max":
			if err := svc.SetTempMax(ctx, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": "temp_max must be 50-110"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": statusOK, "temp_max": v})
		case "thermal-zone":
			if err := svc.SetThermalZone(ctx, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": "thermal_zone must be -1..100"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": statusOK, "thermal_zone": v})
		}
	case "excluded-types":
		var csv string
		if err := json.Unmarshal(req.Value, &csv); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": "value must be a string"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": statusOK, "excluded_types": svc.SetExcludedTypes(ctx, csv)})
	case "use-avg-temp":
		on, err := boolValue(req.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": err.Error()})
			return
		}
		svc.SetUseAvgTemp(ctx, on)
		c.JSON(http.StatusOK, gin.H{"status": statusOK, "use_avg_temp": on})
	default:
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": "unknown setting"})
	}
}

func intValue(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v, nil
		}
	}
	return 0, errBadValue
}

// boolValue accepts true/false, 0/1 and their string forms.
func boolValue(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	v, err := intValue(raw)
	if err != nil || (v != 0 && v != 1) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if pb, perr := strconv.ParseBool(s); perr == nil {
				return pb, nil
			}
		}
		return false, fmt.Errorf("value must be a boolean or 0/1")
	}
	return v == 1, nil
}

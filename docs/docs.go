// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/status": {
            "get": {"tags": ["monitoring"], "summary": "Live status", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/cpu_throttle.Status"}}}}
        },
        "/api/metrics": {
            "get": {"tags": ["monitoring"], "summary": "Controller metrics", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/cpu_throttle.Metrics"}}}}
        },
        "/api/limits": {
            "get": {"tags": ["monitoring"], "summary": "Hardware limits", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Limits"}}}}
        },
        "/api/zones": {
            "get": {"tags": ["monitoring"], "summary": "Thermal zones", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ThermalZone"}}},
                    "500": {"description": "Internal Server Error"}}}
        },
        "/api/events": {
            "get": {"tags": ["events"], "summary": "List journal events", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["THROTTLE", "SETTING", "PROFILE", "SKIN", "DAEMON"], "type": "string", "name": "type", "in": "query"}],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/stream": {
            "get": {"tags": ["monitoring"], "summary": "Live status stream",
                "parameters": [
                    {"type": "string", "name": "interval", "in": "query"},
                    {"type": "integer", "name": "interval_ms", "in": "query"}],
                "responses": {"101": {"description": "Switching Protocols"}}}
        },
        "/api/command": {
            "post": {"tags": ["daemon"], "summary": "Run a control command", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CommandRequest"}}],
                "responses": {"200": {"description": "ok, resp, loaded"}, "400": {"description": "Bad Request"}}}
        },
        "/api/settings/{name}": {
            "post": {"tags": ["settings"], "summary": "Update one setting", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"enum": ["safe-max", "safe-min", "temp-max", "thermal-zone", "excluded-types", "use-avg-temp"], "type": "string", "name": "name", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SettingRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/api/daemon/version": {
            "get": {"tags": ["daemon"], "summary": "Daemon version", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/daemon/shutdown": {
            "post": {"tags": ["daemon"], "summary": "Stop the daemon", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/daemon/restart": {
            "post": {"tags": ["daemon"], "summary": "Restart the daemon", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/profiles": {
            "get": {"tags": ["profiles"], "summary": "List profiles with content", "produces": ["application/json"],
                "responses": {"200": {"description": "ok, profiles"}, "500": {"description": "Internal Server Error"}}},
            "post": {"tags": ["profiles"], "summary": "Create a profile", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ProfileRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/profiles/{name}": {
            "get": {"tags": ["profiles"], "summary": "Read a profile", "produces": ["text/plain"],
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}, "404": {"description": "Not Found"}}},
            "post": {"tags": ["profiles"], "summary": "Save a profile from the raw request body", "consumes": ["text/plain"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}}},
            "put": {"tags": ["profiles"], "summary": "Replace a profile's content", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ProfileContent"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "delete": {"tags": ["profiles"], "summary": "Delete a profile", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/profiles/{name}/load": {
            "post": {"tags": ["profiles"], "summary": "Apply a profile", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/api/skins": {
            "get": {"tags": ["skins"], "summary": "List installed skins", "produces": ["application/json"],
                "responses": {"200": {"description": "ok, skins, active"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/skins/upload": {
            "post": {"tags": ["skins"], "summary": "Upload and install a skin", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SkinUpload"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/skins/default": {
            "post": {"tags": ["skins"], "summary": "Restore the built-in UI", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/skins/{id}/{action}": {
            "post": {"tags": ["skins"], "summary": "Activate, deactivate or remove a skin", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"enum": ["activate", "deactivate", "remove"], "type": "string", "name": "action", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        }
    },
    "definitions": {
        "cpu_throttle.Status": {
            "type": "object",
            "properties": {
                "temperature": {"type": "integer"},
                "frequency": {"type": "integer"},
                "safe_min": {"type": "integer"},
                "safe_max": {"type": "integer"},
                "temp_max": {"type": "integer"},
                "sensor": {"type": "string"},
                "thermal_zone": {"type": "integer"},
                "use_avg_temp": {"type": "boolean"},
                "excluded_types": {"type": "array", "items": {"type": "string"}},
                "active_skin": {"type": "string"},
                "dry_run": {"type": "boolean"},
                "updated_at": {"type": "string"}
            }
        },
        "cpu_throttle.Metrics": {
            "type": "object",
            "properties": {
                "temperature": {"type": "integer"},
                "frequency": {"type": "integer"},
                "cpu_min_freq": {"type": "integer"},
                "cpu_max_freq": {"type": "integer"},
                "effective_max": {"type": "integer"},
                "throttle_start": {"type": "integer"},
                "last_throttle_temp": {"type": "integer"},
                "ticks": {"type": "integer"},
                "freq_writes": {"type": "integer"},
                "uptime_s": {"type": "number"}
            }
        },
        "models.Limits": {
            "type": "object",
            "properties": {
                "cpu_min_freq": {"type": "integer"},
                "cpu_max_freq": {"type": "integer"},
                "temp_sensor": {"type": "string"}
            }
        },
        "models.ThermalZone": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "type": {"type": "string"},
                "temperature": {"type": "integer"},
                "excluded": {"type": "boolean"}
            }
        },
        "handlers.CommandRequest": {
            "type": "object",
            "properties": {"cmd": {"type": "string", "example": "load-profile powersave"}}
        },
        "handlers.SettingRequest": {
            "type": "object",
            "properties": {"value": {"type": "string", "example": "2400000"}}
        },
        "handlers.ProfileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "powersave"},
                "content": {"type": "string", "example": "safe_max=2000000\ntemp_max=80\n"}
            }
        },
        "handlers.ProfileContent": {
            "type": "object",
            "properties": {"content": {"type": "string", "example": "temp_max=85\n"}}
        },
        "handlers.SkinUpload": {
            "type": "object",
            "properties": {
                "archive": {"type": "string"},
                "activate": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "2.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "cpu_throttle API",
	Description:      "Thermal throttling daemon: live status, settings, profiles and UI skins.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package handlers

import (
	_ "embed"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"cpu_throttle/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// defaultIndex is served when neither the active skin nor the web root has an index.
//
//go:embed web/index.html
var defaultIndex []byte

const indexFile = "index.html"

func (h *Handler) serveIndex(c *gin.Context) {
	if h.serveOverride(c, indexFile) || h.serveFrom(c, h.opts.WebRoot, indexFile) {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", defaultIndex)
}

// serveAsset serves name from the active skin when it provides one, else from the web root.
func (h *Handler) serveAsset(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.serveOverride(c, name) || h.serveFrom(c, h.opts.WebRoot, name) {
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": "not found"})
	}
}

// serveSkinFile serves /skins/<id>/<file>. Scripts are only served for skins whose
// manifest sets allow_extra_js.
func (h *Handler) serveSkinFile(c *gin.Context) {
	id := c.Param("id")
	skin, ok := h.findSkin(id)
	file := strings.TrimPrefix(c.Param("file"), "/")
	if !ok || file == "" || (isScript(file) && !skin.AllowExtraJS) || !h.serveFrom(c, skin.Path, file) {
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": "not found"})
	}
}

func (h *Handler) serveOverride(c *gin.Context, name string) bool {
	skin, ok := h.services.Skins.Active()
	if !ok || (isScript(name) && !skin.AllowExtraJS) {
		return false
	}
	return h.serveFrom(c, skin.Path, name)
}

func (h *Handler) findSkin(id string) (models.Skin, bool) {
	skins, err := h.services.Skins.List()
	if err != nil {
		return models.Skin{}, false
	}
	for _, s := range skins {
		if s.ID == id {
			return s, true
		}
	}
	return models.Skin{}, false
}

// serveFrom writes dir/name when it is a regular file. name is cleaned so it cannot
// leave dir.
func (h *Handler) serveFrom(c *gin.Context, dir, name string) bool {
	if dir == "" {
		return false
	}
	p := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	st, err := h.static.Stat(p)
	if err != nil || st.IsDir() {
		return false
	}
	data, err := afero.ReadFile(h.static, p)
	if err != nil {
		return false
	}
	ctype := mime.TypeByExtension(filepath.Ext(p))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	c.Data(http.StatusOK, ctype, data)
	return true
}

func isScript(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".js")
}

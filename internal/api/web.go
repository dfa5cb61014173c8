package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Title": "Task Tracker"})
}

// handleStatic serves embedded assets. Directories are not listed.
func (s *Server) handleStatic(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filepath"), "/")
	info, err := fs.Stat(s.static, name)
	if name == "" || err != nil || info.IsDir() {
		abort(c, newNotFoundError("file not found"))
		return
	}
	c.FileFromFS(name, http.FS(s.static))
}

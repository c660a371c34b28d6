package server

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves a built web client from the configured directory.
// Unknown GET paths outside the API fall back to index.html so client-side
// routes work. Files under assets/ are content-hashed and cached for good.
func (s *Server) mountStatic() {
	if s.staticDir == "" {
		s.logger.Info("static directory not configured; API only mode")
		return
	}

	root := os.DirFS(s.staticDir)
	if _, err := fs.Stat(root, "index.html"); err != nil {
		s.logger.Warn("web client not found; API only mode", slog.String("path", s.staticDir))
		return
	}
	files := http.FileServer(http.FS(root))

	s.engine.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if strings.HasPrefix(urlPath, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}

		name := strings.TrimPrefix(path.Clean(urlPath), "/")
		if name != "" && name != "index.html" {
			if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
				if strings.HasPrefix(name, "assets/") {
					c.Header("Cache-Control", "public, max-age=31536000, immutable")
				}
				files.ServeHTTP(c.Writer, c.Request)
				return
			}
		}

		index, err := fs.ReadFile(root, "index.html")
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
}

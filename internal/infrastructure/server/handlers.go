package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/fsplane/internal/domain/controlplane"
)

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, controlplane.ErrNotReady) || errors.Is(err, controlplane.ErrStopped) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	state := s.plane.State()
	status := http.StatusOK
	if state != controlplane.StateReady {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": state.String(),
	})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.plane.Statistics()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) volumes(c *gin.Context) {
	roots, err := s.plane.Volumes()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volumes": roots, "count": len(roots)})
}

func (s *Server) watched(c *gin.Context) {
	roots, err := s.plane.WatchedRoots()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roots": roots, "count": len(roots)})
}

func (s *Server) accessLog(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.plane.AccessLog(limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

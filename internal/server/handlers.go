package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alnah/go-texsnap"
)

// kindKey stores the failure kind for the request logger.
const kindKey = "kind"

var errBusy = errors.New("server busy: no render slot available")

func (s *Server) handleCompile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)

	var req texsnap.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, texsnap.KindInvalidRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, texsnap.KindInvalidRequest, err.Error())
		return
	}

	if s.limiter != nil {
		if err := s.acquire(c.Request.Context()); err != nil {
			s.fail(c, http.StatusServiceUnavailable, texsnap.KindUnexpected, errBusy.Error())
			return
		}
		defer s.limiter.Release()
	}

	res, err := s.renderer.Render(c.Request.Context(), req)
	resp := texsnap.NewResponse(res, err)
	status := http.StatusOK
	if resp.Kind == texsnap.KindInvalidRequest {
		status = http.StatusBadRequest
	}
	if resp.Kind != "" {
		c.Set(kindKey, resp.Kind)
	}
	c.JSON(status, resp)
}

func (s *Server) acquire(ctx context.Context) error {
	if s.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queueTimeout)
		defer cancel()
	}
	return s.limiter.Acquire(ctx)
}

func (s *Server) handleReadiness(c *gin.Context) {
	rep := s.renderer.Readiness(c.Request.Context())
	status := http.StatusOK
	if !rep.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, rep)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (s *Server) fail(c *gin.Context, status int, kind texsnap.Kind, msg string) {
	c.Set(kindKey, kind)
	c.JSON(status, texsnap.Response{Error: msg, Kind: kind})
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/snapngo/snapngo/api/rest/bind"
	"github.com/snapngo/snapngo/api/rest/controller/assignment"
	"gorm.io/gorm"
)

// Server is snapngo's HTTP API.
type Server struct {
	echo *echo.Echo
}

// New builds the API. sender offers batches posted to /v1/batches; a nil
// sender records assignments without offering them.
func New(conn *gorm.DB, sender assignment.Sender) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// health
	e.GET("/health", Health(conn))

	// metrics
	prometheus.NewPrometheus("snapngo", nil).Use(e)

	// REST
	bind.All(e.Group("/v1"), conn, sender)

	return &Server{echo: e}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on port until Shutdown is called.
func (s *Server) Start(port int) error {
	if err := s.echo.Start(fmt.Sprintf(":%v", port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

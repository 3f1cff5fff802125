// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the gateway over HTTP: the chat endpoint, the lab
// and medication analysis endpoints, the report generator, and health.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/medexa/gateway/internal/chat"
	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/heartbeat"
	"github.com/medexa/gateway/internal/router"
)

// Server is the HTTP front of the gateway.
type Server struct {
	cfg      *config.Config
	pipeline *chat.Pipeline
	stats    *router.StatsTracker
	monitor  *heartbeat.Monitor

	httpSrv *http.Server
}

// NewServer wires the HTTP layer. monitor may be nil when heartbeat
// monitoring is disabled.
func NewServer(cfg *config.Config, pipeline *chat.Pipeline, stats *router.StatsTracker, monitor *heartbeat.Monitor) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		stats:    stats,
		monitor:  monitor,
	}

	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(), Recovery())
	engine.MaxMultipartMemory = maxImageBytes

	engine.POST("/get", s.handleChat)
	engine.POST("/analyze_report", s.handleAnalyzeReport)
	engine.POST("/interactions", s.handleInteractions)
	engine.POST("/report", s.handleReport)
	engine.GET("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Infof("HTTP server listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the gin engine, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

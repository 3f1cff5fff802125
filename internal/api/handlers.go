// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medexa/gateway/internal/heartbeat"
	"github.com/medexa/gateway/internal/router"
)

// maxImageBytes caps uploaded report and prescription images.
const maxImageBytes = 10 << 20

// handleChat implements the chat endpoint. It accepts multipart form data
// with a "msg" field, an optional "image" file, and an optional
// "session_id"; the reply is plain text, keeping the original client
// contract (including the emergency trigger sentinel).
func (s *Server) handleChat(c *gin.Context) {
	msg := c.PostForm("msg")
	sessionID := c.PostForm("session_id")

	image, mime, err := readImage(c, "image")
	if err != nil {
		c.String(http.StatusBadRequest, "invalid image upload")
		return
	}
	if msg == "" && len(image) == 0 {
		c.String(http.StatusBadRequest, "empty message")
		return
	}

	out, err := s.pipeline.Ask(c.Request.Context(), sessionID, msg, image, mime)
	if err != nil {
		s.routeError(c, err)
		return
	}
	c.String(http.StatusOK, out.Answer)
}

// handleAnalyzeReport analyzes an uploaded lab report image.
func (s *Server) handleAnalyzeReport(c *gin.Context) {
	image, mime, err := readImage(c, "image")
	if err != nil {
		c.String(http.StatusBadRequest, "invalid image upload")
		return
	}
	if len(image) == 0 {
		c.String(http.StatusBadRequest, "No report provided.")
		return
	}

	out, err := s.pipeline.AnalyzeReport(c.Request.Context(), image, mime)
	if err != nil {
		s.routeError(c, err)
		return
	}
	c.String(http.StatusOK, out.Answer)
}

// handleInteractions checks a medication list, given as a "medications"
// form field or a prescription image, for drug-drug interactions.
func (s *Server) handleInteractions(c *gin.Context) {
	medications := c.PostForm("medications")
	image, mime, err := readImage(c, "image")
	if err != nil {
		c.String(http.StatusBadRequest, "invalid image upload")
		return
	}
	if medications == "" && len(image) == 0 {
		c.String(http.StatusBadRequest, "No medication data provided.")
		return
	}

	out, err := s.pipeline.CheckInteractions(c.Request.Context(), medications, image, mime)
	if err != nil {
		s.routeError(c, err)
		return
	}
	c.String(http.StatusOK, out.Answer)
}

// handleReport turns clinical notes into a structured JSON report.
func (s *Server) handleReport(c *gin.Context) {
	var body struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clinical notes are required"})
		return
	}

	report, err := s.pipeline.GenerateReport(c.Request.Context(), body.Notes)
	if err != nil {
		s.routeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleHealth reports provider health and routing statistics.
func (s *Server) handleHealth(c *gin.Context) {
	overall := "healthy"
	var providers map[string]*heartbeat.HealthStatus
	if s.monitor != nil {
		providers = s.monitor.Statuses()
		for _, p := range providers {
			switch p.Status {
			case heartbeat.StatusUnavailable:
				overall = "degraded"
			case heartbeat.StatusDegraded:
				if overall == "healthy" {
					overall = "degraded"
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"providers": providers,
		"routing":   s.stats.All(),
	})
}

// routeError maps pipeline and router failures onto HTTP statuses.
func (s *Server) routeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, router.ErrNoCapableProvider):
		c.String(http.StatusServiceUnavailable, "no provider can handle this request")
	case router.IsExhausted(err):
		c.String(http.StatusBadGateway, "all providers failed, please try again")
	case router.IsCancelled(err):
		// Client went away; nothing useful to send.
		c.Status(499)
	case errors.Is(err, router.ErrEmptyRequest):
		c.String(http.StatusBadRequest, "empty message")
	default:
		c.String(http.StatusInternalServerError, "internal server error")
	}
}

// readImage extracts an optional uploaded image, returning its bytes and
// MIME type. A missing file is not an error.
func readImage(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if fh.Size > maxImageBytes {
		return nil, "", errors.New("image too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, imageMIME(fh, data), nil
}

func imageMIME(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}

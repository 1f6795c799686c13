// Copyright 2025 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
	"github.com/jaycherian/gcp-go-story-weaver/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Add OpenTelemetry middleware
	r.Use(otelgin.Middleware("story-weaver-server"))

	// Use a default, permissive CORS configuration for development. This
	// allows all origins, methods, and headers, which keeps the local
	// frontend and backend talking without extra setup.
	r.Use(cors.Default())

	// Create the "/api/v1" group
	apiV1 := r.Group("/api/v1")
	{
		StoryRouter(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// Start the server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// StoryRouter sets up the routes for story generation and retrieval.
func StoryRouter(r *gin.RouterGroup) {
	stories := r.Group("/stories")
	{
		// Generate a new story experience synchronously. Degraded results
		// (placeholder assets) are still a 200; only validation, guardrail
		// blocks, and text backend exhaustion are failures.
		stories.POST("", func(c *gin.Context) {
			var request model.GenerationRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			experience, err := state.storyWorkflow.Run(c.Request.Context(), &request)
			if err != nil {
				status, body := classifyRequestError(err)
				c.JSON(status, body)
				return
			}
			c.JSON(http.StatusOK, experience)
		})

		stories.GET("", func(c *gin.Context) {
			count, err := strconv.Atoi(c.DefaultQuery("count", "20"))
			if err != nil || count < 1 {
				count = 20
			}
			out, err := state.experienceService.List(c, count)
			if err != nil {
				log.Printf("Error listing experiences: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		stories.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			out, err := state.experienceService.Get(c, id)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Signed URLs for the stored assets, valid for 15 minutes. Local
		// fallback paths are passed through as-is.
		stories.GET("/:id/assets", func(c *gin.Context) {
			id := c.Param("id")
			experience, err := state.experienceService.Get(c, id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
				return
			}

			urls, err := state.experienceService.SignedAssetURLs(c, experience, 15*time.Minute)
			if err != nil {
				log.Printf("Error signing asset URLs for %s: %v\n", id, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate asset URLs"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"session_id": id, "urls": urls})
		})
	}
}

// classifyRequestError maps a workflow failure to an HTTP status and body.
func classifyRequestError(err error) (int, gin.H) {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, gin.H{
			"error": validation.Error(),
			"field": validation.Field,
		}
	}
	var violation *model.GuardrailViolation
	if errors.As(err, &violation) {
		return http.StatusUnprocessableEntity, gin.H{
			"error":      violation.Error(),
			"checkpoint": violation.Checkpoint,
			"reasons":    violation.Reasons,
		}
	}
	var upstream *model.UpstreamUnavailable
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, gin.H{
			"error":   upstream.Error(),
			"backend": upstream.Backend,
		}
	}
	if errors.Is(err, model.ErrInvalidPayload) {
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

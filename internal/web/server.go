// Package web serves the operational HTTP surface: health, queue depth and
// daily stats.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thirdcoast.systems/reelgrab/internal/db"
	"thirdcoast.systems/reelgrab/internal/dispatch"
)

const healthTimeout = 3 * time.Second

type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context, day time.Time) (db.DailyStats, error)
}

type Webserver struct {
	*echo.Echo
	store    Store
	queue    *dispatch.Queue
	registry *dispatch.Registry
	started  time.Time
}

func NewWebserver(store Store, queue *dispatch.Queue, registry *dispatch.Registry) *Webserver {
	s := &Webserver{
		Echo:     echo.New(),
		store:    store,
		queue:    queue,
		registry: registry,
		started:  time.Now(),
	}
	s.setupMiddleware()
	s.registerRoutes()
	return s
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

func (s *Webserver) registerRoutes() {
	s.GET("/healthz", s.HandleHealth)
	s.GET("/api/queue", s.HandleQueue)
	s.GET("/api/stats", s.HandleStats)
}

// Run serves on addr until ctx ends.
func (s *Webserver) Run(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := s.Start(addr); err != nil {
		// Echo returns an error on Shutdown; treat it as normal if ctx is done.
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func (s *Webserver) HandleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
		"uptime":   time.Since(s.started).Truncate(time.Second).String(),
	})
}

type queueResponse struct {
	Depth      int `json:"depth"`
	Pending    int `json:"pending"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
}

func (s *Webserver) HandleQueue(c echo.Context) error {
	counts := s.registry.Counts()
	return c.JSON(http.StatusOK, queueResponse{
		Depth:      s.queue.Len(),
		Pending:    counts[dispatch.StatePending],
		Queued:     counts[dispatch.StateQueued],
		Processing: counts[dispatch.StateProcessing],
	})
}

// HandleStats returns the counts for ?date=YYYY-MM-DD, today when omitted.
func (s *Webserver) HandleStats(c echo.Context) error {
	day := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		}
		day = parsed
	}

	st, err := s.store.Stats(c.Request().Context(), day)
	if err != nil {
		slog.Error("failed to load stats", "date", day.Format(time.DateOnly), "error", err)
		return c.String(http.StatusInternalServerError, "failed to load stats")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"date":         day.Format(time.DateOnly),
		"active_users": st.ActiveUsers,
		"videos":       st.Videos,
	})
}

package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/BioHazard786/Warpcast/internal/version"
	"github.com/BioHazard786/Warpcast/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browser viewers are served from other origins; the relay holds no
	// cookies or credentials worth protecting.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewServer registers the relay routes on a fresh echo instance.
func NewServer(hub *Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Relay is healthy.")
	})
	e.GET("/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, struct {
			Version string `json:"version"`
			StatsSnapshot
		}{Version: version.Version, StatsSnapshot: hub.Snapshot()})
	})
	e.GET("/ws", ServeWs(hub))

	return e
}

// ServeWs upgrades the request and attaches the connection to the hub. The
// frame codec is selected with ?encoding=json|msgpack.
func ServeWs(hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		codec, err := wire.CodecByName(c.QueryParam("encoding"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			hub.logger.Warn("failed to upgrade connection", "err", err)
			return nil
		}

		client := NewClient(hub, conn, codec)
		select {
		case hub.Register <- client:
		case <-hub.done:
			conn.Close()
			return nil
		}

		go client.WritePump()
		go client.ReadPump()
		return nil
	}
}

// ListenAndServe runs the hub and the HTTP server until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, hub *Hub) error {
	go hub.Run(ctx)

	e := NewServer(hub)
	errCh := make(chan error, 1)
	go func() {
		hub.logger.Info("relay listening", "addr", addr, "version", version.Version)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

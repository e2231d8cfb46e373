package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphadesk/tradedash/internal/dashboard"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// LiveMessage is one websocket push: a view or an error
type LiveMessage struct {
	Status int             `json:"status"`
	View   *dashboard.View `json:"view,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// LiveHandler pushes the dashboard view over a websocket at a fixed interval
type LiveHandler struct {
	dash     *DashboardHandler
	upgrader websocket.Upgrader
	interval time.Duration
}

// NewLiveHandler creates a new live handler
func NewLiveHandler(dash *DashboardHandler, interval time.Duration) *LiveHandler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LiveHandler{
		dash: dash,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		interval: interval,
	}
}

// Serve upgrades the connection and streams views until the client leaves
// GET /ws?source=...
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.dash.logger.WithError(err).Warn("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	source := h.dash.source(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reader: only used to notice the client going away
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.push(ctx, conn, source); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := h.push(ctx, conn, source); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) push(ctx context.Context, conn *websocket.Conn, source string) error {
	msg := LiveMessage{Status: http.StatusOK}

	view, err := h.dash.service.Build(ctx, source)
	if err != nil {
		msg.Status = dashboard.StatusCode(err)
		msg.Error = dashboard.Message(err)
	} else {
		msg.View = view
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.dash.logger.WithError(err).Debug("Websocket write failed")
		return err
	}
	return nil
}

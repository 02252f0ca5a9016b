package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StreamComplaint godoc
// @ID          streamComplaint
// @Summary     Live updates for one complaint
// @Description Upgrades to a WebSocket that pushes change events for the complaint:
// @Description complaint UPDATE (status changes) and message INSERT (new replies).
// @Description Each frame is one JSON ChangeEvent. Client frames are ignored.
// @Tags        Complaints
// @Param       id   path  string  true  "Complaint ID"
// @Success     101  "Switching Protocols"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /complaints/{id}/stream [get]
func (h *Handlers) StreamComplaint(c *gin.Context) {
	cmp, err := h.track.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, "")
		return
	}
	lg := middleware.LoggerFrom(c)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	match := realtime.ForComplaint(cmp.ID)
	updates, err := h.events.Subscribe(ctx, domain.TableComplaints, domain.EventUpdate, match)
	if err != nil {
		failService(c, err, "")
		return
	}
	defer updates.Close()
	inserts, err := h.events.Subscribe(ctx, domain.TableMessages, domain.EventInsert, match)
	if err != nil {
		failService(c, err, "")
		return
	}
	defer inserts.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		lg.Warn().Err(err).Msg("stream upgrade failed")
		return
	}
	defer conn.Close()
	defer middleware.TrackStream(c)()

	go readPump(conn, cancel)
	if err := writePump(ctx, conn, updates, inserts); err != nil {
		lg.Debug().Err(err).Msg("stream closed")
	}
}

// readPump drains client frames so pongs and close frames are processed,
// and cancels the stream when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards events until ctx ends or a subscription closes,
// pinging every pingPeriod.
func writePump(ctx context.Context, conn *websocket.Conn, subs ...*realtime.Subscription) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := make(chan domain.ChangeEvent)
	ended := make(chan struct{}, len(subs))
	for _, s := range subs {
		go func(s *realtime.Subscription) {
			defer func() { ended <- struct{}{} }()
			for ev := range s.Events() {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return ctx.Err()
		case <-ended:
			// The broker went away; the client should reconnect.
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return nil
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

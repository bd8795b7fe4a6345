package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve returns an HTTP handler that exposes gw over websocket connections.
// Each request runs in its own goroutine so a slow analysis does not hold up
// table queries.
func Serve(gw Gateway, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		logger.Info().Str("remote", r.RemoteAddr).Msg("gateway client connected")
		serveConn(r.Context(), conn, gw, logger)
		logger.Info().Str("remote", r.RemoteAddr).Msg("gateway client disconnected")
	}
}

func serveConn(ctx context.Context, conn *websocket.Conn, gw Gateway, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
	}()

	send := func(resp response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Debug().Err(err).Uint64("id", resp.ID).Msg("write response failed")
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			send(response{ID: req.ID, Error: Errorf(KindParse, "invalid request: %v", err)})
			continue
		}
		wg.Add(1)
		go func(req request) {
			defer wg.Done()
			start := time.Now()
			res := gw.Call(ctx, req.Command, req.Params)
			ev := logger.Debug()
			if !res.OK() {
				ev = logger.Warn().Str("kind", string(res.Err.Kind)).Str("error", res.Err.Message)
			}
			ev.Str("command", string(req.Command)).Dur("took", time.Since(start)).Msg("gateway call")
			if res.OK() {
				payload := res.Payload
				send(response{ID: req.ID, Payload: &payload})
			} else {
				send(response{ID: req.ID, Error: res.Err})
			}
		}(req)
	}
}

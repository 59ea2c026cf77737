// Package ws is the websocket transport: each connection is a duplex JSON
// event channel carrying request/response envelopes per the external
// interface, handed to the Request Dispatcher verbatim.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ov-vocsdb/vocsdb/internal/dispatch"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = (pongTimeout * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming HTTP requests to websocket connections and pumps
// request/response envelopes between the socket and the Dispatcher.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	httpServer *http.Server
}

func NewServer(d *dispatch.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dispatcher: d, logger: logger}
}

func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	connID := uuid.NewString()
	s.logger.Info("websocket connection opened", slog.String("conn", connID))
	s.serve(connID, conn)
}

// serve pumps envelopes for one connection until it closes. Writes are
// serialized through a mutex since gorilla/websocket forbids concurrent
// writers on the same connection, and responses may be produced out of
// request order by concurrent op handling.
func (s *Server) serve(connID string, conn *websocket.Conn) {
	defer conn.Close()
	defer s.dispatcher.Disconnect(connID)

	var writeMu sync.Mutex
	writeResponse := func(resp dispatch.Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("websocket write failed", slog.String("conn", connID), slog.String("error", err.Error()))
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	stopPing := make(chan struct{})
	go s.pingLoop(conn, &writeMu, stopPing)
	defer close(stopPing)

	for {
		var req dispatch.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", slog.String("conn", connID), slog.String("error", err.Error()))
			}
			return
		}
		go func(req dispatch.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			resp := s.dispatcher.Handle(ctx, connID, req)
			writeResponse(resp)
		}(req)
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, writeMu *sync.Mutex, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

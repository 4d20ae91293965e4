package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/logging"
	"github.com/Iron-Ham/waitroom/internal/tools"
	"github.com/Iron-Ham/waitroom/internal/waiter"
)

const (
	defaultWriteTimeout = 10 * time.Second
	shutdownTimeout     = 5 * time.Second
	maxRequestBytes     = 1 << 20
)

// Server exposes a tools.Service over HTTP and websocket.
//
//	GET  /tools         tool descriptors
//	POST /tools/{name}  call a tool; register_and_wait is a plain long-poll
//	GET  /ws            websocket calls with progress notifications
//	GET  /stats         activity counters
type Server struct {
	svc          *tools.Service
	logger       *logging.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	stats        Stats

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteTimeout bounds each websocket frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithBus feeds the /stats counters from bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Server) {
		if bus != nil {
			s.stats.Attach(bus)
		}
	}
}

// New creates a Server for svc.
func New(svc *tools.Service, opts ...Option) *Server {
	s := &Server{
		svc:          svc,
		logger:       logging.NopLogger(),
		writeTimeout: defaultWriteTimeout,
		conns:        make(map[*wsConn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")
	return s
}

// Stats returns the activity counters.
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /tools/{name}", s.handleCallTool)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// Serve accepts connections on l until ctx is done, then shuts down,
// closing open websockets so their in-flight waits are canceled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.logger.Info("server listening", "addr", l.Addr().String())
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("server shutting down")
		s.closeConns()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "server: shutdown")
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "server: listen on %s", addr)
	}
	return s.Serve(ctx, l)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tools.Descriptors())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: &RPCError{Code: CodeParseError, Message: err.Error()}})
		return
	}

	s.logger.Debug("http tool call", "tool", name, "remote", r.RemoteAddr)
	out, err := s.call(r.Context(), name, body, nil)
	if err != nil {
		rpcErr := toRPCError(err)
		s.logger.Warn("tool call failed", "tool", name, "error", err.Error())
		writeJSON(w, httpStatus(rpcErr.Code), errorBody{Error: rpcErr})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// call runs a tool, tracking active waits.
func (s *Server) call(ctx context.Context, name string, params json.RawMessage, sink waiter.ProgressSink) (any, error) {
	if name == tools.NameRegisterAndWait {
		s.stats.activeWaits.Add(1)
		defer s.stats.activeWaits.Add(-1)
	}
	return s.svc.Call(ctx, name, params, sink)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	conn := &wsConn{ws: ws, writeTimeout: s.writeTimeout}
	s.track(conn)
	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Info("client connected")

	var wg sync.WaitGroup
	defer func() {
		// Closing the context cancels in-flight waits; wait for their
		// handlers before releasing the socket.
		cancel()
		wg.Wait()
		s.untrack(conn)
		_ = ws.Close()
		logger.Info("client disconnected")
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "error", err.Error())
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			_ = conn.writeJSON(Response{Error: &RPCError{Code: CodeParseError, Message: err.Error()}})
			continue
		}

		wg.Go(func() {
			s.serveFrame(ctx, conn, req, logger)
		})
	}
}

func (s *Server) serveFrame(ctx context.Context, conn *wsConn, req Request, logger *logging.Logger) {
	if req.Method == MethodListTools {
		_ = conn.writeJSON(Response{ID: req.ID, Result: tools.Descriptors()})
		return
	}

	var sink waiter.ProgressSink
	if req.Method == tools.NameRegisterAndWait {
		sink = func(progress float64, label string) {
			err := conn.writeJSON(Notification{
				Method: MethodProgress,
				Params: ProgressParams{
					ProgressToken: req.ID,
					Progress:      progress,
					Total:         1.0,
					Message:       label,
				},
			})
			if err != nil {
				// The read loop notices the dead socket and cancels the wait.
				logger.Debug("progress notification not sent", "error", err.Error())
			}
		}
	}

	out, err := s.call(ctx, req.Method, req.Params, sink)
	resp := Response{ID: req.ID, Result: out}
	if err != nil {
		resp = Response{ID: req.ID, Error: toRPCError(err)}
		logger.Warn("tool call failed", "tool", req.Method, "error", err.Error())
	}
	if err := conn.writeJSON(resp); err != nil {
		logger.Debug("response not sent", "tool", req.Method, "error", err.Error())
	}
}

func (s *Server) track(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.ws.Close()
	}
}

// wsConn serializes writes; gorilla/websocket allows one concurrent writer.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

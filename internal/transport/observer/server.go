package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/persistence/indexdb"
	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/world"
)

// Leaderboards is the read side of the round index.
type Leaderboards interface {
	Leaderboard(ctx context.Context, limit int) ([]indexdb.RoundRow, error)
}

type Server struct {
	world *world.World
	index Leaderboards
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	inboundPerSec float64
	inboundBurst  int
	boards        *cache.Cache
}

// NewServer wires HTTP and websocket handlers to w. index may be nil, in
// which case the leaderboard is empty.
func NewServer(w *world.World, index Leaderboards, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	obs := w.Tuning().Observer
	ttl := time.Duration(obs.LeaderboardTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Server{
		world: w,
		index: index,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		inboundPerSec: obs.InboundPerSec,
		inboundBurst:  obs.InboundBurst,
		boards:        cache.New(ttl, 2*ttl),
	}
}

// Routes registers every handler under /v1.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/state", s.StateHandler())
	mux.HandleFunc("/v1/leaderboard", s.LeaderboardHandler())
	mux.HandleFunc("/v1/observe", s.WSHandler())
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(rw, s.world.Bootstrap())
	}
}

func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, s.world.Summary())
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 100 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		rows, err := s.leaderboard(r.Context(), limit)
		if err != nil {
			s.log.Printf("leaderboard: %v", err)
			http.Error(rw, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(rw, map[string]any{"rounds": rows})
	}
}

func (s *Server) leaderboard(ctx context.Context, limit int) ([]indexdb.RoundRow, error) {
	if s.index == nil {
		return []indexdb.RoundRow{}, nil
	}
	key := strconv.Itoa(limit)
	if v, ok := s.boards.Get(key); ok {
		return v.([]indexdb.RoundRow), nil
	}
	rows, err := s.index.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []indexdb.RoundRow{}
	}
	s.boards.SetDefault(key, rows)
	return rows, nil
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "bad subscribe")
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}
		normalizeSubscribe(&sub)

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		tickOut := make(chan []byte, 64)
		direct := make(chan []byte, 16)

		joinReq := world.ObserverJoinRequest{
			SessionID:  sid,
			TickOut:    tickOut,
			EveryTicks: sub.EveryTicks,
			Events:     sub.Events,
		}
		select {
		case s.world.ObserverJoin() <- joinReq:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()
		s.log.Printf("observer %s joined from %s", sid, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			write := func(b []byte) error {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				return conn.WriteMessage(websocket.TextMessage, b)
			}
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-direct:
					if err := write(b); err != nil {
						writeErr <- err
						return
					}
				case b, ok := <-tickOut:
					if !ok {
						writeErr <- nil
						return
					}
					if err := write(b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.inboundPerSec), s.inboundBurst)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case observerproto.TypeSubscribe:
				var sub observerproto.SubscribeMsg
				if err := json.Unmarshal(msg, &sub); err != nil || sub.ProtocolVersion != observerproto.Version {
					continue
				}
				normalizeSubscribe(&sub)
				req := world.ObserverSubscribeRequest{SessionID: sid, EveryTicks: sub.EveryTicks, Events: sub.Events}
				select {
				case s.world.ObserverSubscribe() <- req:
				default:
					// Drop updates under load; the client may resend.
				}
			case protocol.TypeAct:
				if res := s.handleAct(sid, msg, limiter); res != nil {
					if b, err := json.Marshal(res); err == nil {
						select {
						case direct <- b:
						default:
						}
					}
				}
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Printf("observer %s left", sid)
	}
}

// handleAct forwards one ACT to the world. It returns an immediate rejection,
// or nil when the world will answer on the tick stream.
func (s *Server) handleAct(sid string, msg []byte, limiter *rate.Limiter) *protocol.ActResultMsg {
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return rejectAct(act, protocol.ErrProtoBadRequest, "bad ACT")
	}
	if act.ProtocolVersion != protocol.Version {
		return rejectAct(act, protocol.ErrProtoBadRequest, "unsupported protocol_version")
	}
	if !limiter.Allow() {
		return rejectAct(act, protocol.ErrRateLimit, "too many actions")
	}
	select {
	case s.world.Inbox() <- world.ActionEnvelope{SessionID: sid, Act: act}:
		return nil
	default:
		return rejectAct(act, protocol.ErrWorldBusy, "inbox full")
	}
}

func rejectAct(act protocol.ActMsg, code, message string) *protocol.ActResultMsg {
	return &protocol.ActResultMsg{
		Type:            protocol.TypeActResult,
		ProtocolVersion: protocol.Version,
		ID:              act.ID,
		Action:          act.Action,
		Accepted:        false,
		Code:            code,
		Message:         message,
	}
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.EveryTicks < 0 {
		sub.EveryTicks = 0
	}
	if sub.EveryTicks > 100 {
		sub.EveryTicks = 100
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/persistence/indexdb"
	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/tuning"
	"dragonpot.game/internal/sim/world"
)

type fakeIndex struct {
	calls int
	rows  []indexdb.RoundRow
}

func (f *fakeIndex) Leaderboard(_ context.Context, limit int) ([]indexdb.RoundRow, error) {
	f.calls++
	return f.rows[:min(limit, len(f.rows))], nil
}

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "test", Seed: 3}, nil, tuning.Defaults(), nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func startServer(t *testing.T, idx Leaderboards) (*world.World, *httptest.Server) {
	t.Helper()
	w := newWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	mux := http.NewServeMux()
	NewServer(w, idx, nil).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return w, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	sub := observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, EveryTicks: 1}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

// readUntil returns the first message whose type is typ.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(b)
		if err == nil && base.Type == typ {
			return b
		}
	}
	t.Fatalf("no %s message", typ)
	return nil
}

func TestWS_TickStream(t *testing.T) {
	_, srv := startServer(t, nil)
	conn := dial(t, srv)
	var msg observerproto.TickMsg
	if err := json.Unmarshal(readUntil(t, conn, observerproto.TypeTick), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.RoundID == "" || len(msg.Zones) == 0 {
		t.Fatalf("tick: %+v", msg)
	}
}

func TestWS_ActRoundTrip(t *testing.T) {
	_, srv := startServer(t, nil)
	conn := dial(t, srv)
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              "a1",
		Action:          protocol.ActPickup,
		Target:          "NOPE",
	}
	if err := conn.WriteJSON(act); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res protocol.ActResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeActResult), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != "a1" || res.Accepted || res.Code != protocol.ErrInvalidTarget {
		t.Fatalf("result: %+v", res)
	}
}

func TestWS_RejectsBadVersion(t *testing.T) {
	_, srv := startServer(t, nil)
	conn := dial(t, srv)
	if err := conn.WriteJSON(map[string]any{"type": "ACT", "protocol_version": "0.0", "id": "x", "action": "DROP"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res protocol.ActResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeActResult), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code: %s", res.Code)
	}
}

func TestHandleAct_RateLimit(t *testing.T) {
	s := NewServer(newWorld(t), nil, nil)
	lim := rate.NewLimiter(0, 1)
	msg := []byte(`{"type":"ACT","protocol_version":"1.0","id":"x","action":"DROP"}`)
	if res := s.handleAct("S", msg, lim); res != nil {
		t.Fatalf("first act rejected: %+v", res)
	}
	res := s.handleAct("S", msg, lim)
	if res == nil || res.Code != protocol.ErrRateLimit {
		t.Fatalf("second act: %+v", res)
	}
}

func TestBootstrap_LoopbackOnly(t *testing.T) {
	s := NewServer(newWorld(t), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rw := httptest.NewRecorder()
	s.BootstrapHandler()(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("status: %d", rw.Code)
	}

	req.RemoteAddr = "127.0.0.1:5555"
	rw = httptest.NewRecorder()
	s.BootstrapHandler()(rw, req)
	var boot observerproto.BootstrapResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldID != "test" || !boot.RecipesFallback || len(boot.Recipes) != 1 {
		t.Fatalf("bootstrap: %+v", boot)
	}
}

func TestLeaderboard_Cached(t *testing.T) {
	idx := &fakeIndex{rows: []indexdb.RoundRow{{RoundID: "a", Score: 500}, {RoundID: "b", Score: 200}}}
	s := NewServer(newWorld(t), idx, nil)
	for i := 0; i < 3; i++ {
		rw := httptest.NewRecorder()
		s.LeaderboardHandler()(rw, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=1", nil))
		var body struct {
			Rounds []indexdb.RoundRow `json:"rounds"`
		}
		if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Rounds) != 1 || body.Rounds[0].RoundID != "a" {
			t.Fatalf("rounds: %+v", body.Rounds)
		}
	}
	if idx.calls != 1 {
		t.Fatalf("index queried %d times", idx.calls)
	}

	rw := httptest.NewRecorder()
	s.LeaderboardHandler()(rw, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=x", nil))
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status: %d", rw.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"::1":          true,
		"192.168.0.2":  false,
		"garbage":      false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}

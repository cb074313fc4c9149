package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-directmatrix/internal/diagnostics"
	"github.com/coreman2200/funtimes-directmatrix/matrix"
)

// State fans the scan profiling counters out to websocket clients so
// the display timing can be watched from outside the process. The
// counters are diagnostics only; nothing here feeds back into the scan.
type State struct {
	mu       sync.Mutex
	m        *matrix.Matrix
	interval time.Duration
	clients  map[*websocket.Conn]bool
}

func NewState(m *matrix.Matrix, interval time.Duration) *State {
	return &State{
		m:        m,
		interval: interval,
		clients:  map[*websocket.Conn]bool{},
	}
}

// RunStatsLoop samples the profiling counters on a fixed cadence and
// broadcasts each sample until ctx is cancelled.
func (s *State) RunStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.broadcast(diagnostics.ScanStats{
				RuntimeNS: s.m.ScanRuntime().Nanoseconds(),
				LatencyNS: s.m.ScanLatency().Nanoseconds(),
				SampledAt: time.Now(),
			})
		case <-ctx.Done():
			return
		}
	}
}

// HandleStatsWS upgrades the request and subscribes the client to the
// stats broadcast.
func (s *State) HandleStatsWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.send(conn, diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Code:     "STATS.HELLO",
		Summary:  "scan profiling stream",
		Evidence: map[string]any{"interval_ms": s.interval.Milliseconds()},
	})

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Warn().Err(err).Msg("stats client write failed; dropping")
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

func (s *State) send(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warn().Err(err).Msg("stats hello failed")
	}
}

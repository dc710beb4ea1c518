// Package subscription keeps a live mirror of the agent's miner account via
// the ledger's push-notification channel, with a pull-friendly bounded wait.
package subscription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"oregrid/internal/domain"
	"oregrid/internal/ore"
)

const (
	keepaliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
	initialRetryDelay = time.Second
	maxRetryDelay     = time.Minute
	pollInterval      = 100 * time.Millisecond
)

// ConnState is the synchronizer's connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateSubscribed
	StateStreaming
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type accountNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Data []string `json:"data"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// MinerMirror subscribes to the miner account and exposes the latest decoded
// snapshot. The connection worker is the only writer; readers see snapshots
// through an RWMutex. Implements ports.MinerMirror.
type MinerMirror struct {
	wsURL   string
	address solana.PublicKey
	state   atomic.Int32

	mu     sync.RWMutex
	latest *domain.Miner
}

// NewMinerMirror builds a mirror of the miner account behind the given RPC
// endpoint. Run must be started for the mirror to receive updates.
func NewMinerMirror(rpcURL string, address solana.PublicKey) *MinerMirror {
	return &MinerMirror{
		wsURL:   wsEndpoint(rpcURL),
		address: address,
	}
}

// wsEndpoint maps an HTTP RPC endpoint to its websocket counterpart.
func wsEndpoint(rpcURL string) string {
	url := strings.Replace(rpcURL, "https://", "wss://", 1)
	return strings.Replace(url, "http://", "ws://", 1)
}

// State returns the current connection state.
func (m *MinerMirror) State() ConnState {
	return ConnState(m.state.Load())
}

func (m *MinerMirror) setState(s ConnState) {
	if ConnState(m.state.Swap(int32(s))) != s {
		slog.Debug("subscription: state change", "state", s.String())
	}
}

// Run supervises the connection worker: connect, subscribe, stream, and on
// any error or close reconnect with exponential backoff. It returns only when
// ctx is cancelled.
func (m *MinerMirror) Run(ctx context.Context) {
	delay := initialRetryDelay
	for {
		subscribed, err := m.streamOnce(ctx)
		m.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("subscription: stream closed", "err", err, "retry_in", delay)
		}
		if subscribed {
			delay = initialRetryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// streamOnce runs one connection lifecycle. It reports whether the
// subscription was established, so the caller can reset its backoff.
func (m *MinerMirror) streamOnce(ctx context.Context) (subscribed bool, err error) {
	m.setState(StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", m.wsURL, err)
	}
	defer conn.Close()

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "accountSubscribe",
		Params: []any{
			m.address.String(),
			map[string]string{"encoding": "base64", "commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	m.setState(StateSubscribed)
	slog.Info("subscription: subscribed", "address", m.address)

	// Keepalive pinger. It also unblocks the read loop on ctx cancellation
	// by closing the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					slog.Warn("subscription: keepalive ping failed", "err", err)
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		m.setState(StateStreaming)
		m.handleMessage(msg)
	}
}

// handleMessage decodes an account notification into the latest snapshot.
// Anything malformed is logged and dropped; the stream keeps going.
func (m *MinerMirror) handleMessage(msg []byte) {
	var note accountNotification
	if err := json.Unmarshal(msg, &note); err != nil || note.Method != "accountNotification" {
		return
	}
	if len(note.Params.Result.Value.Data) == 0 {
		slog.Warn("subscription: notification without data")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(note.Params.Result.Value.Data[0])
	if err != nil {
		slog.Warn("subscription: bad base64 payload", "err", err)
		return
	}
	miner, err := ore.DecodeAccount[domain.Miner](raw)
	if err != nil {
		slog.Warn("subscription: malformed miner notification", "err", err)
		return
	}

	m.mu.Lock()
	m.latest = miner
	m.mu.Unlock()
	slog.Debug("subscription: miner update",
		"rewards_sol", miner.RewardsSol,
		"rewards_ore", miner.RewardsOre,
	)
}

// Miner returns the latest snapshot, if any notification arrived yet.
func (m *MinerMirror) Miner() (domain.Miner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return domain.Miner{}, false
	}
	return *m.latest, true
}

// WaitForUpdate polls the snapshot at short fixed intervals until its SOL
// reward balance exceeds baseline or the timeout elapses. It bridges the push
// channel for callers that need a deadline-bound answer.
func (m *MinerMirror) WaitForUpdate(ctx context.Context, baseline uint64, timeout time.Duration) (domain.Miner, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if miner, ok := m.Miner(); ok && miner.RewardsSol > baseline {
			return miner, true
		}
		select {
		case <-ctx.Done():
			return domain.Miner{}, false
		case <-time.After(pollInterval):
		}
	}
	return domain.Miner{}, false
}

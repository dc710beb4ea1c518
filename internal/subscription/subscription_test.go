package subscription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oregrid/internal/domain"
)

func TestWsEndpoint(t *testing.T) {
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", wsEndpoint("https://api.mainnet-beta.solana.com"))
	assert.Equal(t, "ws://localhost:8899", wsEndpoint("http://localhost:8899"))
}

func TestConnStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "subscribed", StateSubscribed.String())
	assert.Equal(t, "streaming", StateStreaming.String())
}

// notification builds the JSON the node pushes for an account update carrying
// the given miner state.
func notification(t *testing.T, miner domain.Miner) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 8)) // discriminator
	require.NoError(t, bin.NewBinEncoder(buf).Encode(miner))

	msg := map[string]any{
		"method": "accountNotification",
		"params": map[string]any{
			"result": map[string]any{
				"value": map[string]any{
					"data": []string{base64.StdEncoding.EncodeToString(buf.Bytes()), "base64"},
				},
			},
		},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func newTestMirror() *MinerMirror {
	return NewMinerMirror("http://localhost:8899", solana.PublicKey{})
}

func TestHandleMessage_UpdatesSnapshot(t *testing.T) {
	m := newTestMirror()

	_, ok := m.Miner()
	assert.False(t, ok, "no snapshot before the first notification")

	m.handleMessage(notification(t, domain.Miner{RewardsSol: 123, RoundID: 9}))

	miner, ok := m.Miner()
	require.True(t, ok)
	assert.Equal(t, uint64(123), miner.RewardsSol)
	assert.Equal(t, uint64(9), miner.RoundID)
}

func TestHandleMessage_DropsMalformed(t *testing.T) {
	m := newTestMirror()

	m.handleMessage([]byte(`not json`))
	m.handleMessage([]byte(`{"method":"slotNotification"}`))
	m.handleMessage([]byte(`{"method":"accountNotification","params":{"result":{"value":{"data":["%%%","base64"]}}}}`))
	m.handleMessage([]byte(`{"method":"accountNotification","params":{"result":{"value":{"data":["AAAA","base64"]}}}}`))

	_, ok := m.Miner()
	assert.False(t, ok, "malformed messages never become snapshots")
}

func TestWaitForUpdate_ReturnsOnHigherBalance(t *testing.T) {
	m := newTestMirror()
	m.handleMessage(notification(t, domain.Miner{RewardsSol: 100}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		m.handleMessage(notification(t, domain.Miner{RewardsSol: 250}))
	}()

	miner, ok := m.WaitForUpdate(context.Background(), 100, 2*time.Second)
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, uint64(250), miner.RewardsSol)
}

func TestWaitForUpdate_TimesOut(t *testing.T) {
	m := newTestMirror()
	m.handleMessage(notification(t, domain.Miner{RewardsSol: 100}))

	start := time.Now()
	_, ok := m.WaitForUpdate(context.Background(), 100, 250*time.Millisecond)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_SubscribesStreamsAndReconnects(t *testing.T) {
	firstUpdate := notification(t, domain.Miner{RewardsSol: 100})
	secondUpdate := notification(t, domain.Miner{RewardsSol: 200})

	var (
		mu       sync.Mutex
		requests []subscribeRequest
		conns    atomic.Int32
	)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := conns.Add(1)

		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		// First connection: push one update, then drop the stream so the
		// worker has to reconnect. Second: push and stay up.
		if n == 1 {
			conn.WriteMessage(websocket.TextMessage, firstUpdate)
			return
		}
		conn.WriteMessage(websocket.TextMessage, secondUpdate)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	address := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	m := NewMinerMirror(srv.URL, address)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool {
		miner, ok := m.Miner()
		return ok && miner.RewardsSol == 100
	}, 2*time.Second, 10*time.Millisecond, "first notification never landed")

	mu.Lock()
	req := requests[0]
	mu.Unlock()
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "accountSubscribe", req.Method)
	require.Len(t, req.Params, 2)
	assert.Equal(t, address.String(), req.Params[0])
	opts, ok := req.Params[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "base64", opts["encoding"])
	assert.Equal(t, "confirmed", opts["commitment"])

	// The dropped stream must come back on its own and resubscribe.
	require.Eventually(t, func() bool {
		miner, ok := m.Miner()
		return ok && miner.RewardsSol == 200
	}, 5*time.Second, 10*time.Millisecond, "worker never reconnected")
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	mu.Lock()
	resubscribes := len(requests)
	mu.Unlock()
	assert.GreaterOrEqual(t, resubscribes, 2, "every connection resubscribes")
}

func TestWaitForUpdate_ContextCancel(t *testing.T) {
	m := newTestMirror()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := m.WaitForUpdate(ctx, 0, 5*time.Second)
	assert.False(t, ok)
}

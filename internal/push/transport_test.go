package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alfredjeanlab/parkgate/internal/client"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/registry"
)

func TestDecodeInbound(t *testing.T) {
	msg, err := DecodeInbound(envelope(t, TypeZoneUpdate, testZone("a", 4)))
	require.NoError(t, err)
	zu, ok := msg.(ZoneUpdate)
	require.True(t, ok)
	assert.Equal(t, 4, zu.Zone.AvailableForVisitors)

	msg, err = DecodeInbound([]byte(`{"type":"admin-update","payload":{"adminId":"u1","action":"category-rates-changed","targetType":"category","targetId":"cat_premium"}}`))
	require.NoError(t, err)
	au, ok := msg.(AdminUpdate)
	require.True(t, ok)
	assert.Equal(t, "category", au.Entry.TargetType)

	msg, err = DecodeInbound([]byte(`{"type":"vacation-added","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Unrecognized{Type: "vacation-added"}, msg)

	_, err = DecodeInbound([]byte(`{"type":"zone-update","payload":{"zoneId":"a"}}`))
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = DecodeInbound([]byte(`{"type":"admin-update"}`))
	assert.ErrorIs(t, err, errMissingPayload)
}

func TestEncodeGate(t *testing.T) {
	data, err := EncodeGate(TypeSubscribe, "gate_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","payload":{"gateId":"gate_1"}}`, string(data))
}

// --- websocket ---

func TestWebsocketDialer_EndToEnd(t *testing.T) {
	var (
		mu     sync.Mutex
		auth   string
		gotMsg Envelope
	)
	received := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		mu.Lock()
		_ = json.Unmarshal(data, &gotMsg)
		mu.Unlock()
		close(received)

		raw, _ := json.Marshal(testZone("zone_a", 7))
		out, _ := json.Marshal(Envelope{Type: TypeZoneUpdate, Payload: raw})
		_ = ws.WriteMessage(websocket.TextMessage, out)

		// Hold the connection until the client closes it.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	zones := registry.New[model.Zone]()
	dialer := &WebsocketDialer{
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Tokens: client.StaticToken("tok-1"),
	}
	ch := New(dialer, zones, nil, Options{Logger: zaptest.NewLogger(t)})
	defer ch.Disconnect()

	ch.Subscribe("gate_1")
	ch.Connect()

	select {
	case <-received:
	case <-time.After(waitFor):
		t.Fatal("server did not receive subscribe")
	}
	require.Eventually(t, func() bool { _, ok := zones.Get("zone_a"); return ok }, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer tok-1", auth)
	assert.Equal(t, TypeSubscribe, gotMsg.Type)
	assert.JSONEq(t, `{"gateId":"gate_1"}`, string(gotMsg.Payload))
}

func TestWebsocketDialer_Refused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := &WebsocketDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	_, err := d.Dial(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

// --- NATS ---

// startTestNATS starts an embedded NATS server and returns it with its client URL.
func startTestNATS(t *testing.T) (*natsserver.Server, string) {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv, srv.ClientURL()
}

func TestNATSDialer_EndToEnd(t *testing.T) {
	srv, url := startTestNATS(t)

	backend, err := nats.Connect(url)
	require.NoError(t, err)
	defer backend.Close()

	control := make(chan *nats.Msg, 4)
	sub, err := backend.ChanSubscribe(SubjectControl, control)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck
	require.NoError(t, backend.Flush())

	zones := registry.New[model.Zone]()
	audit := registry.NewAuditLog(0)
	sched := &fakeScheduler{}
	ch := New(&NATSDialer{URL: url}, zones, audit, Options{
		Logger:   zaptest.NewLogger(t),
		Schedule: sched.schedule,
	})
	defer ch.Disconnect()

	ch.Subscribe("gate_1")
	ch.Connect()

	select {
	case msg := <-control:
		var env Envelope
		require.NoError(t, json.Unmarshal(msg.Data, &env))
		assert.Equal(t, TypeSubscribe, env.Type)
	case <-time.After(waitFor):
		t.Fatal("no subscribe on control subject")
	}

	require.NoError(t, backend.Publish(GateSubject("gate_1"), envelope(t, TypeZoneUpdate, testZone("zone_a", 2))))
	require.NoError(t, backend.Publish(GateSubject("gate_2"), envelope(t, TypeZoneUpdate, testZone("zone_other", 2))))
	require.NoError(t, backend.Publish(SubjectAdmin, envelope(t, TypeAdminUpdate, model.AuditEntry{Action: "zone-opened"})))
	require.NoError(t, backend.Flush())

	require.Eventually(t, func() bool { _, ok := zones.Get("zone_a"); return ok }, waitFor, tick)
	require.Eventually(t, func() bool { return audit.Len() == 1 }, waitFor, tick)
	_, ok := zones.Get("zone_other")
	assert.False(t, ok, "other gate's updates are not delivered")

	// Losing the bus surfaces as a disconnect and a scheduled reconnect.
	srv.Shutdown()
	require.Eventually(t, func() bool { return ch.Status() == StatusDisconnected }, waitFor, tick)
	require.Eventually(t, func() bool { return sched.count() == 1 }, waitFor, tick)
}

func TestNATSDialer_Unreachable(t *testing.T) {
	d := &NATSDialer{URL: "nats://127.0.0.1:1"}
	_, err := d.Dial(testContext(t))
	assert.Error(t, err)
}

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

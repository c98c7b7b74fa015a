package live

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
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/coastwatch/internal/dashboard"
	"github.com/mr1hm/coastwatch/internal/filter"
	"github.com/mr1hm/coastwatch/internal/fixtures"
	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
	"github.com/mr1hm/coastwatch/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	hub         *Hub
	broadcaster *stream.Broadcaster
	srv         *httptest.Server
	url         string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	records := fixtures.Reports(now)
	for i := range records {
		require.NoError(t, db.Add(context.Background(), &records[i]))
	}

	b := stream.NewBroadcaster(8)
	overlays := dashboard.Overlays{
		Stations: fixtures.Stations(now),
		Routes:   fixtures.EvacuationRoutes(),
		Zones:    fixtures.DensityZones(),
	}
	hub := NewHub(db, overlays, b, clockwork.NewFakeClockAt(now), observability.NewMetricsForTesting(), []string{"*"})
	srv := httptest.NewServer(hub)

	h := &harness{hub: hub, broadcaster: b, srv: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, hub.Shutdown(ctx))
		srv.Close()
		b.Close()
	})
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil collects envelopes up to and including the first of type typ.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []Envelope {
	t.Helper()
	var got []Envelope
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", typ)
		got = append(got, env)
		if env.Type == typ {
			return got
		}
	}
}

func count(envs []Envelope, typ, layer string) int {
	n := 0
	for _, e := range envs {
		if e.Type == typ && (layer == "" || e.Layer == layer) {
			n++
		}
	}
	return n
}

func lastView(t *testing.T, envs []Envelope) viewData {
	t.Helper()
	var v viewData
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Data, &v))
	return v
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestHub_InitialDraw(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	envs := readUntil(t, conn, EnvelopeView)
	assert.Equal(t, EnvelopeBaseStyle, envs[0].Type)
	assert.Equal(t, 6, count(envs, EnvelopeMarkerAdd, "hazards"))
	assert.Equal(t, 4, count(envs, EnvelopeMarkerAdd, "weather"))
	assert.Zero(t, count(envs, EnvelopeMarkerAdd, "evacuation"))

	v := lastView(t, envs)
	assert.Equal(t, 6, v.Count)
	assert.False(t, v.Empty)
	assert.Equal(t, "street", v.Style)
	assert.Eventually(t, func() bool { return h.hub.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_FiltersAndLayers(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readUntil(t, conn, EnvelopeView)

	send(t, conn, Command{Type: CmdSetFilters, Filters: &filterHigh})
	envs := readUntil(t, conn, EnvelopeView)
	assert.Equal(t, 3, count(envs, EnvelopeMarkerRemove, "hazards"))
	assert.Zero(t, count(envs, EnvelopeMarkerAdd, ""))
	assert.Equal(t, 3, lastView(t, envs).Count)

	send(t, conn, Command{Type: CmdToggleLayer, Layer: "weather"})
	envs = readUntil(t, conn, EnvelopeView)
	assert.Equal(t, 4, count(envs, EnvelopeMarkerRemove, "weather"))
	assert.Zero(t, count(envs, EnvelopeMarkerRemove, "hazards"))
	assert.False(t, lastView(t, envs).Layers["weather"])

	send(t, conn, Command{Type: CmdSetFilters, Filters: &filterNothing})
	envs = readUntil(t, conn, EnvelopeView)
	v := lastView(t, envs)
	assert.True(t, v.Empty)
	assert.Zero(t, v.Count)

	send(t, conn, Command{Type: CmdClearFilters})
	envs = readUntil(t, conn, EnvelopeView)
	assert.Equal(t, 6, count(envs, EnvelopeMarkerAdd, "hazards"))
	assert.Equal(t, 6, lastView(t, envs).Count)
}

var (
	filterHigh    = filterQuery("high", "")
	filterNothing = filterQuery("", "no such place")
)

func TestHub_ClicksAndStyle(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readUntil(t, conn, EnvelopeView)

	send(t, conn, Command{Type: CmdMarkerClick, ID: "HR-2024-001"})
	envs := readUntil(t, conn, EnvelopeSelected)
	var sel selectedData
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Data, &sel))
	require.NotNil(t, sel.Record)
	assert.Equal(t, "HR-2024-001", sel.Record.ID)

	send(t, conn, Command{Type: CmdMapClick, Lat: 13.08271, Lng: 80.27069})
	envs = readUntil(t, conn, EnvelopeLocation)
	var loc locationData
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Data, &loc))
	assert.Equal(t, "13.0827, 80.2707", loc.Address)

	send(t, conn, Command{Type: CmdSetBaseStyle, Style: "satellite"})
	envs = readUntil(t, conn, EnvelopeBaseStyle)
	var style styleData
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Data, &style))
	assert.Equal(t, "satellite", style.Style)
	assert.Contains(t, style.TileURL, "World_Imagery")
}

func TestHub_Errors(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readUntil(t, conn, EnvelopeView)

	for _, cmd := range []Command{
		{Type: CmdMarkerClick, ID: "nope"},
		{Type: CmdToggleLayer, Layer: "traffic"},
		{Type: CmdSetBaseStyle, Style: "neon"},
		{Type: CmdMapClick, Lat: 95},
		{Type: CmdClearFilters, Dimension: "colour"},
		{Type: "DANCE"},
	} {
		send(t, conn, cmd)
		envs := readUntil(t, conn, EnvelopeError)
		assert.Len(t, envs, 1, cmd.Type)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	readUntil(t, conn, EnvelopeError)
}

func TestHub_BroadcastReachesSession(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readUntil(t, conn, EnvelopeView)

	h.broadcaster.Broadcast(models.HazardRecord{
		ID:          "HR-LIVE-1",
		Title:       "Rip current at Kovalam",
		Type:        models.HazardTypeRipCurrent,
		Severity:    models.SeverityCritical,
		Status:      models.StatusActive,
		Coordinates: models.Coordinates{Lat: 8.4, Lng: 76.97},
		Region:      "Kerala",
		Timestamp:   now,
	})

	envs := readUntil(t, conn, EnvelopeView)
	require.Equal(t, 1, count(envs, EnvelopeMarkerAdd, "hazards"))
	assert.Equal(t, "HR-LIVE-1", envs[0].ID)
	assert.Equal(t, 7, lastView(t, envs).Count)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	check := originChecker([]string{"https://coastwatch.example"})

	ok, _ := http.NewRequest(http.MethodGet, "/ws/map", nil)
	ok.Header.Set("Origin", "https://coastwatch.example")
	assert.True(t, check(ok))

	bad, _ := http.NewRequest(http.MethodGet, "/ws/map", nil)
	bad.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(bad))
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readUntil(t, conn, EnvelopeView)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.hub.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Zero(t, h.hub.Count())
}

func TestHub_RefusesAfterShutdown(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.hub.Shutdown(ctx))

	_, resp, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHub_ShutdownWhileClientsConnect(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.hub.Shutdown(ctx))
	assert.Zero(t, h.hub.Count())
	wg.Wait()
}

func filterQuery(severity, search string) filter.Query {
	return filter.Query{Severity: severity, Search: search}
}

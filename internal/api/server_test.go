package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/chronicle"
	"github.com/talgya/veloria/internal/config"
	"github.com/talgya/veloria/internal/engine"
)

const testKey = "letmein"

func newTestServer(t *testing.T) (*engine.World, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultTuning()
	cfg.Population.Initial = 300
	w := engine.NewWorld(cfg, engine.Options{
		Seed:   3,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, w.Genesis())

	s := NewServer(w.Shared(), w.Chronicle())
	s.AdminKey = testKey
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return w, ts
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestStatusAndSnapshot(t *testing.T) {
	w, ts := newTestServer(t)

	var status map[string]any
	resp := getJSON(t, ts.URL+"/api/v1/status", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, w.WorldID, status["world_id"])
	assert.Equal(t, engine.StatusEmpire, status["status"])
	assert.Equal(t, float64(1), status["kingdoms"])

	var snap engine.Snapshot
	resp = getJSON(t, ts.URL+"/api/v1/snapshot", &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, w.Population, snap.Population)
	assert.Equal(t, "Day 1, 03:00", snap.Time)
}

func TestKingdomEndpoint(t *testing.T) {
	w, ts := newTestServer(t)

	var view engine.KingdomView
	resp := getJSON(t, ts.URL+"/api/v1/kingdom/0", &view)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, w.Kingdoms[0].Name, view.Name)
	assert.True(t, view.Active)

	for _, bad := range []string{"8", "-1", "256", "empire"} {
		resp = getJSON(t, ts.URL+"/api/v1/kingdom/"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestChronicleUnread(t *testing.T) {
	w, ts := newTestServer(t)

	var all []chronicle.Entry
	getJSON(t, ts.URL+"/api/v1/chronicle", &all)
	require.NotEmpty(t, all)
	assert.Contains(t, all[0].Message, "is founded with")

	for i := 0; i < 2; i++ {
		var unread []chronicle.Entry
		getJSON(t, ts.URL+"/api/v1/chronicle?unread=true", &unread)
		assert.Len(t, unread, len(all), "GET does not consume")
	}

	var limited []chronicle.Entry
	getJSON(t, ts.URL+"/api/v1/chronicle?limit=1", &limited)
	assert.Len(t, limited, 1)

	resp := post(t, ts.URL+"/api/v1/chronicle/read", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/chronicle/read", testKey, `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var taken []chronicle.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&taken))
	assert.Len(t, taken, len(all))

	var unread []chronicle.Entry
	getJSON(t, ts.URL+"/api/v1/chronicle?unread=true", &unread)
	assert.Empty(t, unread)

	w.Chronicle().Append("A new dawn")
	unread = nil
	getJSON(t, ts.URL+"/api/v1/chronicle?unread=true", &unread)
	require.Len(t, unread, 1)
	assert.Equal(t, "A new dawn", unread[0].Message)
}

func TestControlEndpointsNeedAuth(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/policy", "", `{"policy":"festival","kingdom":0}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/policy", "wrong", `{"policy":"festival","kingdom":0}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	get := getJSON(t, ts.URL+"/api/v1/policy", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestControlDisabledWithoutKey(t *testing.T) {
	w, _ := newTestServer(t)
	s := NewServer(w.Shared(), w.Chronicle())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp := post(t, ts.URL+"/api/v1/refresh", testKey, `{}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPolicyRequests(t *testing.T) {
	w, ts := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/policy", testKey, `{"policy":"festival","kingdom":0}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/policy", testKey, `{"policy":"conscription","kingdom":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/policy", testKey, `{"policy":"festival","kingdom":4}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "dormant kingdom")

	resp = post(t, ts.URL+"/api/v1/policy", testKey, `{"policy":"festival","kingdom":9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/policy", testKey, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	before := w.Chronicle().Entries()
	w.Tick()
	var festival bool
	for _, e := range w.Chronicle().Entries()[len(before):] {
		if strings.Contains(strings.ToLower(e.Message), "festival") {
			festival = true
		}
	}
	assert.True(t, festival, "queued festival runs on the next tick")
}

func TestStoryEndpoint(t *testing.T) {
	w, ts := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/story", testKey, `{"chapter":2,"paragraph":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, engine.StoryPosition{Chapter: 2, Paragraph: 1}, w.Shared().StoryPosition())
	assert.Equal(t, 2, w.Shared().Snapshot().Story.Chapter)

	resp = post(t, ts.URL+"/api/v1/story", testKey, `{"chapter":-1,"paragraph":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshEndpoint(t *testing.T) {
	w, ts := newTestServer(t)
	v := w.Shared().Snapshot().Version

	resp := post(t, ts.URL+"/api/v1/refresh", testKey, `{}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	w.Tick()
	assert.GreaterOrEqual(t, w.Shared().Snapshot().Version, v+2, "refresh plus the end of tick publish")
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/policy", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStreamPushesSnapshots(t *testing.T) {
	w, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first engine.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, w.WorldID, first.WorldID)

	w.Tick()

	var next engine.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Greater(t, next.Version, first.Version)
}

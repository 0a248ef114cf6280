package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
	storagemem "github.com/secpulse/secpulse/internal/storage/memory"
	"github.com/secpulse/secpulse/internal/stream"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func seedStore(t *testing.T, now time.Time) *storagemem.Store {
	t.Helper()
	store := storagemem.NewStore()
	records := []filing.Record{
		{
			Filing: filing.Filing{
				AccessionID: "acc-1",
				FormType:    "8-K",
				Segment:     filing.SegmentCatalyst,
				CompanyName: "Example Corp",
			},
			Summary:     "Material agreement announced.",
			Impact:      45,
			Priority:    "high",
			ProcessedAt: now.Add(-time.Minute),
		},
		{
			Filing: filing.Filing{
				AccessionID: "acc-2",
				FormType:    "10-Q",
				Segment:     filing.SegmentPulse,
				CompanyName: "Example Corp",
			},
			Summary:     "Quarterly report.",
			Impact:      -10,
			Priority:    "low",
			ProcessedAt: now.Add(-2 * time.Minute),
		},
	}
	for _, rec := range records {
		_, err := store.Insert(context.Background(), rec)
		require.NoError(t, err)
	}
	return store
}

func newTestServer(t *testing.T) (*httptest.Server, *stream.Hub) {
	t.Helper()
	now := time.Date(2026, 8, 26, 13, 0, 0, 0, time.UTC)
	hub := stream.NewHub(8, zap.NewNop())
	srv := NewServer(seedStore(t, now), hub, fixedClock{t: now}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListFilings(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/v1/filings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Filings []filing.Record `json:"filings"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 2, body.Count)
	// Newest first.
	require.Equal(t, "acc-1", body.Filings[0].Filing.AccessionID)
}

func TestListFilingsSegmentFilter(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/v1/filings?segment=pulse")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Filings []filing.Record `json:"filings"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "acc-2", body.Filings[0].Filing.AccessionID)
}

func TestListFilingsRejectsBadParams(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/filings?segment=unknown",
		"/v1/filings?limit=abc",
		"/v1/filings?limit=-1",
		"/v1/filings?offset=-5",
	} {
		resp := get(t, ts.URL+path)
		require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "path %s", path)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		WindowHours int                   `json:"window_hours"`
		Segments    []filing.SegmentStats `json:"segments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 24, body.WindowHours)
	require.Len(t, body.Segments, 2)
	require.Equal(t, filing.SegmentCatalyst, body.Segments[0].Segment)
	require.Equal(t, int64(1), body.Segments[0].Count)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStreamDeliversEvents(t *testing.T) {
	t.Parallel()

	ts, hub := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/filings/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the handler to register its subscription before publishing.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	rec := filing.Record{
		Filing: filing.Filing{AccessionID: "acc-3", Segment: filing.SegmentWhale},
		Impact: 30,
	}
	hub.Publish(filing.NewFilingEvent(rec))

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	deadline := time.After(2 * time.Second)
	lines := make(chan string)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()
	for eventLine == "" || dataLine == "" {
		select {
		case line, open := <-lines:
			if !open {
				t.Fatal("stream closed before event arrived")
			}
			switch {
			case strings.HasPrefix(line, "event: "):
				eventLine = strings.TrimSpace(line)
			case strings.HasPrefix(line, "data: "):
				dataLine = strings.TrimSpace(line)
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream event")
		}
	}

	require.Equal(t, "event: new_filing", eventLine)
	var data filing.NewFilingData
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &data))
	require.Equal(t, "acc-3", data.Filing.AccessionID)
}

package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/secpulse/secpulse/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func newFetcher() *Fetcher {
	return New(Config{
		UserAgent:     "secpulse-test/1.0",
		Timeout:       5 * time.Second,
		MaxConcurrent: 4,
	}, nil)
}

func TestResolveDocumentURLPrefersPrimaryHTML(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/Archives/edgar/data/320193/000119312526055710/index.htm",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><table>
			<a href="0001193125-26-055710-index.htm">Index</a>
			<a href="R2.htm">Rendered view</a>
			<a href="/Archives/edgar/data/320193/000119312526055710/d55710d8k.htm">8-K</a>
			<a href="exhibit991.htm">Exhibit 99.1</a>
			<a href="form8k.xml">XBRL</a>
			</table></body></html>`)
		})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcher()
	indexURL := srv.URL + "/Archives/edgar/data/320193/000119312526055710/index.htm"
	got, err := f.ResolveDocumentURL(context.Background(), indexURL)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/Archives/edgar/data/320193/000119312526055710/d55710d8k.htm", got)
}

func TestResolveDocumentURLRelativeLink(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/Archives/edgar/data/1/2/filing-index.htm",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><a href="doc4.htm">Form 4</a></body></html>`)
		})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcher()
	got, err := f.ResolveDocumentURL(context.Background(), srv.URL+"/Archives/edgar/data/1/2/filing-index.htm")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/Archives/edgar/data/1/2/doc4.htm", got)
}

func TestResolveDocumentURLXMLFallback(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/Archives/edgar/data/1/3/filing-index.htm",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body>
			<a href="/cgi-bin/browse">Browse</a>
			<a href="form4.xml">Form 4 XML</a>
			</body></html>`)
		})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcher()
	got, err := f.ResolveDocumentURL(context.Background(), srv.URL+"/Archives/edgar/data/1/3/filing-index.htm")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/Archives/edgar/data/1/3/form4.xml", got)
}

func TestResolveDocumentURLNoDocuments(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/Archives/edgar/data/1/4/filing-index.htm",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><a href="/cgi-bin/browse">Browse</a></body></html>`)
		})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcher()
	_, err := f.ResolveDocumentURL(context.Background(), srv.URL+"/Archives/edgar/data/1/4/filing-index.htm")
	require.ErrorIs(t, err, ErrNoDocument)
}

func TestSelectBestPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		links []string
		want  string
	}{
		{
			"skips rendered artifacts",
			[]string{"R1.htm", "R2.htm", "main8k.htm"},
			"main8k.htm",
		},
		{
			"skips xsl rendered paths",
			[]string{"/Archives/edgar/data/1/2/xslF345X05/doc.htm", "/Archives/edgar/data/1/2/doc.htm"},
			"/Archives/edgar/data/1/2/doc.htm",
		},
		{
			"xml when no html",
			[]string{"/Archives/edgar/data/1/2/xslF345X05/doc.xml", "form4.xml"},
			"form4.xml",
		},
		{
			"last resort first link",
			[]string{"/Archives/edgar/data/1/2/xsl/only.xml"},
			"/Archives/edgar/data/1/2/xsl/only.xml",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, selectBest(tc.links))
		})
	}
}

func TestRewriteInlineViewer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/Archives/edgar/data/9/9/filing-index.htm",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body>
			<a href="/ix?doc=/Archives/edgar/data/9/9/main10q.htm">Inline viewer</a>
			</body></html>`)
		})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcher()
	got, err := f.ResolveDocumentURL(context.Background(), srv.URL+"/Archives/edgar/data/9/9/filing-index.htm")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/Archives/edgar/data/9/9/main10q.htm", got)
}

func TestDownloadNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher()
	_, err := f.Download(context.Background(), srv.URL+"/missing.htm")
	require.Error(t, err)
}

func TestLimiterEnforcesSpacing(t *testing.T) {
	t.Parallel()

	l := NewLimiter(4, 30*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
		l.Release()
	}
	// Three acquisitions need at least two spacing intervals.
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestLimiterHonorsCancellation(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, 0)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx)
	require.Error(t, err)

	l.Release()
}

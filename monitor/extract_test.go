package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const livePage = `<html><head><title>Live News</title><style>.x{}</style></head>
<body>
  <nav><a>Live News</a><a>All</a><a>Results</a></nav>
  <div class="news">
    <div class="item">
      <p>ROUTE MOBILE (+1.92%) :  Q2 NET LOSS 12 RUPEES VS 5 YOY</p>
      <span class="time">Just Now</span>
      <div class="tag">Result</div>
    </div>
    <div class="item">
      <p>Infosys wins <b>large</b> deal from European bank client</p>
      <span class="time"><div>15 mins ago</div></span>
    </div>
    <div class="item">
      <p>Tata Motors unveils new electric SUV line-up for India</p>
      <div>04 Nov 08:26 AM</div>
      <div>Equity</div>
    </div>
    <div class="item">
      <p>Short one</p>
      <div>1 hour ago</div>
    </div>
  </div>
  <script>var headline = "not visible";</script>
  <footer><p>Broking services offered by Nuvama Wealth and Investment Limited</p><div>Just Now</div></footer>
</body></html>`

func TestPageLines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(livePage))
	require.NoError(t, err)
	lines := PageLines(doc)

	assert.Contains(t, lines, "Infosys wins large deal from European bank client")
	assert.Contains(t, lines, "15 mins ago")
	for _, l := range lines {
		assert.NotContains(t, l, "not visible")
		assert.NotContains(t, l, ".x{}")
	}
}

func TestExtractHeadlines(t *testing.T) {
	lines := []string{
		"Live News",
		"ROUTE MOBILE (+1.92%) :  Q2 NET LOSS 12 RUPEES VS 5 YOY",
		"Just Now",
		"Result",
		"Infosys wins large deal from European bank client",
		"15 mins ago",
		"Tata Motors unveils new electric SUV line-up for India",
		"04 Nov 08:26 AM",
		"HDFC Bank board approves fund raise via bonds today",
		"1 hour ago",
		"Short one",
		"2 hours ago",
		"Why Nuvama is the best place for every trader out there",
		"Just Now",
	}
	got := ExtractHeadlines(lines, ExtractOptions{})
	require.Len(t, got, 4)
	assert.Equal(t, RawHeadline{Text: lines[1], Timestamp: "Just Now", Category: "Result"}, got[0])
	assert.Equal(t, RawHeadline{Text: lines[4], Timestamp: "15 mins ago"}, got[1])
	assert.Equal(t, RawHeadline{Text: lines[6], Timestamp: "04 Nov 08:26 AM"}, got[2], "a following headline is not a category")
	assert.Equal(t, lines[8], got[3].Text)
}

func TestPageFetcher_HTTP(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(livePage))
	}))
	defer srv.Close()

	f := NewPageFetcher(srv.URL, srv.Client(), "", ExtractOptions{})
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent, ua)

	require.Len(t, got, 3)
	assert.Equal(t, "Result", got[0].Category)
	assert.Equal(t, "Infosys wins large deal from European bank client", got[1].Text)
	assert.Equal(t, "Equity", got[2].Category)
}

func TestPageFetcher_Non200IsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewPageFetcher(srv.URL, srv.Client(), "", ExtractOptions{}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPageFetcher_SavedPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.html")
	require.NoError(t, os.WriteFile(path, []byte(livePage), 0o644))

	got, err := NewPageFetcher("file://"+path, nil, "", ExtractOptions{}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "Result", NormalizeCategory(" results "))
	assert.Equal(t, "Block Deals", NormalizeCategory("BLOCK DEALS"))
	assert.Equal(t, "Insider", NormalizeCategory("Insider"))
	assert.Equal(t, "", NormalizeCategory("Just Now"))
	assert.Equal(t, "", NormalizeCategory("Tata Motors unveils new electric SUV line-up"))
}

func TestIsResultsHeadline(t *testing.T) {
	assert.True(t, IsResultsHeadline("Anything at all", "Result"))
	assert.True(t, IsResultsHeadline("ROUTE MOBILE - : Q2 NET LOSS 12 RUPEES VS 5 YOY", ""))
	assert.True(t, IsResultsHeadline("ABC Ltd cons net profit up 20 percent", ""))
	assert.True(t, IsResultsHeadline("XYZ net profit at 120 crore rupees", ""))
	assert.False(t, IsResultsHeadline("Board to consider Q2 results on Friday", ""))
	assert.False(t, IsResultsHeadline("Tata Motors unveils new electric SUV line-up", "Equity"))
}

package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher produces the raw headline records currently visible on the source.
// An empty slice is a normal result.
type Fetcher interface {
	Fetch(ctx context.Context) ([]RawHeadline, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]RawHeadline, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]RawHeadline, error) { return f(ctx) }

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) headline-monitor/1.0"

// PageFetcher downloads the live-news page and extracts headlines from its
// visible text. file:// URLs are read from disk, which is how saved pages are
// replayed.
type PageFetcher struct {
	url       string
	client    *http.Client
	userAgent string
	opts      ExtractOptions
}

func NewPageFetcher(pageURL string, client *http.Client, userAgent string, opts ExtractOptions) *PageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &PageFetcher{url: pageURL, client: client, userAgent: userAgent, opts: opts}
}

func (f *PageFetcher) Fetch(ctx context.Context) ([]RawHeadline, error) {
	body, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return ExtractHeadlines(PageLines(doc), f.opts), nil
}

func (f *PageFetcher) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme == "file" {
		fh, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("open saved page: %w", err)
		}
		return fh, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}
	return resp.Body, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true,
}

var invisibleElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "head": true, "#comment": true,
}

// PageLines renders the visible text of the body roughly the way a browser
// lays it out: one line per block element, blank lines dropped.
func PageLines(doc *goquery.Document) []string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch {
			case name == "#text":
				b.WriteString(whitespaceRun.ReplaceAllString(c.Text(), " "))
			case invisibleElements[name]:
			case name == "br":
				b.WriteByte('\n')
			case blockElements[name]:
				b.WriteByte('\n')
				walk(c)
				b.WriteByte('\n')
			default:
				walk(c)
			}
		})
	}
	walk(doc.Find("body"))

	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

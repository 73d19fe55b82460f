// Package probe checks whether remote media URLs can be loaded before the
// viewer tries to play them.
package probe

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storeviewer/internal/viewer/media"
)

type Result struct {
	URL           string     `json:"url"`
	Reachable     bool       `json:"reachable"`
	Status        int        `json:"status,omitempty"`
	ContentType   string     `json:"content_type,omitempty"`
	ContentLength int64      `json:"content_length,omitempty"`
	Kind          media.Kind `json:"kind"`
	Error         string     `json:"error,omitempty"`
	// Aborted is set when the caller's context ended before an answer.
	// It says nothing about the URL.
	Aborted bool `json:"aborted,omitempty"`
}

type Options struct {
	Timeout     time.Duration
	Concurrency int
	CacheSize   int
	CacheTTL    time.Duration
	Client      *http.Client
}

type Prober struct {
	client      *http.Client
	cache       *expirable.LRU[string, Result]
	concurrency int
	logger      zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Prober{
		client:      client,
		cache:       expirable.NewLRU[string, Result](opts.CacheSize, nil, opts.CacheTTL),
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Probe issues a HEAD request for rawURL. Servers that refuse HEAD get a
// one-byte ranged GET instead. Results are cached, failures included.
func (p *Prober) Probe(ctx context.Context, rawURL string) Result {
	if r, ok := p.cache.Get(rawURL); ok {
		return r
	}

	r := Result{URL: rawURL, Kind: media.KindFromURL(rawURL)}
	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp.Body.Close()
		resp, err = p.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		if ctx.Err() != nil {
			// not the URL's fault; don't remember it
			r.Error = ctx.Err().Error()
			r.Aborted = true
			return r
		}
		p.logger.Debug().Err(err).Str("url", rawURL).Msg("probe failed")
		r.Error = err.Error()
		p.cache.Add(rawURL, r)
		return r
	}
	defer resp.Body.Close()

	r.Status = resp.StatusCode
	r.Reachable = resp.StatusCode < 400
	r.ContentType = resp.Header.Get("Content-Type")
	if resp.ContentLength > 0 {
		r.ContentLength = resp.ContentLength
	}
	if strings.HasPrefix(r.ContentType, "video/") {
		r.Kind = media.KindVideo
	}

	p.cache.Add(rawURL, r)
	return r
}

func (p *Prober) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	return p.client.Do(req)
}

// ProbeAll probes every distinct URL with bounded concurrency.
func (p *Prober) ProbeAll(ctx context.Context, urls []string) map[string]Result {
	out := make(map[string]Result, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		g.Go(func() error {
			r := p.Probe(gctx, u)
			mu.Lock()
			out[u] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// FailedKeys probes the media of every slide and returns the media keys
// whose URL could not be reached. Probes cut short by ctx are not failures.
func (p *Prober) FailedKeys(ctx context.Context, slides []media.Slide) []string {
	var urls []string
	for _, s := range slides {
		for _, it := range s.Media {
			urls = append(urls, it.URL)
		}
	}
	results := p.ProbeAll(ctx, urls)

	var keys []string
	for _, s := range slides {
		for i, it := range s.Media {
			if r, ok := results[it.URL]; ok && !r.Reachable && !r.Aborted {
				keys = append(keys, s.Key(i))
			}
		}
	}
	if len(keys) > 0 {
		p.logger.Info().Int("failed", len(keys)).Int("urls", len(results)).Msg("unreachable media")
	}
	return keys
}

func (p *Prober) CacheLen() int {
	return p.cache.Len()
}

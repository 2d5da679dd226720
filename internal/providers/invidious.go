// Invidious scraper implementation of [Provider]
//
// Resolves formats by scraping instance watch pages: a templated player URL
// serves as a generic fallback and the quality widget's itag options refine
// it. Instance discovery runs once per process and degrades to the pinned
// primary instance when the directory is unreachable.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

const (
	// Per-instance cap; a slow mirror must not stall the whole loop.
	instanceTimeout = 8 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36"

	minMirrorUptime = 90.0
)

var (
	invidiousTitleRegex  = regexp.MustCompile(`<title>(.*?) - Invidious</title>`)
	genericTitleRegex    = regexp.MustCompile(`<title>(.*?)</title>`)
	playerSourceRegex    = regexp.MustCompile(`(?i)src=["']([^"']*(?:latest_version|videoplayback)[^"']*local=true[^"']*)["']`)
	formatOptionRegex    = regexp.MustCompile(`<option value='(\{[^}]+\})'>([^<]+)</option>`)
	labelBitrateRegex    = regexp.MustCompile(`@\s*([\d.]+)[kK]`)
	labelResolutionRegex = regexp.MustCompile(`-\s*(\d+)p`)
	itagParamRegex       = regexp.MustCompile(`itag=\d+`)
)

// Markers an instance renders when it knows the video but cannot serve it.
var unavailableMarkers = []string{
	"The video is not available",
	"Content is not available",
}

// Invidious implements [Provider] against a pool of Invidious mirrors.
type Invidious struct {
	primary      string
	directoryURL string
	headers      *shared.CurlHeaders
	client       *http.Client
	logger       *log.Logger

	mu        sync.Mutex
	instances []string
}

// NewInvidious creates a scraper backend with a pinned primary instance.
// directoryURL may be empty, in which case only the primary is used.
// headers may be nil; a browser-like User-Agent is always sent.
func NewInvidious(primary, directoryURL string, headers *shared.CurlHeaders, client *http.Client, logger *log.Logger) *Invidious {
	if client == nil {
		client = http.DefaultClient
	}

	return &Invidious{
		primary:      strings.TrimRight(primary, "/"),
		directoryURL: directoryURL,
		headers:      headers,
		client:       client,
		logger:       logger,
	}
}

// Name returns the provider name.
func (v *Invidious) Name() string {
	return "invidious"
}

// ResolveTitle fetches the video title from the first answering instance.
func (v *Invidious) ResolveTitle(ctx context.Context, id string) (string, error) {
	info, err := v.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Resolve tries each instance in order and returns the first non-empty
// format listing. Every instance failing yields ErrNoFormats; the pool is
// reset so the next call rediscovers mirrors.
func (v *Invidious) Resolve(ctx context.Context, id string) (*ResolveInfo, error) {
	instances := v.ensureInstances(ctx)

	for _, baseURL := range instances {
		info, err := v.resolveInstance(ctx, baseURL, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v.logger.Debug("instance skipped", "instance", baseURL, "err", err)
			continue
		}
		v.logger.Debug("formats found", "instance", baseURL, "count", len(info.Candidates))
		return info, nil
	}

	v.mu.Lock()
	v.instances = nil
	v.mu.Unlock()

	return nil, fmt.Errorf("%w: video %s on any instance", shared.ErrNoFormats, id)
}

// Download resolves formats, selects the closest candidate and opens its
// stream with the referer the instance expects.
func (v *Invidious) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error) {
	info, err := v.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	selected := SelectFormat(info.Candidates, kind, quality)
	if selected == nil {
		return nil, fmt.Errorf("%w: %s %s for video %s", shared.ErrFormatNotFound, kind, quality, id)
	}

	v.logger.Debug("format selected", "requested", quality, "label", selected.Label, "url", selected.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, selected.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	v.applyHeaders(req)
	req.Header.Set("Referer", selected.Referer)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	return newStream(resp), nil
}

// ensureInstances returns the instance pool, discovering it on first use.
func (v *Invidious) ensureInstances(ctx context.Context) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.instances) == 0 {
		v.instances = v.discoverInstances(ctx)
	}

	out := make([]string, len(v.instances))
	copy(out, v.instances)
	return out
}

// discoverInstances queries the mirror directory and builds the ordered
// pool: the pinned primary first, then healthy mirrors in random order.
// Directory failure degrades to primary-only, never to an error.
func (v *Invidious) discoverInstances(ctx context.Context) []string {
	fallback := []string{v.primary}
	if v.directoryURL == "" {
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.directoryURL, nil)
	if err != nil {
		return fallback
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("instance directory unreachable, using primary only", "err", err)
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("instance directory error, using primary only", "status", resp.StatusCode)
		return fallback
	}

	// Directory entries are ["hostname", {instance}] pairs.
	var entries [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		v.logger.Warn("instance directory malformed, using primary only", "err", err)
		return fallback
	}

	primaryHost := hostOf(v.primary)
	var mirrors []string
	for _, entry := range entries {
		if len(entry) < 2 {
			continue
		}

		var inst struct {
			URI     string `json:"uri"`
			Type    string `json:"type"`
			Monitor *struct {
				Uptime float64 `json:"uptime"`
			} `json:"monitor"`
		}
		if err := json.Unmarshal(entry[1], &inst); err != nil {
			continue
		}
		if inst.Type != "https" || inst.Monitor == nil || inst.Monitor.Uptime <= minMirrorUptime {
			continue
		}

		uri := strings.TrimRight(inst.URI, "/")
		if uri == "" || hostOf(uri) == primaryHost {
			continue
		}
		mirrors = append(mirrors, uri)
	}

	rand.Shuffle(len(mirrors), func(i, j int) {
		mirrors[i], mirrors[j] = mirrors[j], mirrors[i]
	})

	v.logger.Debug("instances ready", "primary", v.primary, "mirrors", len(mirrors))
	return append([]string{v.primary}, mirrors...)
}

// resolveInstance fetches one instance's watch page and extracts formats.
func (v *Invidious) resolveInstance(ctx context.Context, baseURL, id string) (*ResolveInfo, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, instanceTimeout)
	defer cancel()

	watchURL := fmt.Sprintf("%s/watch?v=%s", baseURL, id)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, err
	}
	v.applyHeaders(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	html := string(body)

	for _, marker := range unavailableMarkers {
		if strings.Contains(html, marker) {
			return nil, fmt.Errorf("video unavailable")
		}
	}

	title := extractTitle(html)
	candidates := extractCandidates(html, baseURL, watchURL)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no formats in page")
	}

	return &ResolveInfo{
		Title:      title,
		Candidates: candidates,
		Referer:    watchURL,
		Origin:     baseURL,
	}, nil
}

func (v *Invidious) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", defaultUserAgent)
	if v.headers != nil {
		v.headers.Apply(req.Header)
	}
}

func extractTitle(html string) string {
	if m := invidiousTitleRegex.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := genericTitleRegex.FindStringSubmatch(html); m != nil {
		return strings.TrimSuffix(m[1], " - Invidious")
	}
	return "Unknown Title"
}

// extractCandidates runs the two extraction passes: the templated player URL
// as a generic low-quality fallback, then the itag option widget where each
// entry refines the template by substituting its own itag.
func extractCandidates(html, baseURL, referer string) []models.FormatCandidate {
	playerMatch := playerSourceRegex.FindStringSubmatch(html)
	if playerMatch == nil {
		return nil
	}

	template := strings.ReplaceAll(playerMatch[1], "&amp;", "&")
	if strings.HasPrefix(template, "/") {
		template = baseURL + template
	}

	candidates := []models.FormatCandidate{{
		Kind:        models.KindVideo,
		Container:   "mp4",
		Label:       "Player Source",
		ResolutionP: 360,
		URL:         template,
		Referer:     referer,
		Origin:      baseURL,
	}}

	for _, m := range formatOptionRegex.FindAllStringSubmatch(html, -1) {
		candidate, ok := parseOptionEntry(m[1], m[2], template, baseURL, referer)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates
}

// parseOptionEntry turns one widget option into a candidate. Entries that
// fail to parse are dropped rather than propagated as malformed data.
func parseOptionEntry(rawJSON, label, template, baseURL, referer string) (models.FormatCandidate, bool) {
	var opt struct {
		Itag json.Number `json:"itag"`
		Ext  string      `json:"ext"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &opt); err != nil || opt.Itag.String() == "" {
		return models.FormatCandidate{}, false
	}

	fetchURL := template
	itagParam := "itag=" + opt.Itag.String()
	if itagParamRegex.MatchString(fetchURL) {
		fetchURL = itagParamRegex.ReplaceAllString(fetchURL, itagParam)
	} else {
		fetchURL += "&" + itagParam
	}

	candidate := models.FormatCandidate{
		Kind:      models.KindVideo,
		Container: opt.Ext,
		Label:     label,
		URL:       fetchURL,
		Referer:   referer,
		Origin:    baseURL,
	}

	if strings.Contains(strings.ToLower(label), "audio") {
		candidate.Kind = models.KindAudio
	}
	if m := labelBitrateRegex.FindStringSubmatch(label); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			candidate.BitrateKbps = int(f)
		}
	}
	if m := labelResolutionRegex.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			candidate.ResolutionP = n
		}
	}

	return candidate, true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

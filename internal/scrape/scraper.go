// Package scrape holds the pluggable source adapters: each one streams
// raw records from an external provider, normalizes them into catalog
// entities and persists them, reporting resumable progress as it goes.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// Record is one raw, provider-specific row.
type Record map[string]any

// Callback is invoked after every record attempt, success or failure.
type Callback func(rec Record, p *Progress)

// Scraper is one source adapter. Scrape streams records through emit
// (returning false from emit stops the stream); its error return is a
// fatal stream failure. Normalize maps one record to zero or one
// catalog entity (*store.Plant, *store.Ingredient, *store.Ailment or
// *store.Recipe) and must not perform I/O.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, resume *Progress, emit func(Record) bool) error
	Normalize(rec Record) (any, error)
	RequestStop()
	ShouldStop() bool
	Progress() *Progress
}

// Outcome is the tagged result of a full scrape run: the final
// snapshot, plus the fatal stream error when the stream did not end
// cleanly.
type Outcome struct {
	Progress *Progress
	Err      error
}

// Run drives a scraper end to end: produce, normalize, persist, report.
// Per-item failures land in the snapshot's error list without aborting
// the stream; a fatal stream error is appended as "Fatal error: ..."
// and returned in the outcome.
func Run(ctx context.Context, s Scraper, st *store.Store, resume *Progress, cb Callback) Outcome {
	prog := s.Progress()
	if resume != nil {
		*prog = *resume
	}

	streamErr := s.Scrape(ctx, resume, func(rec Record) bool {
		if s.ShouldStop() {
			return false
		}
		entity, err := s.Normalize(rec)
		switch {
		case err != nil:
			prog.Errors = append(prog.Errors, err.Error())
		case entity != nil:
			if err := saveEntity(ctx, st, entity); err != nil {
				prog.Errors = append(prog.Errors, err.Error())
			} else {
				prog.ProcessedItems++
			}
		}
		if cb != nil {
			cb(rec, prog)
		}
		return true
	})

	if streamErr != nil {
		prog.Errors = append(prog.Errors, "Fatal error: "+streamErr.Error())
		return Outcome{Progress: prog, Err: streamErr}
	}
	return Outcome{Progress: prog}
}

func saveEntity(ctx context.Context, st *store.Store, entity any) error {
	var err error
	switch e := entity.(type) {
	case *store.Plant:
		_, err = st.AddPlant(ctx, e)
	case *store.Ingredient:
		_, err = st.AddIngredient(ctx, e)
	case *store.Ailment:
		_, err = st.AddAilment(ctx, e)
	case *store.Recipe:
		_, err = st.AddRecipe(ctx, e)
	default:
		err = fmt.Errorf("unsupported entity type %T", entity)
	}
	return err
}

// Base carries the shared adapter plumbing: store handle, source
// config, throttled HTTP client and the cooperative stop flag.
// Providers embed it and implement Scrape/Normalize on top.
type Base struct {
	store     *store.Store
	name      string
	config    map[string]any
	progress  Progress
	limiter   *rate.Limiter
	client    *http.Client
	userAgent string
	stop      atomic.Bool
	sourceID  int64
}

const defaultUserAgent = "Grimoire/0.1 (Traditional Medicine Research Tool)"

// NewBase builds the shared plumbing for a named source. The request
// ceiling comes from the source config's "rate_limit" (requests per
// second, default 1).
func NewBase(ctx context.Context, st *store.Store, name string, config map[string]any) *Base {
	if config == nil {
		config = map[string]any{}
	}
	rps := 1.0
	switch v := config["rate_limit"].(type) {
	case float64:
		if v > 0 {
			rps = v
		}
	case int:
		if v > 0 {
			rps = float64(v)
		}
	}

	ua := defaultUserAgent
	if v, ok := config["user_agent"].(string); ok && v != "" {
		ua = v
	}

	b := &Base{
		store:     st,
		name:      name,
		config:    config,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: ua,
	}
	b.sourceID = sourceIDByName(ctx, st, name)
	return b
}

// sourceIDByName resolves the persisted catalog row for a source name,
// zero when the source is not in the catalog.
func sourceIDByName(ctx context.Context, st *store.Store, name string) int64 {
	sources, err := st.GetSources(ctx, false)
	if err != nil {
		return 0
	}
	for _, src := range sources {
		if src.Name == name {
			return src.ID
		}
	}
	return 0
}

func (b *Base) Name() string { return b.name }

// SourceID is the catalog row id of this source, for providers that
// attach provenance (e.g. recipes).
func (b *Base) SourceID() int64 { return b.sourceID }

func (b *Base) Progress() *Progress { return &b.progress }

func (b *Base) RequestStop() { b.stop.Store(true) }

func (b *Base) ShouldStop() bool { return b.stop.Load() }

// SetRateLimit overrides the request ceiling, for providers with their
// own documented limits.
func (b *Base) SetRateLimit(rps float64) {
	b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// GetJSON issues a throttled GET and decodes the JSON response into v.
// Each outbound request waits on the limiter first, serializing
// requests with respect to the configured ceiling.
func (b *Base) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/debounce"
	"github.com/noah-isme/pos-terminal/internal/obs"
)

// Results is one delivered search outcome. Seq is the dispatch sequence
// number; Err is set when the lookup failed.
type Results struct {
	Term     string
	Products []Product
	Seq      uint64
	Err      error
}

// Searcher debounces typed search terms and delivers only the newest
// response. Every dispatched lookup gets a sequence number; a response whose
// number is older than the latest dispatch is dropped.
type Searcher struct {
	lookup  Lookup
	ctx     context.Context
	deliver func(Results)
	logger  zerolog.Logger
	deb     *debounce.Debouncer[string]

	mu  sync.Mutex
	seq uint64
}

// NewSearcher wires a searcher. ctx carries the operator's credentials for
// lookups fired from the debounce timer. deliver is called with the
// searcher's lock held and must not call back into the Searcher.
func NewSearcher(ctx context.Context, lookup Lookup, delay time.Duration, logger zerolog.Logger, deliver func(Results)) *Searcher {
	s := &Searcher{lookup: lookup, ctx: ctx, deliver: deliver, logger: logger}
	s.deb = debounce.New(delay, s.dispatch)
	return s
}

// Input records a keystroke. A blank term clears results at once and
// invalidates any lookup still in flight.
func (s *Searcher) Input(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		s.deb.Cancel()
		s.mu.Lock()
		s.seq++
		s.deliver(Results{Seq: s.seq})
		s.mu.Unlock()
		return
	}
	s.deb.Trigger(term)
}

// Cancel drops any pending or in-flight search without delivering.
func (s *Searcher) Cancel() {
	s.deb.Cancel()
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
}

// Pending reports whether a debounced search has not fired yet.
func (s *Searcher) Pending() bool { return s.deb.Pending() }

func (s *Searcher) dispatch(term string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	products, err := s.lookup.Search(s.ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		obs.Inc(obs.CatalogSearches, "stale")
		s.logger.Debug().Str("term", term).Uint64("seq", seq).Uint64("latest", s.seq).Msg("search_discarded_stale")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("term", term).Msg("search_failed")
	}
	s.deliver(Results{Term: term, Products: products, Seq: seq, Err: err})
}

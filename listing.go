package rtview

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/jward/rtview/internal/emit"
	"github.com/jward/rtview/internal/logging"
	"github.com/jward/rtview/internal/metadata"
	"github.com/jward/rtview/internal/model"
)

// Listing is the rendered declaration of one runtime object. Listings are
// shared between callers and must not be modified.
type Listing struct {
	ID      ID
	Options Options
	Model   *model.Declaration
	Tokens  emit.Tokens
}

// String returns the plain-text listing.
func (l *Listing) String() string {
	return l.Tokens.String()
}

// Service computes listings: lookup, build, emit. Concurrent requests for
// the same object and options share one computation.
type Service struct {
	reader *metadata.Reader
	group  singleflight.Group
}

func NewService(p metadata.Provider, opts ...metadata.ReaderOption) *Service {
	return &Service{reader: metadata.NewReader(p, opts...)}
}

func requestKey(id ID, opts Options) string {
	return id.Kind.String() + ":" + id.Name + "#" + opts.Fingerprint()
}

// Listing computes the listing for id. It fails only with a
// *metadata.LookupError, a provider error or ctx.Err(). Undecodable
// encodings are rendered, not reported.
//
// The shared computation is detached from ctx cancellation and bounded by
// the reader timeout; a cancelled caller stops waiting without affecting
// other callers of the same key.
func (s *Service) Listing(ctx context.Context, id ID, opts Options) (*Listing, error) {
	ch := s.group.DoChan(requestKey(id, opts), func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), id, opts)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Listing), nil
	}
}

func (s *Service) compute(ctx context.Context, id ID, opts Options) (*Listing, error) {
	ctx = logging.With(ctx, "request", xid.New().String(), "object", id.String())
	log := logging.Ctx(ctx)
	start := time.Now()

	desc, err := s.reader.Lookup(ctx, id)
	if err != nil {
		log.Debug("lookup failed", "error", err)
		return nil, err
	}
	m := model.Build(desc)
	tokens := emit.Emit(m, opts)
	log.Debug("listing computed", "tokens", len(tokens), "elapsed", time.Since(start))
	return &Listing{ID: id, Options: opts, Model: m, Tokens: tokens}, nil
}

// Result is delivered to a Session for the current request. Exactly one of
// Listing and Err is set.
type Result struct {
	ID      ID
	Options Options
	Listing *Listing
	Err     error
}

// Session serializes listing requests from one consumer. A new request
// supersedes the one in flight; only the newest request's result is
// delivered.
type Session struct {
	svc     *Service
	deliver func(Result)

	mu       sync.Mutex
	gen      uint64
	key      string
	inflight bool
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewSession returns a session delivering results to deliver. deliver runs
// with the session lock held and must not call back into the session.
func (s *Service) NewSession(deliver func(Result)) *Session {
	return &Session{svc: s, deliver: deliver}
}

// Request starts computing the listing for id. It returns immediately. A
// request for the key already in flight is coalesced into it; any other
// request cancels the in-flight one, whose result is then never delivered.
func (s *Session) Request(ctx context.Context, id ID, opts Options) {
	key := requestKey(id, opts)

	s.mu.Lock()
	if s.closed || (s.inflight && s.key == key) {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.key = key
	s.inflight = true
	s.wg.Add(1)
	s.mu.Unlock()

	logging.Ctx(ctx).Debug("listing requested", "object", id.String(), "generation", gen)

	go func() {
		defer s.wg.Done()
		defer cancel()

		l, err := s.svc.Listing(rctx, id, opts)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.gen {
			logging.Ctx(ctx).Debug("listing superseded", "object", id.String(), "generation", gen)
			return
		}
		s.inflight = false
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return
		}
		s.deliver(Result{ID: id, Options: opts, Listing: l, Err: err})
	}()
}

// Close cancels the in-flight request, suppresses further deliveries and
// waits for outstanding work to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

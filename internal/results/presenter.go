// Package results serves the externally computed outcome of a submitted
// session: score, percentage, rank and the per-question review.
package results

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves a Result from the quiz backend.
type Fetcher interface {
	FetchResult(ctx context.Context, token string) (domain.Result, error)
}

// Presenter fetches results and caches them. A Result is immutable once the
// scorer has produced it, so successful fetches are cached with TTL; a
// not-ready answer is never cached, since the submission may land at any
// moment.
type Presenter struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedResult
}

type cachedResult struct {
	result    domain.Result
	expiresAt time.Time
}

func NewPresenter(fetcher Fetcher, ttl time.Duration) *Presenter {
	return &Presenter{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedResult),
	}
}

// Result returns the scored outcome for a token. domain.ErrResultNotReady
// and domain.ErrUpstream pass through unchanged so callers can tell "not
// submitted yet" apart from "backend down".
func (p *Presenter) Result(ctx context.Context, token string) (domain.Result, error) {
	now := p.clock()

	p.mu.RLock()
	if entry, ok := p.cache[token]; ok && entry.expiresAt.After(now) {
		p.mu.RUnlock()
		return entry.result, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.sf.Do(token, func() (interface{}, error) {
		now := p.clock()
		p.mu.RLock()
		if entry, ok := p.cache[token]; ok && entry.expiresAt.After(now) {
			p.mu.RUnlock()
			return entry.result, nil
		}
		p.mu.RUnlock()

		res, err := p.fetcher.FetchResult(ctx, token)
		if err != nil {
			return domain.Result{}, err
		}

		p.mu.Lock()
		p.cache[token] = cachedResult{
			result:    res,
			expiresAt: now.Add(p.ttlWithJitter()),
		}
		p.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	return result.(domain.Result), nil
}

func (p *Presenter) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

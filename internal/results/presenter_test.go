package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestPresenterCachesResults(t *testing.T) {
	fetcher := &countingFetcher{result: domain.Result{TotalScore: 2, TotalQuestions: 3, Percentage: 67, Rank: 1}}
	presenter := NewPresenter(fetcher, time.Minute)

	first, err := presenter.Result(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if first.Percentage != 67 {
		t.Fatalf("unexpected result %+v", first)
	}
	if _, err := presenter.Result(context.Background(), "tok-1"); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected one backend call, got %d", fetcher.calls)
	}
}

func TestPresenterDoesNotCacheNotReady(t *testing.T) {
	fetcher := &countingFetcher{err: domain.ErrResultNotReady}
	presenter := NewPresenter(fetcher, time.Minute)

	if _, err := presenter.Result(context.Background(), "tok-1"); !errors.Is(err, domain.ErrResultNotReady) {
		t.Fatalf("expected not-ready, got %v", err)
	}

	// Once the submission lands, the next fetch must go through.
	fetcher.err = nil
	fetcher.result = domain.Result{TotalScore: 1, TotalQuestions: 1, Percentage: 100, Rank: 1}
	result, err := presenter.Result(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("fetch after ready: %v", err)
	}
	if result.Percentage != 100 {
		t.Fatalf("unexpected result %+v", result)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected two backend calls, got %d", fetcher.calls)
	}
}

func TestPresenterPassesUpstreamErrors(t *testing.T) {
	fetcher := &countingFetcher{err: domain.ErrUpstream}
	presenter := NewPresenter(fetcher, time.Minute)
	if _, err := presenter.Result(context.Background(), "tok-1"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

type countingFetcher struct {
	calls  int
	result domain.Result
	err    error
}

func (f *countingFetcher) FetchResult(context.Context, string) (domain.Result, error) {
	f.calls++
	if f.err != nil {
		return domain.Result{}, f.err
	}
	return f.result, nil
}

// Package upstream talks to the quiz backend that issues invitation tokens,
// scores submitted ledgers and computes ranks. This service never sees an
// answer key; it only consumes what the backend chooses to expose.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"quiz-session-service/internal/domain"
)

// Backend is everything a quiz session needs from the outside world:
// token resolution, submission, and result retrieval.
type Backend interface {
	ResolveQuiz(ctx context.Context, token string) (domain.Quiz, error)
	ResolveQuestions(ctx context.Context, token string) ([]domain.Question, error)
	SubmitAnswers(ctx context.Context, token string, answers []domain.AnswerRecord) error
	FetchResult(ctx context.Context, token string) (domain.Result, error)
	FetchStatus(ctx context.Context, token string) (domain.Status, error)
}

// DefaultTimeout is a generous client-side ceiling on backend calls; hitting
// it surfaces as an upstream error, never as a silent retry.
const DefaultTimeout = 30 * time.Second

// Client is the HTTP implementation of Backend.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the backend at baseURL. A zero timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	Answers []domain.AnswerRecord `json:"answers"`
}

// ResolveQuiz exchanges a token for its quiz metadata.
func (c *Client) ResolveQuiz(ctx context.Context, token string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := c.get(ctx, c.tokenPath(token, ""), &quiz, domain.ErrTokenInvalid); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// ResolveQuestions fetches the ordered, answer-key-free question list.
func (c *Client) ResolveQuestions(ctx context.Context, token string) ([]domain.Question, error) {
	var questions []domain.Question
	if err := c.get(ctx, c.tokenPath(token, "questions"), &questions, domain.ErrTokenInvalid); err != nil {
		return nil, err
	}
	return questions, nil
}

// SubmitAnswers posts the full ledger. The backend consumes the token; a
// later resolve of the same token must fail.
func (c *Client) SubmitAnswers(ctx context.Context, token string, answers []domain.AnswerRecord) error {
	body, err := json.Marshal(submitRequest{Answers: answers})
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenPath(token, "submit"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp.StatusCode, domain.ErrTokenInvalid)
}

// FetchResult retrieves the scored result for a submitted token. A 404 means
// the session was never submitted, which is distinct from the backend being
// down.
func (c *Client) FetchResult(ctx context.Context, token string) (domain.Result, error) {
	var result domain.Result
	if err := c.get(ctx, c.tokenPath(token, "results"), &result, domain.ErrResultNotReady); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// FetchStatus probes whether the token's ledger has been submitted.
func (c *Client) FetchStatus(ctx context.Context, token string) (domain.Status, error) {
	var status domain.Status
	if err := c.get(ctx, c.tokenPath(token, "status"), &status, domain.ErrTokenInvalid); err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, url string, out any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp.StatusCode, notFound); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}

func checkStatus(code int, notFound error) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return notFound
	default:
		return fmt.Errorf("%w: unexpected status %d", domain.ErrUpstream, code)
	}
}

func (c *Client) tokenPath(token, suffix string) string {
	p := c.base + "/quiz/" + url.PathEscape(token)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

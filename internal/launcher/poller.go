package launcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

var (
	// ErrNotReady is returned when every readiness attempt failed
	ErrNotReady = errors.New("service not ready")
	// ErrProcessExited is returned when the watched child exits during polling
	ErrProcessExited = errors.New("process exited before becoming ready")
)

// Poller repeatedly GETs a URL until it answers 200 OK
type Poller struct {
	Client   *http.Client
	Attempts int
	Interval time.Duration
}

// NewPoller returns a poller with a short per-request timeout
func NewPoller(attempts int, interval time.Duration) *Poller {
	return &Poller{
		Client:   &http.Client{Timeout: 2 * time.Second},
		Attempts: attempts,
		Interval: interval,
	}
}

// Wait blocks until url is ready, the attempts run out, ctx ends or exited closes.
// A nil exited channel never fires.
func (p *Poller) Wait(ctx context.Context, url string, exited <-chan struct{}) error {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		select {
		case <-exited:
			return ErrProcessExited
		default:
		}

		if p.ready(ctx, url) {
			return nil
		}
		log.Printf("[Launcher] Waiting for %s (%d/%d)", url, attempt, p.Attempts)

		if attempt == p.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return ErrProcessExited
		case <-time.After(p.Interval):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrNotReady, url, p.Attempts)
}

func (p *Poller) ready(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

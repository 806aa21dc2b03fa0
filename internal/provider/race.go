package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fetcharr/fetcharr/internal/media"
)

// attemptResult carries one resolver attempt's outcome across goroutines.
type attemptResult struct {
	link string
	err  error
}

// Race tries the candidates in order until one yields a link, giving each
// attempt at most perAttempt to finish. Streaming hosts are individually slow
// to fail (hung sockets, CAPTCHA walls), so the cap bounds worst-case latency
// to perAttempt * len(order) while first-success favors availability.
//
// Each attempt runs on its own goroutine against a scratch copy of the item;
// a timed-out resolver keeps running in the background until it notices its
// context, but it can only scribble on its own copy. Partial resolution
// state never leaks between attempts, and the item itself stays clean for
// the winner's transfer. Context cancellation aborts the race with ctx's
// error. onStatus, if non-nil, receives a message per attempt for job status
// reporting.
func Race(ctx context.Context, r Resolver, item *media.PlayableItem, language string, order []string, perAttempt time.Duration, onStatus func(string)) (Resolution, error) {
	if len(order) == 0 {
		return Resolution{}, fmt.Errorf("%w: no candidates", ErrAllProvidersFailed)
	}

	attempted := make([]string, 0, len(order))
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		if onStatus != nil {
			onStatus(fmt.Sprintf("Trying provider %s...", name))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		ch := make(chan attemptResult, 1)
		go func(provider string) {
			scratch := *item
			scratch.ResetResolution()
			link, err := r.Resolve(attemptCtx, &scratch, provider, language)
			ch <- attemptResult{link: link, err: err}
		}(name)

		select {
		case res := <-ch:
			cancel()
			if res.err == nil && res.link != "" {
				item.ResetResolution()
				return Resolution{Link: res.link, Provider: name}, nil
			}
			attempted = append(attempted, name)
		case <-attemptCtx.Done():
			cancel()
			if err := ctx.Err(); err != nil {
				// Parent cancelled, not an attempt timeout.
				return Resolution{}, err
			}
			attempted = append(attempted, name)
		}
	}

	return Resolution{}, fmt.Errorf("%w: tried %s", ErrAllProvidersFailed, strings.Join(attempted, ", "))
}

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// RemoteFactory opens sessions over the Chrome DevTools protocol against an
// externally managed browser endpoint.
type RemoteFactory struct{}

// Open connects to the remote browser and establishes a fresh page context.
// The connection is forced eagerly so dial failures surface here rather
// than on the first navigation.
func (RemoteFactory) Open(ctx context.Context, address string) (Session, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), address, chromedp.NoModifyURL)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}

	s := &remoteSession{ctx: taskCtx, cancel: cancel}
	if err := s.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
		cancel()
		return nil, fmt.Errorf("remote browser connect: %w", err)
	}
	return s, nil
}

// remoteSession drives one page in the remote browser. The chromedp context
// lives for the whole session; per-call deadlines are layered on top of it.
type remoteSession struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// run executes actions on the session, aborting when the caller's context
// is done without tearing the session down.
func (s *remoteSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *remoteSession) SetUserAgent(ctx context.Context, ua string) error {
	return s.run(ctx, emulation.SetUserAgentOverride(ua))
}

func (s *remoteSession) Navigate(ctx context.Context, target string) error {
	return s.run(ctx, navigateDOMParsed(target))
}

// navigateDOMParsed starts a navigation and completes at the DOM-parsed
// milestone (Page.domContentEventFired) instead of the full load event.
// Redirect resolution only needs the final address and a parseable page,
// so waiting for every subresource would just burn the timeout budget.
func navigateDOMParsed(target string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		parsed := make(chan struct{})
		var once sync.Once

		lctx, unlisten := context.WithCancel(ctx)
		defer unlisten()
		chromedp.ListenTarget(lctx, func(ev interface{}) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				once.Do(func() { close(parsed) })
			}
		})

		_, _, errorText, _, err := page.Navigate(target).Do(ctx)
		if err := navigationError(errorText, err); err != nil {
			return err
		}

		select {
		case <-parsed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// navigationError folds the protocol error and Chrome's own errorText into
// one outcome. Chrome reports outright rejections, such as
// net::ERR_NAME_NOT_RESOLVED, through errorText with a nil protocol error;
// treating those as started would leave the caller waiting on a DOM-parsed
// event that never fires.
func navigationError(errorText string, err error) error {
	if err != nil {
		return err
	}
	if errorText != "" {
		return fmt.Errorf("navigation failed: %s", errorText)
	}
	return nil
}

func (s *remoteSession) WaitReady(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *remoteSession) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// FetchJSON runs a fetch inside the page so the request originates from the
// proxied egress IP, not from this process.
func (s *remoteSession) FetchJSON(ctx context.Context, target string) (json.RawMessage, error) {
	var raw json.RawMessage
	expr := fmt.Sprintf(`fetch(%q).then(r => r.json())`, target)
	err := s.run(ctx, chromedp.Evaluate(expr, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Close disconnects from the remote browser. The browser itself stays up;
// it is shared across requests and regions.
func (s *remoteSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

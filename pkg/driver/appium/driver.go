package appium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

const (
	// closeTimeout bounds the DELETE /session issued by Close.
	closeTimeout = 30 * time.Second
	// statusTimeout bounds the /status check made before a session is requested.
	statusTimeout = 5 * time.Second
)

// Session implements core.Session using an Appium server.
type Session struct {
	client *Client
	target string

	mu     sync.Mutex
	closed bool
}

// Dial creates a session on the server at serverURL.
func Dial(ctx context.Context, serverURL, target string, capabilities map[string]interface{}) (*Session, error) {
	client := NewClient(serverURL)
	if err := client.Connect(ctx, capabilities); err != nil {
		return nil, err
	}
	logger.Info("appium session %s opened on %s for %s", client.SessionID(), serverURL, target)
	return &Session{client: client, target: target}, nil
}

// DialFirst tries host:port for each port in order and returns the first session created.
// Ports whose server does not report ready on /status are skipped.
func DialFirst(ctx context.Context, host string, ports []int, target string, capabilities map[string]interface{}) (*Session, error) {
	if len(ports) == 0 {
		return nil, core.ErrServerUnreachable.WithMessage("no appium ports configured")
	}

	var errs []error
	for _, port := range ports {
		if ctx.Err() != nil {
			return nil, core.ErrCancelled.WithCause(ctx.Err())
		}
		url := fmt.Sprintf("http://%s:%d", host, port)
		if err := ready(ctx, url); err != nil {
			logger.Warn("appium on %s: %v", url, err)
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		s, err := Dial(ctx, url, target, capabilities)
		if err == nil {
			return s, nil
		}
		logger.Warn("appium on %s: %v", url, err)
		errs = append(errs, fmt.Errorf("%s: %w", url, err))
	}
	return nil, core.ErrServerUnreachable.WithCause(errors.Join(errs...))
}

func ready(ctx context.Context, serverURL string) error {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	ok, err := NewClient(serverURL).Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if !ok {
		return errors.New("server not ready")
	}
	return nil
}

// Client returns the underlying HTTP client.
func (s *Session) Client() *Client { return s.client }

// Target implements core.Session.
func (s *Session) Target() string { return s.target }

// Endpoint implements core.Session.
func (s *Session) Endpoint() string { return s.client.ServerURL() }

// Alive implements core.Session.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.client.SessionID() != ""
}

// Close deletes the server session. Safe to call more than once.
// The session reports not alive as soon as Close starts.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	id := s.client.SessionID()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	logger.Info("appium session %s closed", id)
	return nil
}

// FindBySelector implements core.Backend. Elements whose text cannot be read
// because they went stale between lookup and read are dropped.
func (s *Session) FindBySelector(ctx context.Context, loc flow.Locator, parent *core.Element) ([]core.Element, error) {
	strategy, value := strategyFor(loc)

	var ids []string
	var err error
	if parent != nil {
		ids, err = s.client.FindElementsFrom(ctx, parent.ID, strategy, value)
	} else {
		ids, err = s.client.FindElements(ctx, strategy, value)
	}
	if IsCode(err, errNoSuchElement) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	elems := make([]core.Element, 0, len(ids))
	for _, id := range ids {
		text, err := s.client.GetElementText(ctx, id)
		if IsCode(err, errStaleElement) || IsCode(err, errNoSuchElement) {
			continue
		}
		if err != nil {
			return nil, err
		}
		elems = append(elems, core.Element{ID: id, Text: text})
	}
	return elems, nil
}

// IsActionable implements core.Backend: displayed and enabled.
// A stale element is reported as not actionable so the caller keeps polling.
func (s *Session) IsActionable(ctx context.Context, el core.Element) (bool, error) {
	displayed, err := s.client.IsElementDisplayed(ctx, el.ID)
	if IsCode(err, errStaleElement) {
		return false, nil
	}
	if err != nil || !displayed {
		return false, err
	}
	enabled, err := s.client.IsElementEnabled(ctx, el.ID)
	if IsCode(err, errStaleElement) {
		return false, nil
	}
	return enabled, err
}

// Click implements core.Backend.
func (s *Session) Click(ctx context.Context, el core.Element) error {
	return s.client.ClickElement(ctx, el.ID)
}

// TypeText implements core.Backend.
func (s *Session) TypeText(ctx context.Context, el core.Element, text string) error {
	return s.client.SendKeysToElement(ctx, el.ID, text)
}

// DumpUITree implements core.Backend.
func (s *Session) DumpUITree(ctx context.Context) (string, error) {
	return s.client.Source(ctx)
}

// strategyFor maps a locator to a W3C "using"/"value" pair.
func strategyFor(loc flow.Locator) (string, string) {
	if loc.Kind == flow.ByText {
		return string(flow.ByXPath), "//*[@text=" + xpathLiteral(loc.Value) + "]"
	}
	return string(loc.Kind), loc.Value
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

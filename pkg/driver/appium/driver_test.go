package appium

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

// fakeServer serves a minimal Appium session with the given elements
// (ID -> text) answering every find request.
func fakeServer(t *testing.T, elements map[string]string, order []string) (*httptest.Server, *int32) {
	t.Helper()
	var deletes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/status":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"ready": true},
			})
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"sessionId": "s1"},
			})
		case r.URL.Path == "/session/s1" && r.Method == http.MethodDelete:
			atomic.AddInt32(&deletes, 1)
			writeJSON(w, map[string]interface{}{"value": nil})
		case r.URL.Path == "/session/s1/appium/settings":
			writeJSON(w, map[string]interface{}{"value": nil})
		case r.URL.Path == "/session/s1/elements":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["value"] == "missing" {
				writeError(w, http.StatusNotFound, errNoSuchElement, "not found")
				return
			}
			refs := make([]interface{}, 0, len(order))
			for _, id := range order {
				refs = append(refs, elementRef(id))
			}
			writeJSON(w, map[string]interface{}{"value": refs})
		default:
			rest, ok := strings.CutPrefix(r.URL.Path, "/session/s1/element/")
			id, cmd, found := strings.Cut(rest, "/")
			if !ok || !found {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			text, ok := elements[id]
			if !ok {
				writeError(w, http.StatusNotFound, errStaleElement, "stale")
				return
			}
			switch cmd {
			case "text":
				writeJSON(w, map[string]interface{}{"value": text})
			case "displayed", "enabled":
				writeJSON(w, map[string]interface{}{"value": true})
			case "click", "value":
				writeJSON(w, map[string]interface{}{"value": nil})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}
	}))
	t.Cleanup(server.Close)
	return server, &deletes
}

func TestSession_FindBySelector(t *testing.T) {
	server, _ := fakeServer(t, map[string]string{"e1": "AutoModerator", "e2": "alice"}, []string{"e1", "gone", "e2"})

	s, err := Dial(context.Background(), server.URL, "emulator-5554", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	elems, err := s.FindBySelector(context.Background(), flow.ID("author"), nil)
	if err != nil {
		t.Fatalf("FindBySelector failed: %v", err)
	}
	// "gone" is stale and dropped.
	want := []core.Element{{ID: "e1", Text: "AutoModerator"}, {ID: "e2", Text: "alice"}}
	if len(elems) != len(want) || elems[0] != want[0] || elems[1] != want[1] {
		t.Errorf("elems = %+v, want %+v", elems, want)
	}

	elems, err = s.FindBySelector(context.Background(), flow.ID("missing"), nil)
	if err != nil || len(elems) != 0 {
		t.Errorf("missing: elems = %v, err = %v", elems, err)
	}
}

func TestSession_ActionsAndClose(t *testing.T) {
	server, deletes := fakeServer(t, map[string]string{"e1": "Post"}, []string{"e1"})
	ctx := context.Background()

	s, err := Dial(ctx, server.URL, "emulator-5554", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if !s.Alive() || s.Target() != "emulator-5554" || s.Endpoint() != server.URL {
		t.Errorf("session state: alive=%v target=%q endpoint=%q", s.Alive(), s.Target(), s.Endpoint())
	}

	el := core.Element{ID: "e1"}
	if ok, err := s.IsActionable(ctx, el); err != nil || !ok {
		t.Errorf("IsActionable = %v, %v", ok, err)
	}
	if ok, err := s.IsActionable(ctx, core.Element{ID: "stale"}); err != nil || ok {
		t.Errorf("stale IsActionable = %v, %v", ok, err)
	}
	if err := s.Click(ctx, el); err != nil {
		t.Errorf("Click: %v", err)
	}
	if err := s.TypeText(ctx, el, "hi"); err != nil {
		t.Errorf("TypeText: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := atomic.LoadInt32(deletes); got != 1 {
		t.Errorf("DELETE count = %d, want 1", got)
	}
	if s.Alive() {
		t.Error("closed session reports alive")
	}
}

func TestDialFirst_FallsBackAcrossPorts(t *testing.T) {
	server, _ := fakeServer(t, nil, nil)

	u, _ := url.Parse(server.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	// Reserve a port nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadPort := l.Addr().(*net.TCPAddr).Port
	l.Close()

	s, err := DialFirst(context.Background(), host, []int{deadPort, port}, "emulator-5554", nil)
	if err != nil {
		t.Fatalf("DialFirst failed: %v", err)
	}
	if s.Endpoint() != server.URL {
		t.Errorf("Endpoint = %q, want %q", s.Endpoint(), server.URL)
	}
}

func TestDialFirst_SkipsServerNotReady(t *testing.T) {
	var creates int32
	busy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"ready": false},
			})
			return
		}
		atomic.AddInt32(&creates, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer busy.Close()
	server, _ := fakeServer(t, nil, nil)

	portOf := func(raw string) int {
		u, _ := url.Parse(raw)
		_, p, _ := net.SplitHostPort(u.Host)
		n, _ := strconv.Atoi(p)
		return n
	}

	s, err := DialFirst(context.Background(), "127.0.0.1", []int{portOf(busy.URL), portOf(server.URL)}, "emulator-5554", nil)
	if err != nil {
		t.Fatalf("DialFirst failed: %v", err)
	}
	if s.Endpoint() != server.URL {
		t.Errorf("Endpoint = %q, want %q", s.Endpoint(), server.URL)
	}
	if got := atomic.LoadInt32(&creates); got != 0 {
		t.Errorf("session requests to unready server = %d, want 0", got)
	}
}

func TestSession_AliveDuringSlowClose(t *testing.T) {
	deleting := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"sessionId": "s1"},
			})
		case r.Method == http.MethodDelete:
			close(deleting)
			<-release
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()
	defer close(release)

	s, err := Dial(context.Background(), server.URL, "emulator-5554", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	go s.Close()
	<-deleting

	alive := make(chan bool, 1)
	go func() { alive <- s.Alive() }()
	select {
	case got := <-alive:
		if got {
			t.Error("Alive = true while Close is in flight")
		}
	case <-time.After(time.Second):
		t.Fatal("Alive blocked behind Close")
	}
}

func TestDialFirst_AllUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadPort := l.Addr().(*net.TCPAddr).Port
	l.Close()

	_, err = DialFirst(context.Background(), "127.0.0.1", []int{deadPort}, "x", nil)
	if !errors.Is(err, core.ErrServerUnreachable) {
		t.Errorf("err = %v, want ErrServerUnreachable", err)
	}

	_, err = DialFirst(context.Background(), "127.0.0.1", nil, "x", nil)
	if !errors.Is(err, core.ErrServerUnreachable) {
		t.Errorf("no ports: err = %v", err)
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		loc       flow.Locator
		wantUsing string
		wantValue string
	}{
		{flow.ID("com.twitter.android:id/tweet_button"), "id", "com.twitter.android:id/tweet_button"},
		{flow.XPath("//android.widget.Button"), "xpath", "//android.widget.Button"},
		{flow.Text("Post"), "xpath", "//*[@text='Post']"},
		{flow.Text("don't"), "xpath", `//*[@text="don't"]`},
		{flow.Text(`a'b"c`), "xpath", `//*[@text=concat('a', "'", 'b"c')]`},
		{flow.Locator{Kind: flow.ByAccessibilityID, Value: "Like"}, "accessibility id", "Like"},
		{flow.Locator{Kind: flow.ByUIAutomator, Value: `new UiSelector().text("Chat")`}, "-android uiautomator", `new UiSelector().text("Chat")`},
	}
	for _, tt := range tests {
		t.Run(tt.loc.Describe(), func(t *testing.T) {
			using, value := strategyFor(tt.loc)
			if using != tt.wantUsing || value != tt.wantValue {
				t.Errorf("strategyFor = (%q, %q), want (%q, %q)", using, value, tt.wantUsing, tt.wantValue)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities(CapabilityOptions{
		DeviceName:  "emulator-5554",
		AppPackage:  "com.reddit.frontpage",
		AppActivity: "launcher.default",
		Extra:       map[string]interface{}{"appium:noReset": false},
	})

	checks := map[string]interface{}{
		"platformName":                "Android",
		"appium:automationName":       "UiAutomator2",
		"appium:deviceName":           "emulator-5554",
		"appium:appPackage":           "com.reddit.frontpage",
		"appium:appActivity":          "launcher.default",
		"appium:systemPort":           DefaultSystemPort,
		"appium:newCommandTimeout":    DefaultNewCommandTimeout,
		"appium:noReset":              false,
		"appium:autoGrantPermissions": true,
	}
	for k, want := range checks {
		if caps[k] != want {
			t.Errorf("caps[%q] = %v, want %v", k, caps[k], want)
		}
	}

	bare := Capabilities(CapabilityOptions{SystemPort: 8300})
	if _, ok := bare["appium:appPackage"]; ok {
		t.Error("appPackage set without AppPackage")
	}
	if bare["appium:systemPort"] != 8300 {
		t.Errorf("systemPort = %v", bare["appium:systemPort"])
	}
}

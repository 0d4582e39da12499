package appium

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// writeJSON encodes data as JSON to the response writer.
func writeJSON(w http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]interface{}{
		"value": map[string]interface{}{"error": code, "message": msg},
	})
}

func elementRef(id string) map[string]interface{} {
	return map[string]interface{}{w3cElementKey: id}
}

func connectedClient(serverURL string) *Client {
	c := NewClient(serverURL)
	c.sessionID = "s1"
	return c
}

func TestClient_Connect(t *testing.T) {
	var gotCaps map[string]interface{}
	settingsCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			var body struct {
				Capabilities struct {
					AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
				} `json:"capabilities"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotCaps = body.Capabilities.AlwaysMatch
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId":    "test-session-123",
					"capabilities": map[string]interface{}{"platformName": "Android"},
				},
			})
		case r.URL.Path == "/session/test-session-123/appium/settings":
			settingsCalled = true
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	if err := client.Connect(context.Background(), map[string]interface{}{"platformName": "Android"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if client.SessionID() != "test-session-123" {
		t.Errorf("SessionID = %q", client.SessionID())
	}
	if client.Platform() != "android" {
		t.Errorf("Platform = %q", client.Platform())
	}
	if gotCaps["platformName"] != "Android" {
		t.Errorf("capabilities not sent in alwaysMatch: %v", gotCaps)
	}
	if !settingsCalled {
		t.Error("expected selector settings to be applied")
	}
}

func TestClient_ConnectError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "session not created", "device offline")
	}))
	defer server.Close()

	err := NewClient(server.URL).Connect(context.Background(), map[string]interface{}{})
	if !IsCode(err, "session not created") {
		t.Fatalf("err = %v, want session not created", err)
	}
}

func TestClient_Disconnect(t *testing.T) {
	deleteCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/s1" && r.Method == http.MethodDelete {
			deleteCalled = true
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := connectedClient(server.URL)
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if !deleteCalled {
		t.Error("expected DELETE /session/s1")
	}
	if client.SessionID() != "" {
		t.Error("session ID should be cleared")
	}

	// Second disconnect is a no-op.
	deleteCalled = false
	if err := client.Disconnect(context.Background()); err != nil || deleteCalled {
		t.Errorf("second Disconnect: err=%v called=%v", err, deleteCalled)
	}
}

func TestClient_FindElements(t *testing.T) {
	var using, value string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		using, value = body["using"], body["value"]

		switch r.URL.Path {
		case "/session/s1/elements":
			writeJSON(w, map[string]interface{}{
				"value": []interface{}{elementRef("e1"), map[string]interface{}{"ELEMENT": "e2"}},
			})
		case "/session/s1/element/p1/elements":
			writeJSON(w, map[string]interface{}{"value": []interface{}{elementRef("c1")}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := connectedClient(server.URL)

	ids, err := client.FindElements(context.Background(), "id", "com.reddit.frontpage:id/post")
	if err != nil {
		t.Fatalf("FindElements failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "e1" || ids[1] != "e2" {
		t.Errorf("ids = %v", ids)
	}
	if using != "id" || value != "com.reddit.frontpage:id/post" {
		t.Errorf("request using=%q value=%q", using, value)
	}

	ids, err = client.FindElementsFrom(context.Background(), "p1", "xpath", ".//*")
	if err != nil {
		t.Fatalf("FindElementsFrom failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("child ids = %v", ids)
	}
}

func TestClient_ElementQueries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/s1/element/e1/text":
			writeJSON(w, map[string]interface{}{"value": "Post"})
		case "/session/s1/element/e1/displayed":
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/s1/element/e1/enabled":
			writeJSON(w, map[string]interface{}{"value": false})
		case "/session/s1/source":
			writeJSON(w, map[string]interface{}{"value": "<hierarchy/>"})
		case "/status":
			writeJSON(w, map[string]interface{}{"value": map[string]interface{}{"ready": true}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := connectedClient(server.URL)

	if text, err := client.GetElementText(ctx, "e1"); err != nil || text != "Post" {
		t.Errorf("GetElementText = %q, %v", text, err)
	}
	if ok, err := client.IsElementDisplayed(ctx, "e1"); err != nil || !ok {
		t.Errorf("IsElementDisplayed = %v, %v", ok, err)
	}
	if ok, err := client.IsElementEnabled(ctx, "e1"); err != nil || ok {
		t.Errorf("IsElementEnabled = %v, %v", ok, err)
	}
	if src, err := client.Source(ctx); err != nil || src != "<hierarchy/>" {
		t.Errorf("Source = %q, %v", src, err)
	}
	if ready, err := client.Status(ctx); err != nil || !ready {
		t.Errorf("Status = %v, %v", ready, err)
	}
}

func TestClient_SendKeysToElement(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/s1/element/e1/value" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	if err := connectedClient(server.URL).SendKeysToElement(context.Background(), "e1", "hi"); err != nil {
		t.Fatalf("SendKeysToElement failed: %v", err)
	}
	if body["text"] != "hi" {
		t.Errorf("text = %v", body["text"])
	}
	if chars, ok := body["value"].([]interface{}); !ok || len(chars) != 2 {
		t.Errorf("value = %v", body["value"])
	}
}

func TestClient_WebDriverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNoSuchElement, "An element could not be located")
	}))
	defer server.Close()

	err := connectedClient(server.URL).ClickElement(context.Background(), "gone")
	var wdErr *WebDriverError
	if !errors.As(err, &wdErr) {
		t.Fatalf("err = %v, want *WebDriverError", err)
	}
	if wdErr.Code != errNoSuchElement || wdErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("wdErr = %+v", wdErr)
	}
	if IsCode(errors.New("plain"), errNoSuchElement) {
		t.Error("IsCode matched a plain error")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := connectedClient(server.URL).Source(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestExtractElementID(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]interface{}
		want  string
	}{
		{"w3c", elementRef("abc"), "abc"},
		{"legacy", map[string]interface{}{"ELEMENT": "def"}, "def"},
		{"neither", map[string]interface{}{"foo": "bar"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractElementID(tt.value); got != tt.want {
				t.Errorf("extractElementID = %q, want %q", got, tt.want)
			}
		})
	}
}

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var secret = []byte("ws-secret")

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	orgs := map[string]string{"alice": "org-a", "bob": "org-b"}
	resolve := func(_ context.Context, profileID string) (string, error) {
		org, ok := orgs[profileID]
		if !ok {
			return "", errors.New("no organization")
		}
		return org, nil
	}
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret, resolve) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitClients(t *testing.T, hub *Hub, orgID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(orgID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("organization %s has %d clients, want %d", orgID, hub.ClientCount(orgID), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeWsRejects(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newServer(t, hub)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"bad token", "?token=garbage", http.StatusUnauthorized},
		{"no organization", "?token=" + token(t, "carol"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, res, err := dial(t, srv, tt.query)
			if err == nil {
				conn.Close()
				t.Fatal("expected handshake failure")
			}
			if res == nil || res.StatusCode != tt.want {
				t.Fatalf("response = %v, want status %d", res, tt.want)
			}
		})
	}
}

func TestPublishIsScopedToOrganization(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newServer(t, hub)

	alice, _, err := dial(t, srv, "?token="+token(t, "alice"))
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	bob, _, err := dial(t, srv, "?token="+token(t, "bob"))
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bob.Close()

	waitClients(t, hub, "org-a", 1)
	waitClients(t, hub, "org-b", 1)

	hub.PublishToOrganization("org-a", []byte(`{"event":"stock.updated"}`))

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if string(msg) != `{"event":"stock.updated"}` {
		t.Errorf("alice got %s", msg)
	}

	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, msg, err := bob.ReadMessage(); err == nil {
		t.Errorf("bob received %s from another organization", msg)
	}
}

func TestUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newServer(t, hub)

	conn, _, err := dial(t, srv, "?token="+token(t, "alice"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitClients(t, hub, "org-a", 1)
	conn.Close()
	waitClients(t, hub, "org-a", 0)
}

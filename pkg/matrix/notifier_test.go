package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNotifyNewAgent(t *testing.T) {
	t.Run("posts agent id and timestamp", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/webhook/new-agent", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "agent-1", body["agent_id"])

			_, err := time.Parse(time.RFC3339, body["timestamp"])
			assert.NoError(t, err)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := NewClient(srv.URL).NotifyNewAgent(context.Background(), "agent-1")
		assert.NoError(t, err)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewClient(srv.URL).NotifyNewAgent(context.Background(), "agent-1")
		assert.Error(t, err)
	})
}

// recordingSender captures delivered agent ids.
type recordingSender struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (s *recordingSender) NotifyNewAgent(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, agentID)
	return s.err
}

func (s *recordingSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.delivered...)
}

func TestNotifier(t *testing.T) {
	t.Run("delivers queued notifications", func(t *testing.T) {
		sender := &recordingSender{}
		n := newNotifier(sender)
		n.Start()

		n.NotifyNewAgent("agent-1")
		n.NotifyNewAgent("agent-2")

		assert.Eventually(t, func() bool {
			return len(sender.all()) == 2
		}, time.Second, 10*time.Millisecond)

		n.Stop()
		assert.ElementsMatch(t, []string{"agent-1", "agent-2"}, sender.all())
	})

	t.Run("delivery errors do not stop workers", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("bridge down")}
		n := newNotifier(sender)
		n.Start()
		defer n.Stop()

		n.NotifyNewAgent("agent-1")
		n.NotifyNewAgent("agent-2")

		assert.Eventually(t, func() bool {
			return len(sender.all()) == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("nil notifier is safe", func(t *testing.T) {
		var n *Notifier
		n.Start()
		n.NotifyNewAgent("agent-1")
		n.Stop()
	})

	t.Run("empty base URL disables notifications", func(t *testing.T) {
		assert.Nil(t, NewNotifier(""))
	})
}

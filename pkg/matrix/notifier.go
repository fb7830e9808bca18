package matrix

import (
	"context"
	"log/slog"
	"sync"
)

const (
	workerCount = 2
	queueSize   = 64
)

// sender is the delivery operation the notifier runs off the request path.
// Satisfied by *Client.
type sender interface {
	NotifyNewAgent(ctx context.Context, agentID string) error
}

// Notifier runs new-agent notifications on a small worker pool. A nil
// Notifier is valid and drops everything, so callers never branch on
// whether notifications are configured.
type Notifier struct {
	client   sender
	logger   *slog.Logger
	queue    chan string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier. Returns nil when baseURL is empty,
// disabling notifications.
func NewNotifier(baseURL string) *Notifier {
	if baseURL == "" {
		return nil
	}
	return newNotifier(NewClient(baseURL))
}

func newNotifier(client sender) *Notifier {
	return &Notifier{
		client: client,
		logger: slog.Default().With("component", "matrix"),
		queue:  make(chan string, queueSize),
		stopCh: make(chan struct{}),
	}
}

// Start spawns the worker goroutines.
func (n *Notifier) Start() {
	if n == nil {
		return
	}
	for i := 0; i < workerCount; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.run()
		}()
	}
}

// Stop signals workers to stop and waits for in-flight deliveries.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.wg.Wait()
}

// NotifyNewAgent enqueues a notification for agentID without blocking.
// Drops the event when the queue is full or the notifier is stopped.
func (n *Notifier) NotifyNewAgent(agentID string) {
	if n == nil || agentID == "" {
		return
	}
	select {
	case n.queue <- agentID:
	case <-n.stopCh:
	default:
		n.logger.Warn("Notification queue full, dropping new-agent event", "agent_id", agentID)
	}
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.stopCh:
			return
		case agentID := <-n.queue:
			n.deliver(agentID)
		}
	}
}

func (n *Notifier) deliver(agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := n.client.NotifyNewAgent(ctx, agentID); err != nil {
		n.logger.Warn("New-agent notification failed", "agent_id", agentID, "error", err)
		return
	}
	n.logger.Info("Notified chat-bridge of new agent", "agent_id", agentID)
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// allWorkflows is the subscription key for clients watching every workflow.
const allWorkflows = ""

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // WorkflowID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for workflowID, or for every workflow when
// workflowID is empty. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(workflowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[workflowID]; !ok {
		sm.subscribers[workflowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[workflowID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[workflowID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, workflowID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast delivers msg to the workflow's subscribers and to global ones.
func (sm *StreamManager) Broadcast(workflowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "workflow_id", workflowID, "payload_size", len(msg))

	keys := []string{workflowID}
	if workflowID != allWorkflows {
		keys = append(keys, allWorkflows)
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "workflow_id", workflowID)
			}
		}
	}
}

// Subscribers returns the number of listeners registered under workflowID.
func (sm *StreamManager) Subscribers(workflowID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[workflowID])
}

// Hooks publishes every change event to the stream.
func (sm *StreamManager) Hooks() domain.Hooks {
	return domain.Hooks{
		OnChange: func(_ context.Context, ev *domain.ChangeEvent) {
			payload, err := json.Marshal(ev)
			if err != nil {
				sm.logger.Error("SSE: encode event failed", "err", err, "workflow_id", ev.WorkflowID)
				return
			}
			sm.Broadcast(ev.WorkflowID, string(payload))
		},
	}
}

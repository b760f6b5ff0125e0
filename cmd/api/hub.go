package main

import (
	"fmt"
	"sync"
)

// Sender is one live client connection able to receive a JSON payload.
type Sender interface {
	Send(v any) error
}

// ConnectionHub tracks live websocket connections by user id so messages
// can be pushed to every device a user has open.
type ConnectionHub struct {
	mu     sync.RWMutex
	conns  map[string]map[int64]Sender
	nextID int64
}

// NewConnectionHub creates an empty hub.
func NewConnectionHub() *ConnectionHub {
	return &ConnectionHub{conns: make(map[string]map[int64]Sender)}
}

// Register adds s under userID and returns the id to pass to Unregister.
func (h *ConnectionHub) Register(userID string, s Sender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[int64]Sender)
	}
	h.nextID++
	id := h.nextID
	h.conns[userID][id] = s
	return id
}

// Unregister removes a connection. Unknown ids are ignored.
func (h *ConnectionHub) Unregister(userID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Count reports the number of open connections across all users.
func (h *ConnectionHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.conns {
		n += len(conns)
	}
	return n
}

// SendToUser delivers v to every connection of userID. It returns an error
// when the user has no connection, otherwise the first send error. Failed
// connections are dropped from the hub.
func (h *ConnectionHub) SendToUser(userID string, v any) error {
	h.mu.RLock()
	conns := make(map[int64]Sender, len(h.conns[userID]))
	for id, s := range h.conns[userID] {
		conns[id] = s
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}

	var firstErr error
	var failed []int64
	for id, s := range conns {
		if err := s.Send(v); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.Unregister(userID, id)
	}
	return firstErr
}

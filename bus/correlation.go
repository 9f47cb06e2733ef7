package bus

import "sync"

// correlationTable maps an outstanding request's message id to the channel
// its waiter is blocked on. The bus exclusively owns this table (spec §5);
// entries are removed on success, timeout, or caller cancellation so that
// "the correlation table contains no entry for the request's message_id
// after send_request returns" (spec §8).
type correlationTable struct {
	mu      sync.Mutex
	waiters map[string]chan Message
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{waiters: make(map[string]chan Message)}
}

// register allocates a buffered (capacity 1) channel for requestID and
// stores it in the table.
func (t *correlationTable) register(requestID string) chan Message {
	ch := make(chan Message, 1)
	t.mu.Lock()
	t.waiters[requestID] = ch
	t.mu.Unlock()
	return ch
}

// resolve delivers msg to the waiter registered for referenceID, if any,
// removing the entry. It reports whether a waiter was found.
func (t *correlationTable) resolve(referenceID string, msg Message) bool {
	t.mu.Lock()
	ch, ok := t.waiters[referenceID]
	if ok {
		delete(t.waiters, referenceID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// remove deletes the entry for requestID without delivering anything. It
// reports whether an entry was actually present (false means a resolve won
// the race and the waiter should check its channel once more).
func (t *correlationTable) remove(requestID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.waiters[requestID]; !ok {
		return false
	}
	delete(t.waiters, requestID)
	return true
}

// size reports the number of outstanding waiters. Used by tests and gauges.
func (t *correlationTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

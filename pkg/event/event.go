// Package event is an in-process publish/subscribe bus. Services fire
// domain events after their transaction commits; listeners subscribe by
// name at boot.
package event

import (
	"sync"

	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// Handler receives an event payload.
type Handler func(payload any)

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
	wg       sync.WaitGroup
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

func listeners(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Handler(nil), handlers[event]...)
}

// Fire dispatches synchronously. A panicking listener is logged and
// skipped; it never reaches the caller.
func Fire(event string, payload any) {
	for _, h := range listeners(event) {
		call(event, h, payload)
	}
}

// FireAsync dispatches each listener on its own goroutine. Wait blocks
// until they finish.
func FireAsync(event string, payload any) {
	for _, h := range listeners(event) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			call(event, h, payload)
		}(h)
	}
}

// Wait blocks until every FireAsync listener has returned.
func Wait() { wg.Wait() }

func call(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event: listener panicked", "event", event, "panic", r)
		}
	}()
	h(payload)
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}

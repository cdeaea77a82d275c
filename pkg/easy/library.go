// Package easy is an owning wrapper around a single-transfer ("easy") native HTTP library.
//
// A process opens the native library once with Init, creates sessions and header lists
// from the returned Library, and calls Cleanup after every session has been closed:
//
//	lib, err := easy.Init(httpclient.NewEngine(), easy.GlobalAll)
//	if err != nil {
//		return err
//	}
//	defer lib.Cleanup()
//
//	s, err := lib.NewSession()
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
// A Session is not safe for concurrent use. Distinct sessions share no mutable state.
package easy

import (
	"fmt"
	"sync"
)

// Library is the process-wide handle on an initialized Driver.
type Library struct {
	drv Driver

	mu       sync.Mutex
	sessions int
	closed   bool
}

// Init runs the driver's global initialization. Call it once, before any session exists
// and before sessions are spread across goroutines.
func Init(drv Driver, flags InitFlags) (*Library, error) {
	if drv == nil {
		return nil, newError(KindInit, "easy.Init: nil driver")
	}
	if code := drv.GlobalInit(flags); code != OK {
		return nil, newCodeError(KindInit, "easy.Init: global init", 0, code, code.String())
	}
	return &Library{drv: drv}, nil
}

// Cleanup runs the driver's global teardown. It refuses while sessions are still open
// and is a no-op once it has succeeded.
func (l *Library) Cleanup() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if l.sessions > 0 {
		return fmt.Errorf("easy: cleanup with %d open session(s)", l.sessions)
	}
	l.drv.GlobalCleanup()
	l.closed = true
	return nil
}

// OpenSessions reports how many sessions have been created and not yet closed.
func (l *Library) OpenSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions
}

func (l *Library) acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return newError(KindInit, "easy.Library: used after Cleanup")
	}
	l.sessions++
	return nil
}

func (l *Library) release() {
	l.mu.Lock()
	l.sessions--
	l.mu.Unlock()
}

package wallet

import (
	"context"
	"sync"
	"time"
)

// ScanProgress is a snapshot handed to progress observers during a scan.
type ScanProgress struct {
	Sequence    uint64
	EndSequence uint64
}

// ScanState tracks one in-flight rescan of an account against the chain. A
// nil *ScanState means the account is caught up and nothing is running.
//
// abort() cancels the scan's context and blocks until the scanning
// goroutine acknowledges by closing done — the Go replacement for a
// future-based abort()/signalComplete() pair.
type ScanState struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startedAt time.Time

	mtx         sync.Mutex
	sequence    uint64
	endSequence uint64
	observers   []func(ScanProgress)
	err         error
}

// Done returns a channel that closes once the scan finishes, successfully
// or not. Err is only meaningful after it closes.
func (s *ScanState) Done() <-chan struct{} {
	return s.done
}

func (s *ScanState) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.err
}

func newScanState(parent context.Context, startSequence, endSequence uint64) *ScanState {
	ctx, cancel := context.WithCancel(parent)
	return &ScanState{
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		startedAt:   time.Now(),
		sequence:    startSequence,
		endSequence: endSequence,
	}
}

func (s *ScanState) onProgress(cb func(ScanProgress)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.observers = append(s.observers, cb)
}

func (s *ScanState) advance(sequence uint64) {
	s.mtx.Lock()
	var observers []func(ScanProgress)
	progress := ScanProgress{Sequence: sequence, EndSequence: s.endSequence}
	s.sequence = sequence
	observers = append(observers, s.observers...)
	s.mtx.Unlock()

	for _, obs := range observers {
		obs(progress)
	}
}

func (s *ScanState) progress() ScanProgress {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return ScanProgress{Sequence: s.sequence, EndSequence: s.endSequence}
}

// signalComplete marks the scan finished, waking anyone blocked in abort()
// or selecting on Done(), and records the outcome for Err().
func (s *ScanState) signalComplete(err error) {
	s.mtx.Lock()
	s.err = err
	s.mtx.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// abort cancels the scan and waits for its goroutine to exit.
func (s *ScanState) abort() {
	s.cancel()
	<-s.done
}

// Package eventlog is the append-only audit trail of room activity, written
// as newline-delimited JSON.
//
// Emit never blocks the simulation: events pass through a bounded channel
// and are dropped (and counted) when the writer falls behind or a rate
// limit trips.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	BufferSize         = 4096                   // Pending events before drops
	MaxEventsPerSec    = 10000                  // Global rate limit
	MaxEventsPerUser   = 100                    // Per-user rate limit per second
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
	UserLimiterCleanup = 5 * time.Minute        // Cleanup interval for user limiters
)

// Log provides bounded, rate-limited event logging with backpressure.
// It is safe for concurrent use by many rooms.
type Log struct {
	events chan Event

	globalLimiter *rate.Limiter
	userLimiters  sync.Map // map[string]*userLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    io.Writer
	closer io.Closer

	sequence     atomic.Uint64
	droppedCount atomic.Uint64
	writtenCount atomic.Uint64
}

type userLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // Unix nano
}

// New creates a stopped log. Emit is a no-op until Start or StartWriter.
func New() *Log {
	return &Log{
		events:        make(chan Event, BufferSize),
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and starts the writer.
func (l *Log) Start(filePath string) error {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	l.closer = file
	l.StartWriter(file)
	return nil
}

// StartWriter starts the writer goroutines on an arbitrary sink.
func (l *Log) StartWriter(w io.Writer) {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.out = w
	l.writerWg.Add(2)
	go l.writerLoop()
	go l.cleanupLoop()
}

// Stop flushes pending events and closes the file, if any.
func (l *Log) Stop() {
	l.stopOnce.Do(func() {
		if !l.running.Load() {
			return
		}
		l.running.Store(false)
		close(l.stopChan)
		l.writerWg.Wait()
		if l.closer != nil {
			l.closer.Close()
		}
	})
}

// Emit queues an event. Returns false if the event was dropped.
func (l *Log) Emit(event Event) bool {
	if !l.running.Load() {
		return false
	}

	if !l.globalLimiter.Allow() {
		l.droppedCount.Add(1)
		return false
	}

	// Per-user limit keeps one noisy client from starving the rest
	if event.UserID != "" && !l.userLimiter(event.UserID).Allow() {
		l.droppedCount.Add(1)
		return false
	}

	event.Sequence = l.sequence.Add(1)
	select {
	case l.events <- event:
		return true
	default:
		l.droppedCount.Add(1)
		return false
	}
}

// EmitSimple builds and queues an event in one call.
func (l *Log) EmitSimple(t Type, room string, tickNum uint64, userID string, payload any) bool {
	if !l.running.Load() {
		return false
	}
	return l.Emit(NewEvent(t, room, tickNum, userID, payload))
}

func (l *Log) userLimiter(userID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := l.userLimiters.Load(userID); ok {
		e := v.(*userLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &userLimiterEntry{limiter: rate.NewLimiter(MaxEventsPerUser, MaxEventsPerUser/10)}
	entry.lastUsed.Store(now)
	actual, _ := l.userLimiters.LoadOrStore(userID, entry)
	return actual.(*userLimiterEntry).limiter
}

// writerLoop batches events to the sink.
func (l *Log) writerLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	w := bufio.NewWriter(l.out)
	enc := json.NewEncoder(w)
	pending := 0

	write := func(e Event) {
		if err := enc.Encode(e); err != nil {
			l.droppedCount.Add(1)
			return
		}
		l.writtenCount.Add(1)
		pending++
		if pending >= BatchFlushSize {
			w.Flush()
			pending = 0
		}
	}

	for {
		select {
		case e := <-l.events:
			write(e)
		case <-ticker.C:
			if pending > 0 {
				w.Flush()
				pending = 0
			}
		case <-l.stopChan:
			for {
				select {
				case e := <-l.events:
					write(e)
				default:
					w.Flush()
					return
				}
			}
		}
	}
}

// cleanupLoop removes stale user limiters to prevent a memory leak.
func (l *Log) cleanupLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(UserLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanupUserLimiters(time.Now().Add(-UserLimiterCleanup))
		}
	}
}

func (l *Log) cleanupUserLimiters(cutoff time.Time) {
	l.userLimiters.Range(func(key, value any) bool {
		if value.(*userLimiterEntry).lastUsed.Load() < cutoff.UnixNano() {
			l.userLimiters.Delete(key)
		}
		return true
	})
}

// Stats returns counters for monitoring.
func (l *Log) Stats() map[string]any {
	return map[string]any{
		"written": l.writtenCount.Load(),
		"dropped": l.droppedCount.Load(),
		"pending": len(l.events),
		"running": l.running.Load(),
	}
}

// DroppedCount returns the number of events dropped so far.
func (l *Log) DroppedCount() uint64 {
	return l.droppedCount.Load()
}

// WrittenCount returns the number of events written to the sink.
func (l *Log) WrittenCount() uint64 {
	return l.writtenCount.Load()
}

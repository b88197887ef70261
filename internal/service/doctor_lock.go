package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Interval for cleaning up stale mutexes
	doctorLockCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	doctorLockStaleThreshold = 10 * time.Minute
)

// =============================================================================
// Types
// =============================================================================

// DoctorLocks serializes mutations of one doctor's bookings and queue inside
// this process. It sits in front of the doctor_statuses row lock so that
// contending requests queue on a mutex instead of on a held database connection.
//
// Lock Ordering (to prevent deadlocks):
// 1. Acquire doctor mutex FIRST
// 2. Then open the transaction and take the row lock
type DoctorLocks struct {
	log *logrus.Logger

	locks sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewDoctorLocks creates the registry and starts the cleanup goroutine.
// Call Stop() during graceful shutdown.
func NewDoctorLocks(log *logrus.Logger) *DoctorLocks {
	l := &DoctorLocks{
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (l *DoctorLocks) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("DoctorLocks stopped")
	}
}

// Lock acquires the doctor's mutex and returns its release func
func (l *DoctorLocks) Lock(doctorID uuid.UUID) func() {
	mt := l.get(doctorID)
	mt.mu.Lock()
	mt.lastUsed.Store(time.Now().Unix())
	return mt.mu.Unlock
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (l *DoctorLocks) get(doctorID uuid.UUID) *mutexWithTimestamp {
	mt, _ := l.locks.LoadOrStore(doctorID, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (l *DoctorLocks) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(doctorLockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Doctor lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStale(time.Now().Add(-doctorLockStaleThreshold))
		}
	}
}

// cleanupStale removes mutexes unused since cutoff.
// lastUsed is checked while holding the lock so a concurrent Lock is never lost.
func (l *DoctorLocks) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				l.locks.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale doctor locks", cleaned)
	}
	return cleaned
}

package service

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestDoctorLocks_SerializesSameDoctor(t *testing.T) {
	locks := NewDoctorLocks(quietLogger())
	defer locks.Stop()

	doctorID := uuid.New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(doctorID)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestDoctorLocks_IndependentDoctors(t *testing.T) {
	locks := NewDoctorLocks(quietLogger())
	defer locks.Stop()

	unlockA := locks.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(uuid.New())
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another doctor blocked")
	}
}

func TestDoctorLocks_CleanupSkipsHeldLocks(t *testing.T) {
	locks := NewDoctorLocks(quietLogger())
	defer locks.Stop()

	held := uuid.New()
	idle := uuid.New()

	unlock := locks.Lock(held)
	locks.Lock(idle)()

	cleaned := locks.cleanupStale(time.Now().Add(time.Hour))
	assert.Equal(t, 1, cleaned)

	_, stillThere := locks.locks.Load(held)
	assert.True(t, stillThere)
	unlock()
}

func TestDoctorLocks_StopIdempotent(t *testing.T) {
	locks := NewDoctorLocks(quietLogger())
	locks.Stop()
	locks.Stop()
}

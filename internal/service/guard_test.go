package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGuardSingleHolder(t *testing.T) {
	guard := NewGuard()

	assert.True(t, guard.TryEnter())
	assert.False(t, guard.TryEnter())

	guard.Exit()
	assert.True(t, guard.TryEnter())
	guard.Exit()
}

func TestGuardConcurrentAcquisition(t *testing.T) {
	guard := NewGuard()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.TryEnter() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	guard.Exit()
}

func TestUserLocksIndependentPerUser(t *testing.T) {
	locks := NewUserLocks()
	alice := uuid.New()
	bob := uuid.New()

	assert.True(t, locks.TryAcquire(alice))
	assert.False(t, locks.TryAcquire(alice))
	assert.True(t, locks.TryAcquire(bob))

	locks.Release(alice)
	assert.True(t, locks.TryAcquire(alice))

	locks.Release(alice)
	locks.Release(bob)
}

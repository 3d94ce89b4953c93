package service

import (
	"sync"

	"github.com/google/uuid"
)

// UserLocks hands out one non-blocking lock per user so a burst of
// parallel submissions from the same account is serialized at the
// edge. Correctness never depends on it: the solve unique constraint
// holds even across multiple process instances.
type UserLocks struct {
	locks sync.Map // uuid.UUID -> chan struct{}
}

func NewUserLocks() *UserLocks {
	return &UserLocks{}
}

func (l *UserLocks) TryAcquire(userID uuid.UUID) bool {
	entry, _ := l.locks.LoadOrStore(userID, make(chan struct{}, 1))
	select {
	case entry.(chan struct{}) <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *UserLocks) Release(userID uuid.UUID) {
	if entry, ok := l.locks.Load(userID); ok {
		<-entry.(chan struct{})
	}
}

package engine

import (
	"sync"

	"hanzikit/core"
)

// userLocks hands out one mutex per user so a load-mutate-save cycle for a
// user never interleaves with another for the same user.
type userLocks struct {
	m sync.Map // map[core.UserID]*sync.Mutex
}

func (l *userLocks) lock(user core.UserID) (unlock func()) {
	v, _ := l.m.LoadOrStore(user, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

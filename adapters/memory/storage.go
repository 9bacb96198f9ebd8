package memory

import (
	"context"
	"sort"
	"sync"

	"hanzikit/core"
)

// Store is a concurrent in-memory progress store. Records are copied in and
// out so callers never share maps with the store.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu  sync.Mutex
	rec core.Record
}

func New() *Store { return &Store{} }

func (s *Store) Load(_ context.Context, user core.UserID) (core.Record, bool, error) {
	v, ok := s.users.Load(user)
	if !ok {
		return core.Record{}, false, nil
	}
	ur := v.(*userRecord)
	ur.mu.Lock()
	defer ur.mu.Unlock()
	return ur.rec.Clone(), true, nil
}

func (s *Store) Save(_ context.Context, rec core.Record) error {
	v, _ := s.users.LoadOrStore(rec.UserID, &userRecord{})
	ur := v.(*userRecord)
	ur.mu.Lock()
	defer ur.mu.Unlock()
	ur.rec = rec.Clone()
	return nil
}

// Users lists stored users in ascending order.
func (s *Store) Users(_ context.Context) ([]core.UserID, error) {
	var out []core.UserID
	s.users.Range(func(k, _ any) bool {
		out = append(out, k.(core.UserID))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var _ interface {
	Load(context.Context, core.UserID) (core.Record, bool, error)
	Save(context.Context, core.Record) error
	Users(context.Context) ([]core.UserID, error)
} = (*Store)(nil)

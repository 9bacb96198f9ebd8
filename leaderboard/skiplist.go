package leaderboard

import (
	"math/rand/v2"
	"sync"

	"hanzikit/core"
)

const (
	maxLevel = 16
	pFactor  = 0.25
)

// link is one forward pointer. span counts the bottom-level steps it covers,
// which lets Get compute a rank without walking the whole list.
type link struct {
	next *node
	span int
}

type node struct {
	e  Entry
	lv []link
}

// SkipList is an indexable skip list ordered by score descending, then user
// ascending. Update, Remove and Get are O(log n).
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	lvl    int
	n      int
	byUser map[core.UserID]*node
	rng    *rand.Rand
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   &node{lv: make([]link, maxLevel)},
		lvl:    1,
		byUser: map[core.UserID]*node{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

// before reports whether a ranks ahead of b.
func before(a, b Entry) bool {
	if a.Score == b.Score {
		return a.User < b.User
	}
	return a.Score > b.Score
}

// Update inserts user or moves it to score.
func (s *SkipList) Update(user core.UserID, score int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[user]; ok {
		if old.e.Score == score {
			return
		}
		s.unlink(old.e)
	}
	s.insert(Entry{User: user, Score: score})
}

func (s *SkipList) insert(e Entry) {
	var update [maxLevel]*node
	var rank [maxLevel]int
	x := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		if i < s.lvl-1 {
			rank[i] = rank[i+1]
		}
		for x.lv[i].next != nil && before(x.lv[i].next.e, e) {
			rank[i] += x.lv[i].span
			x = x.lv[i].next
		}
		update[i] = x
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
			s.head.lv[i].span = s.n
		}
		s.lvl = lvl
	}
	n := &node{e: e, lv: make([]link, lvl)}
	for i := 0; i < lvl; i++ {
		n.lv[i].next = update[i].lv[i].next
		update[i].lv[i].next = n
		n.lv[i].span = update[i].lv[i].span - (rank[0] - rank[i])
		update[i].lv[i].span = rank[0] - rank[i] + 1
	}
	for i := lvl; i < s.lvl; i++ {
		update[i].lv[i].span++
	}
	s.n++
	s.byUser[e.User] = n
}

func (s *SkipList) unlink(e Entry) {
	var update [maxLevel]*node
	x := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for x.lv[i].next != nil && before(x.lv[i].next.e, e) {
			x = x.lv[i].next
		}
		update[i] = x
	}
	target := x.lv[0].next
	if target == nil || target.e.User != e.User {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].lv[i].next == target {
			update[i].lv[i].span += target.lv[i].span - 1
			update[i].lv[i].next = target.lv[i].next
		} else {
			update[i].lv[i].span--
		}
	}
	for s.lvl > 1 && s.head.lv[s.lvl-1].next == nil {
		s.lvl--
	}
	s.n--
	delete(s.byUser, e.User)
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byUser[user]; ok {
		s.unlink(n.e)
	}
}

// TopN returns up to n leading entries with ranks set.
func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, s.n))
	for cur := s.head.lv[0].next; cur != nil && len(out) < n; cur = cur.lv[0].next {
		e := cur.e
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out
}

// Len is the number of ranked users.
func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

// Get returns user's entry with its rank.
func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.byUser[user]
	if !ok {
		return Entry{}, false
	}
	rank := 0
	x := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for x.lv[i].next != nil && !before(target.e, x.lv[i].next.e) {
			rank += x.lv[i].span
			x = x.lv[i].next
		}
		if x == target {
			break
		}
	}
	e := target.e
	e.Rank = rank
	return e, true
}

var _ Board = (*SkipList)(nil)

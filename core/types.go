package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// UserID is the stable numeric identifier the messaging front-end assigns to a user.
type UserID int64

func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }

// ParseUserID parses a decimal user identifier. Identifiers must be positive.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty user id")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("user id must be positive, got %d", n)
	}
	return UserID(n), nil
}

// StatKey names a tracked per-user statistic.
type StatKey string

// StatKind tells whether a statistic is a numeric counter or a set of discrete values.
type StatKind int

const (
	KindCounter StatKind = iota
	KindSet
)

func (k StatKind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// StatValue is either a counter or a set of integer elements, depending on Kind.
type StatValue struct {
	Kind  StatKind
	Count float64
	Set   map[int64]struct{}
}

// Counter builds a counter value.
func Counter(v float64) StatValue { return StatValue{Kind: KindCounter, Count: v} }

// SetOf builds a set value holding elems.
func SetOf(elems ...int64) StatValue {
	v := StatValue{Kind: KindSet, Set: make(map[int64]struct{}, len(elems))}
	for _, e := range elems {
		v.Set[e] = struct{}{}
	}
	return v
}

// Zero returns the empty value of kind k.
func Zero(k StatKind) StatValue {
	if k == KindSet {
		return SetOf()
	}
	return Counter(0)
}

// Has reports set membership. Counters contain nothing.
func (v StatValue) Has(e int64) bool {
	if v.Kind != KindSet {
		return false
	}
	_, ok := v.Set[e]
	return ok
}

// Elements returns set members in ascending order.
func (v StatValue) Elements() []int64 {
	out := make([]int64, 0, len(v.Set))
	for e := range v.Set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v StatValue) Clone() StatValue {
	if v.Kind != KindSet {
		return v
	}
	return SetOf(v.Elements()...)
}

func (v StatValue) String() string {
	if v.Kind == KindSet {
		parts := make([]string, 0, len(v.Set))
		for _, e := range v.Elements() {
			parts = append(parts, strconv.FormatInt(e, 10))
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return strconv.FormatFloat(v.Count, 'f', -1, 64)
}

// MarshalJSON renders counters as numbers and sets as sorted arrays.
func (v StatValue) MarshalJSON() ([]byte, error) {
	if v.Kind == KindSet {
		return json.Marshal(v.Elements())
	}
	return json.Marshal(v.Count)
}

// UnmarshalJSON accepts a number or an array of integers.
func (v *StatValue) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var elems []int64
		if err := json.Unmarshal(b, &elems); err != nil {
			return err
		}
		*v = SetOf(elems...)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = Counter(n)
	return nil
}

// Stats maps statistic keys to their current values.
type Stats map[StatKey]StatValue

// AchievementID uniquely identifies a catalog entry.
type AchievementID string

// Record is one user's progression state. Stores hand out copies; mutate via the engine.
type Record struct {
	UserID      UserID
	Unlocked    map[AchievementID]struct{}
	Stats       Stats
	TotalPoints int64
	Updated     time.Time
}

type recordJSON struct {
	UserID      UserID          `json:"user_id"`
	Unlocked    []AchievementID `json:"unlocked_achievements"`
	Stats       Stats           `json:"stats"`
	TotalPoints int64           `json:"total_points"`
	Updated     time.Time       `json:"updated"`
}

// NewRecord returns the default record for user: zeroed stats for every schema key.
func NewRecord(user UserID, schema Schema) Record {
	rec := Record{
		UserID:   user,
		Unlocked: map[AchievementID]struct{}{},
		Stats:    make(Stats, len(schema)),
		Updated:  time.Now().UTC(),
	}
	for key, kind := range schema {
		rec.Stats[key] = Zero(kind)
	}
	return rec
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	cp := Record{
		UserID:      r.UserID,
		Unlocked:    make(map[AchievementID]struct{}, len(r.Unlocked)),
		Stats:       make(Stats, len(r.Stats)),
		TotalPoints: r.TotalPoints,
		Updated:     r.Updated,
	}
	for id := range r.Unlocked {
		cp.Unlocked[id] = struct{}{}
	}
	for k, v := range r.Stats {
		cp.Stats[k] = v.Clone()
	}
	return cp
}

// IsUnlocked reports whether id is in the unlocked set.
func (r Record) IsUnlocked(id AchievementID) bool {
	_, ok := r.Unlocked[id]
	return ok
}

// UnlockedIDs returns the unlocked identifiers sorted lexically.
func (r Record) UnlockedIDs() []AchievementID {
	out := make([]AchievementID, 0, len(r.Unlocked))
	for id := range r.Unlocked {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Unlock adds def to the unlocked set and credits its points.
// It reports false, changing nothing, when def was already unlocked.
func (r *Record) Unlock(def AchievementDefinition) bool {
	if r.IsUnlocked(def.ID) {
		return false
	}
	total, err := AddSafe(r.TotalPoints, def.Points)
	if err != nil {
		return false
	}
	if r.Unlocked == nil {
		r.Unlocked = map[AchievementID]struct{}{}
	}
	r.Unlocked[def.ID] = struct{}{}
	r.TotalPoints = total
	return true
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		UserID:      r.UserID,
		Unlocked:    r.UnlockedIDs(),
		Stats:       r.Stats,
		TotalPoints: r.TotalPoints,
		Updated:     r.Updated,
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.UserID = raw.UserID
	r.Unlocked = make(map[AchievementID]struct{}, len(raw.Unlocked))
	for _, id := range raw.Unlocked {
		r.Unlocked[id] = struct{}{}
	}
	r.Stats = raw.Stats
	if r.Stats == nil {
		r.Stats = Stats{}
	}
	r.TotalPoints = raw.TotalPoints
	r.Updated = raw.Updated
	return nil
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

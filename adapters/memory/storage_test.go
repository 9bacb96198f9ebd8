package memory

import (
	"context"
	"testing"

	"hanzikit/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, found, err := s.Load(ctx, 7); err != nil || found {
		t.Fatalf("want not found, got found=%v err=%v", found, err)
	}
	rec := core.NewRecord(7, core.DefaultSchema())
	rec.Stats[core.StatLessonsCompleted] = core.Counter(3)
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.Load(ctx, 7)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Stats[core.StatLessonsCompleted].Count != 3 {
		t.Fatalf("got %v", got.Stats[core.StatLessonsCompleted])
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := core.NewRecord(1, core.DefaultSchema())
	_ = s.Save(ctx, rec)
	rec.Stats[core.StatHSKLevelsCompleted].Set[3] = struct{}{}
	rec.Unlocked["first_steps"] = struct{}{}

	got, _, _ := s.Load(ctx, 1)
	if got.Stats[core.StatHSKLevelsCompleted].Has(3) || got.IsUnlocked("first_steps") {
		t.Fatal("store shares state with caller")
	}
	got.Stats[core.StatWordsLearned] = core.Counter(99)
	again, _, _ := s.Load(ctx, 1)
	if again.Stats[core.StatWordsLearned].Count != 0 {
		t.Fatal("loaded record aliases stored record")
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []core.UserID{30, 10, 20} {
		_ = s.Save(ctx, core.NewRecord(id, core.DefaultSchema()))
	}
	users, err := s.Users(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 3 || users[0] != 10 || users[2] != 30 {
		t.Fatalf("got %v", users)
	}
}

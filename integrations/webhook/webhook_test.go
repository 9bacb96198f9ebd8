package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"hanzikit/core"
)

func unlockEvent(t *testing.T) core.Event {
	t.Helper()
	def, err := core.DefaultCatalog().Lookup("first_steps")
	if err != nil {
		t.Fatal(err)
	}
	return core.NewAchievementUnlocked(1001, def, 10)
}

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		_ = json.Unmarshal(b, &got)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithRenderer(func(e core.Event) string { return "unlocked " + string(e.Achievement) }))
	sink.OnEvent(unlockEvent(t))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
	if got.Event.Achievement != "first_steps" || got.Text != "unlocked first_steps" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSink_FiltersEventTypes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL})
	sink.OnEvent(core.NewStatUpdated(1, core.StatWordsLearned, 1))
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("stat updates are not delivered by default")
	}

	sink = New([]string{srv.URL}, WithTypes(core.EventStatUpdated))
	sink.OnEvent(core.NewStatUpdated(1, core.StatWordsLearned, 1))
	sink.OnEvent(unlockEvent(t))
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

func TestSink_SignsBody(t *testing.T) {
	var valid atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte("s3cret"))
		mac.Write(b)
		valid.Store(r.Header.Get(SignatureHeader) == hex.EncodeToString(mac.Sum(nil)))
	}))
	defer srv.Close()

	New([]string{srv.URL}, WithSecret("s3cret")).OnEvent(unlockEvent(t))
	if !valid.Load() {
		t.Fatal("signature header missing or wrong")
	}
}

func TestSink_CountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, "http://127.0.0.1:0/unreachable"})
	sink.OnEvent(unlockEvent(t))
	if sink.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", sink.Failures())
	}
}

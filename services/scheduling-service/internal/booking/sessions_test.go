package booking

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessions(t *testing.T) {
	s := NewSessions(time.Minute)
	id := s.Create(State{Notes: "first"})

	got, err := s.Get(id)
	if err != nil || got.Notes != "first" {
		t.Fatalf("get: %+v %v", got, err)
	}

	boom := errors.New("boom")
	if _, err := s.Update(id, func(State) (State, error) { return State{Notes: "lost"}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got, _ := s.Get(id); got.Notes != "first" {
		t.Fatalf("failed update was stored: %q", got.Notes)
	}

	if _, err := s.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessions_SerializesUpdates(t *testing.T) {
	s := NewSessions(time.Minute)
	id := s.Create(State{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(id, func(st State) (State, error) {
				st.Notes += "x"
				return st, nil
			})
		}()
	}
	wg.Wait()
	got, _ := s.Get(id)
	if len(got.Notes) != 50 {
		t.Fatalf("lost updates: %d", len(got.Notes))
	}
}

func TestSessions_Expire(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	id := s.Create(State{})

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expired session kept: %d", s.Len())
	}
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"set_location","location":"virtual"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc, ok := a.(SetLocation); !ok || loc.Mode != "virtual" {
		t.Fatalf("unexpected action %#v", a)
	}
	if _, err := DecodeAction([]byte(`{"type":"set_location","location":"phone"}`)); err == nil {
		t.Fatal("expected error for unknown location")
	}
	if _, err := DecodeAction([]byte(`{"type":"teleport"}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

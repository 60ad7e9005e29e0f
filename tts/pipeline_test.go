package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/charlesneimog/pdftts/tts/segment"
)

// fakeStore is an in-memory ClipStore with scripted failures and delays.
type fakeStore struct {
	mu       sync.Mutex
	delay    time.Duration
	failures map[string]error
	calls    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{failures: make(map[string]error)}
}

func (s *fakeStore) fail(phrase string, err error) {
	s.mu.Lock()
	s.failures[phrase] = err
	s.mu.Unlock()
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeStore) calledPhrases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *fakeStore) Ensure(ctx context.Context, phrase string, opts SynthesisOptions) (Clip, error) {
	s.mu.Lock()
	s.calls = append(s.calls, phrase)
	delay := s.delay
	err := s.failures[phrase]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return Clip{}, err
	}
	return Clip{Key: phrase, Path: "/clips/" + phrase + ".mp3"}, nil
}

func testPhrases(n int) []segment.Phrase {
	phrases := make([]segment.Phrase, n)
	for i := range phrases {
		phrases[i] = segment.Phrase{Index: i, Text: fmt.Sprintf("phrase %d", i), Language: "en"}
	}
	return phrases
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.ThrottleDelay = 0
	cfg.BusyPoll = time.Millisecond
	cfg.StopTimeout = time.Second
	return cfg
}

func TestPageRunDeliversInOrder(t *testing.T) {
	store := newFakeStore()
	run := NewPageRun(0, testPhrases(10), SynthesisOptions{}, store, fastConfig(), nil)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for want := 0; want < 10; want++ {
		rp, ok := run.Next(ctx, want)
		if !ok {
			t.Fatalf("Next(%d) reported end of page", want)
		}
		if rp.Index != want {
			t.Fatalf("Next(%d) returned index %d", want, rp.Index)
		}
		if rp.Clip.Path == "" {
			t.Fatalf("phrase %d has no clip", want)
		}
	}

	if _, ok := run.Next(ctx, 10); ok {
		t.Error("Next past the last phrase reported a phrase")
	}
}

func TestPageRunSkipsFailedPhrase(t *testing.T) {
	store := newFakeStore()
	store.fail("phrase 1", errors.New("boom"))

	var mu sync.Mutex
	var skipped []int
	notify := func(msg Msg) {
		if m, ok := msg.(PhraseSkippedMsg); ok {
			mu.Lock()
			skipped = append(skipped, m.Index)
			mu.Unlock()
		}
	}

	run := NewPageRun(0, testPhrases(4), SynthesisOptions{}, store, fastConfig(), notify)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []int
	from := 0
	for {
		rp, ok := run.Next(ctx, from)
		if !ok {
			break
		}
		got = append(got, rp.Index)
		from = rp.Index + 1
	}

	want := []int{0, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("played %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("played %v, want %v", got, want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(skipped) != 1 || skipped[0] != 1 {
		t.Errorf("skipped %v, want [1]", skipped)
	}
}

func TestPageRunWaitFirst(t *testing.T) {
	store := newFakeStore()
	store.delay = 10 * time.Millisecond

	run := NewPageRun(0, testPhrases(3), SynthesisOptions{}, store, fastConfig(), nil)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !run.WaitFirst(ctx) {
		t.Fatal("WaitFirst reported no phrase")
	}
	if run.ReadyCount() == 0 {
		t.Error("ready list empty after WaitFirst")
	}
}

func TestPageRunWaitFirstEmptyPage(t *testing.T) {
	run := NewPageRun(0, nil, SynthesisOptions{}, newFakeStore(), fastConfig(), nil)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if run.WaitFirst(ctx) {
		t.Error("WaitFirst reported a phrase on an empty page")
	}
	if _, ok := run.Next(ctx, 0); ok {
		t.Error("Next reported a phrase on an empty page")
	}
}

func TestPageRunFirstPhraseReady(t *testing.T) {
	ready := make(chan struct{}, 1)
	notify := func(msg Msg) {
		if _, ok := msg.(FirstPhraseReadyMsg); ok {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	}

	run := NewPageRun(0, testPhrases(3), SynthesisOptions{}, newFakeStore(), fastConfig(), notify)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("no FirstPhraseReadyMsg")
	}
}

func TestPageRunProgress(t *testing.T) {
	var mu sync.Mutex
	var percents []float64
	notify := func(msg Msg) {
		if m, ok := msg.(ProgressMsg); ok {
			mu.Lock()
			percents = append(percents, m.Percent)
			mu.Unlock()
		}
	}

	run := NewPageRun(0, testPhrases(4), SynthesisOptions{}, newFakeStore(), fastConfig(), notify)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(percents)
		mu.Unlock()
		if n >= 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d progress events arrived", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(percents) != 4 {
		t.Fatalf("got %d progress events, want 4: %v", len(percents), percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Errorf("progress not increasing: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Errorf("final progress = %v, want 100", percents[len(percents)-1])
	}
}

func TestPageRunStopCancelsPending(t *testing.T) {
	store := newFakeStore()
	store.delay = 50 * time.Millisecond

	run := NewPageRun(0, testPhrases(20), SynthesisOptions{}, store, fastConfig(), nil)
	run.Start(context.Background())

	time.Sleep(5 * time.Millisecond)
	if !run.Stop(2 * time.Second) {
		t.Fatal("Stop timed out")
	}

	// No Ensure may start after the run retired.
	calls := store.callCount()
	time.Sleep(100 * time.Millisecond)
	if after := store.callCount(); after != calls {
		t.Errorf("synthesis calls grew from %d to %d after Stop", calls, after)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok := run.Next(ctx, 19); ok {
		t.Error("Next on a stopped run reported a phrase it never synthesized")
	}
}

func TestPageRunNextCanceledCaller(t *testing.T) {
	store := newFakeStore()
	store.delay = time.Hour

	run := NewPageRun(0, testPhrases(1), SynthesisOptions{}, store, fastConfig(), nil)
	run.Start(context.Background())
	defer run.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, ok := run.Next(ctx, 0); ok {
		t.Fatal("Next reported a phrase that cannot exist yet")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Next took %s to observe cancellation", elapsed)
	}
}

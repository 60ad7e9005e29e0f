package mock_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charlesneimog/pdftts/tts"
	"github.com/charlesneimog/pdftts/tts/engines/mock"
)

func collect(t *testing.T, chunks <-chan tts.Chunk, errc <-chan error) ([]byte, error) {
	t.Helper()

	var buf []byte
	for chunk := range chunks {
		if chunk.Type == tts.ChunkAudio {
			buf = append(buf, chunk.Data...)
		}
	}
	return buf, <-errc
}

func TestSynthesizeProducesAudio(t *testing.T) {
	e := mock.New()
	opts := tts.SynthesisOptions{Voice: "test-voice", Rate: "+5%"}

	chunks, errc := e.Synthesize(context.Background(), "hello", opts)
	data, err := collect(t, chunks, errc)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	for _, want := range []string{"hello", "test-voice", "+5%"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("audio %q missing %q", data, want)
		}
	}
	if e.CallCount() != 1 {
		t.Errorf("call count = %d, want 1", e.CallCount())
	}
}

func TestScriptedFailure(t *testing.T) {
	e := mock.New()
	boom := errors.New("boom")
	e.FailText("cursed", boom)

	chunks, errc := e.Synthesize(context.Background(), "cursed", tts.SynthesisOptions{})
	if _, err := collect(t, chunks, errc); !errors.Is(err, boom) {
		t.Errorf("err = %v, want scripted failure", err)
	}

	// Other texts are unaffected.
	chunks, errc = e.Synthesize(context.Background(), "fine", tts.SynthesisOptions{})
	if _, err := collect(t, chunks, errc); err != nil {
		t.Errorf("unscripted text failed: %v", err)
	}
}

func TestFailFirst(t *testing.T) {
	e := mock.New()
	e.FailFirst(2)

	for i := 0; i < 2; i++ {
		chunks, errc := e.Synthesize(context.Background(), "text", tts.SynthesisOptions{})
		if _, err := collect(t, chunks, errc); err == nil {
			t.Fatalf("call %d succeeded, want failure", i)
		}
	}

	chunks, errc := e.Synthesize(context.Background(), "text", tts.SynthesisOptions{})
	if _, err := collect(t, chunks, errc); err != nil {
		t.Errorf("call after budget failed: %v", err)
	}
}

func TestRecordsCalls(t *testing.T) {
	e := mock.New()

	for _, text := range []string{"one", "two", "three"} {
		chunks, errc := e.Synthesize(context.Background(), text, tts.SynthesisOptions{})
		if _, err := collect(t, chunks, errc); err != nil {
			t.Fatal(err)
		}
	}

	calls := e.Calls()
	if len(calls) != 3 || calls[0] != "one" || calls[2] != "three" {
		t.Errorf("calls = %v", calls)
	}
}

func TestDelayHonorsContext(t *testing.T) {
	e := mock.New()
	e.SetDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks, errc := e.Synthesize(ctx, "slow", tts.SynthesisOptions{})
	if _, err := collect(t, chunks, errc); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

package audio

import (
	"errors"
	"testing"
	"time"
)

func TestMockDeviceLifecycle(t *testing.T) {
	d := NewMockDevice(0)

	if err := d.Load("/clips/a.mp3"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.IsBusy() {
		t.Error("busy before Play")
	}
	if err := d.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	// Zero duration clips finish immediately.
	if d.IsBusy() {
		t.Error("busy after zero-duration clip")
	}

	if got := d.Played(); len(got) != 1 || got[0] != "/clips/a.mp3" {
		t.Errorf("played = %v", got)
	}
}

func TestMockDeviceBusyWindow(t *testing.T) {
	d := NewMockDevice(50 * time.Millisecond)

	if err := d.Load("/clips/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := d.Play(); err != nil {
		t.Fatal(err)
	}

	if !d.IsBusy() {
		t.Error("not busy right after Play")
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.IsBusy() {
		if time.Now().After(deadline) {
			t.Fatal("still busy long after the clip duration")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMockDeviceStopCutsPlayback(t *testing.T) {
	d := NewMockDevice(time.Hour)

	if err := d.Load("/clips/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := d.Play(); err != nil {
		t.Fatal(err)
	}
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	if d.IsBusy() {
		t.Error("busy after Stop")
	}
}

func TestMockDeviceErrorInjection(t *testing.T) {
	d := NewMockDevice(0)
	boom := errors.New("boom")

	d.LoadErr = boom
	if err := d.Load("/x.mp3"); !errors.Is(err, boom) {
		t.Errorf("Load err = %v", err)
	}
	d.LoadErr = nil
	d.PlayErr = boom
	if err := d.Play(); !errors.Is(err, boom) {
		t.Errorf("Play err = %v", err)
	}
}

func TestMockDeviceHistory(t *testing.T) {
	d := NewMockDevice(0)

	_ = d.Load("/a.mp3")
	_ = d.Play()
	_ = d.Stop()
	_ = d.Close()

	want := []string{"load:/a.mp3", "play:/a.mp3", "stop", "close"}
	got := d.History()
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

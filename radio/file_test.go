//go:build unix

package radio

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestFileDriverStreamsRefilledBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.s8")
	block := []int8{0, 90, 127, 90, 0, -90, -127, -90}

	dev, err := NewFileDriver(path).Open(0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rate, err := dev.SetSampleRate(8000)
	if err != nil {
		t.Fatalf("SetSampleRate: %v", err)
	}
	if rate != 8000 {
		t.Errorf("expected achieved rate 8000, got %v", rate)
	}

	var calls atomic.Int32
	refill := func(tr *Transfer) {
		calls.Add(1)
		tr.Signed = true
		tr.Samples = block
	}
	if err := dev.Start(refill); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := dev.Start(refill); err == nil {
		t.Error("expected second Start to fail while streaming")
	}

	time.Sleep(50 * time.Millisecond)
	if err := dev.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 || len(data)%len(block) != 0 {
		t.Fatalf("expected whole blocks in output, got %d bytes", len(data))
	}
	if int(calls.Load()) != len(data)/len(block) {
		t.Errorf("expected one block per refill, got %d refills for %d blocks", calls.Load(), len(data)/len(block))
	}
	for i, b := range data {
		if int8(b) != block[i%len(block)] {
			t.Fatalf("byte %d: expected %d, got %d", i, block[i%len(block)], int8(b))
		}
	}

	// 50ms at 8 kS/s is about 400 samples; pacing must keep it in that region.
	if len(data) > 8000 {
		t.Errorf("output not paced to the sample rate: %d samples in 50ms", len(data))
	}
}

func TestFileDriverRejectsBadRate(t *testing.T) {
	dev, err := NewFileDriver(filepath.Join(t.TempDir(), "out.s8")).Open(0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	if _, err := dev.SetSampleRate(0); err == nil {
		t.Error("expected an error for a zero sample rate")
	}
	if err := dev.Start(func(*Transfer) {}); err == nil {
		t.Error("expected Start to fail before a rate is set")
	}
}

func TestFileDriverStopsWithStalledReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.fifo")
	if err := unix.Mkfifo(path, 0o600); err != nil {
		t.Fatalf("Mkfifo: %v", err)
	}
	// A reader that is present but never reads, so the pipe fills up.
	reader, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer unix.Close(reader)

	dev, err := NewFileDriver(path).Open(0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()
	if _, err := dev.SetSampleRate(1e9); err != nil {
		t.Fatalf("SetSampleRate: %v", err)
	}

	block := make([]int8, 1280*1024)
	if err := dev.Start(func(tr *Transfer) { tr.Samples = block }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- dev.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind a full pipe")
	}
}

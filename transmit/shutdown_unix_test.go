//go:build unix

package transmit

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestInstalledSignalStopsTransmission(t *testing.T) {
	const d = 50 * time.Millisecond
	dev := newStubDevice(testBank())
	coord := NewCoordinator(context.Background())
	coord.Install()
	defer coord.Uninstall()

	c := newController(t, &stubDriver{dev: dev}, []byte{0, 1, 2, 3, 0}, d, coord, nil)
	c.opts.OnSymbol = func(position, tone int) {
		if position == 2 {
			go unix.Kill(unix.Getpid(), unix.SIGTERM)
		}
	}

	res, err := c.Run(coord.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Interrupted || res.Sent != 2 {
		t.Errorf("expected interruption after 2 symbols, got %+v", res)
	}
	if coord.Signal() != unix.SIGTERM {
		t.Errorf("expected SIGTERM, got %v", coord.Signal())
	}
	checkClosedOnce(t, dev, 1)
}

func TestBrokenPipeIgnored(t *testing.T) {
	coord := NewCoordinator(context.Background())
	coord.Install()
	defer coord.Uninstall()

	if err := unix.Kill(unix.Getpid(), unix.SIGPIPE); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	select {
	case <-coord.Context().Done():
		t.Fatal("SIGPIPE must not request shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSecondSignalExitsImmediately(t *testing.T) {
	coord := NewCoordinator(context.Background())
	exited := make(chan int, 1)
	coord.exit = func(code int) { exited <- code }
	coord.Install()
	defer coord.Uninstall()

	if err := unix.Kill(unix.Getpid(), unix.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	select {
	case <-coord.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("first signal did not request shutdown")
	}
	select {
	case code := <-exited:
		t.Fatalf("first signal must not exit, got code %d", code)
	default:
	}

	if err := unix.Kill(unix.Getpid(), unix.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("expected exit status 1, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("second signal did not force an exit")
	}
}

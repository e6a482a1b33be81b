//go:build unix

package radio

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// FileDriver streams samples into a regular file or a named pipe, paced at the
// configured sample rate. Useful for feeding another program or checking output
// offline without hardware attached.
type FileDriver struct {
	Path string
}

func NewFileDriver(path string) *FileDriver {
	return &FileDriver{Path: path}
}

func (d *FileDriver) Name() string {
	return "file"
}

// Milliseconds a writer waits for a stalled reader before checking for Stop again.
const pollTimeoutMs = 50

var errStopped = errors.New("stream stopped")

// Open ignores index; there is only ever one file. Opening a named pipe blocks
// until a reader shows up.
func (d *FileDriver) Open(index int) (Device, error) {
	log.Debugf("Opening sample sink %s", d.Path)
	fd, err := unix.Open(d.Path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	// Writes must never park the pump for good, or Stop would wait on it forever.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set %s non-blocking: %w", d.Path, err)
	}
	return &fileDevice{fd: fd, path: d.Path}, nil
}

type fileDevice struct {
	fd   int
	path string
	rate float64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (f *fileDevice) SetSampleRate(rate float64) (float64, error) {
	if !(rate > 0) {
		return 0, fmt.Errorf("sample rate must be positive, got %v", rate)
	}
	f.rate = rate
	return rate, nil
}

func (f *fileDevice) Start(refill RefillFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		return errors.New("stream already running")
	}
	if f.rate == 0 {
		return errors.New("sample rate not set")
	}
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go f.pump(refill, f.stop, f.done)
	return nil
}

func (f *fileDevice) pump(refill RefillFunc, stop, done chan struct{}) {
	defer close(done)

	var t Transfer
	var sent float64
	start := time.Now()
	for {
		select {
		case <-stop:
			return
		default:
		}

		t.Samples = nil
		refill(&t)
		t.DeviceError = false
		if len(t.Samples) == 0 {
			continue
		}

		if err := f.write(t.Samples, stop); errors.Is(err, errStopped) {
			return
		} else if err != nil {
			log.Debugf("Write to %s failed: %v", f.path, err)
			t.DeviceError = true
		}
		sent += float64(len(t.Samples))

		ahead := time.Duration(sent/f.rate*float64(time.Second)) - time.Since(start)
		if ahead > 0 {
			timer := time.NewTimer(ahead)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// write returns errStopped if stop closes while the reader is not keeping up.
func (f *fileDevice) write(samples []int8, stop <-chan struct{}) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples))
	for len(b) > 0 {
		n, err := unix.Write(f.fd, b)
		switch {
		case errors.Is(err, unix.EAGAIN):
			if err := f.waitWritable(stop); err != nil {
				return err
			}
			continue
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return err
		}
		b = b[n:]
	}
	return nil
}

func (f *fileDevice) waitWritable(stop <-chan struct{}) error {
	fds := []unix.PollFd{{Fd: int32(f.fd), Events: unix.POLLOUT}}
	for {
		select {
		case <-stop:
			return errStopped
		default:
		}

		fds[0].Revents = 0
		if _, err := unix.Poll(fds, pollTimeoutMs); err != nil && !errors.Is(err, unix.EINTR) {
			return err
		}
		if fds[0].Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0 {
			return nil
		}
	}
}

func (f *fileDevice) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop == nil {
		return nil
	}
	close(f.stop)
	<-f.done
	f.stop, f.done = nil, nil
	return nil
}

func (f *fileDevice) Close() error {
	return unix.Close(f.fd)
}

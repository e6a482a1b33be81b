package audio

import (
	"reflect"
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/jrwynneiii/wsprdac/radio"
)

// PortAudio only accepts callbacks whose parameters after the buffers are, in order,
// the time info and the status flags.
func TestProcessIsAStreamCallback(t *testing.T) {
	var a Device
	want := reflect.TypeOf(func([]int8, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) {})
	if got := reflect.TypeOf(a.process); got != want {
		t.Errorf("callback has type %v, want %v", got, want)
	}
}

func TestProcessWrapsRefilledBuffer(t *testing.T) {
	block := []int8{1, 2, 3, 4, 5}
	var refills, errs int
	refill := radio.RefillFunc(func(tr *radio.Transfer) {
		refills++
		if tr.DeviceError {
			errs++
		}
		tr.Signed = true
		tr.Samples = block
	})

	var a Device
	a.refill.Store(&refill)

	out := make([]int8, 12)
	a.process(out, portaudio.StreamCallbackTimeInfo{}, portaudio.OutputUnderflow)
	want := []int8{1, 2, 3, 4, 5, 1, 2, 3, 4, 5, 1, 2}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("expected %v, got %v", want, out)
	}
	if errs != 1 {
		t.Errorf("expected the underflow reported once, got %d", errs)
	}

	// The next block continues where the last one stopped.
	a.process(out[:4], portaudio.StreamCallbackTimeInfo{}, 0)
	if want := []int8{3, 4, 5, 1}; !reflect.DeepEqual(out[:4], want) {
		t.Errorf("expected %v, got %v", want, out[:4])
	}
	if errs != 1 {
		t.Errorf("no new device error expected, got %d", errs)
	}
}

func TestProcessSilentWithoutRefill(t *testing.T) {
	var a Device
	out := []int8{9, 9, 9}
	a.process(out, portaudio.StreamCallbackTimeInfo{}, 0)
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: expected silence, got %d", i, v)
		}
	}
}

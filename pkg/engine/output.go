package engine

import (
	"fmt"

	"soundstage/internal/logger"
)

// Output is a pull-based audio device. Start begins calling render from
// the backend's own thread with interleaved stereo float32 buffers.
type Output interface {
	Start(render func(out []float32)) error
	Close() error
}

// NewOutput builds the output backend named in the configuration.
// "none" (and the empty string) is a silent backend used headless and in
// tests.
func NewOutput(backend string, sampleRate, bufferSize int, log *logger.Logger) (Output, error) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	switch backend {
	case "portaudio":
		return &portAudioOutput{sampleRate: sampleRate, bufferSize: bufferSize, log: log}, nil
	case "oto":
		return &otoOutput{sampleRate: sampleRate, bufferSize: bufferSize, log: log}, nil
	case "none", "":
		return nullOutput{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// nullOutput renders nothing. The engine still runs all of its timing.
type nullOutput struct{}

func (nullOutput) Start(func(out []float32)) error { return nil }
func (nullOutput) Close() error                    { return nil }

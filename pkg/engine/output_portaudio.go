package engine

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"soundstage/internal/logger"
)

// portAudioOutput plays through the default PortAudio device
type portAudioOutput struct {
	sampleRate int
	bufferSize int
	log        *logger.Logger
	stream     *portaudio.Stream
}

func (o *portAudioOutput) Start(render func(out []float32)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %v", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(o.sampleRate), o.bufferSize, func(out []float32) {
		render(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open audio stream: %v", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start audio stream: %v", err)
	}

	o.stream = stream
	o.log.Debugf("PortAudio stream open: %d Hz, %d frame buffer", o.sampleRate, o.bufferSize)
	return nil
}

func (o *portAudioOutput) Close() error {
	if o.stream != nil {
		if err := o.stream.Stop(); err != nil {
			o.log.Warnf("failed to stop audio stream: %v", err)
		}
		o.stream.Close()
		o.stream = nil
	}
	return portaudio.Terminate()
}

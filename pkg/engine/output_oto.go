package engine

import (
	"fmt"

	"github.com/hajimehoshi/oto/v2"

	"soundstage/internal/logger"
)

// otoOutput plays through oto, which pulls PCM from an io.Reader
type otoOutput struct {
	sampleRate int
	bufferSize int
	log        *logger.Logger
	player     oto.Player
}

func (o *otoOutput) Start(render func(out []float32)) error {
	ctx, ready, err := oto.NewContext(o.sampleRate, 2, 2)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %v", err)
	}
	<-ready

	o.player = ctx.NewPlayer(&renderReader{
		render: render,
		buf:    make([]float32, o.bufferSize*2),
	})
	o.player.Play()
	o.log.Debugf("oto player started: %d Hz, %d frame buffer", o.sampleRate, o.bufferSize)
	return nil
}

func (o *otoOutput) Close() error {
	if o.player != nil {
		err := o.player.Close()
		o.player = nil
		return err
	}
	return nil
}

// renderReader adapts the pull render callback to the io.Reader oto
// consumes, converting float32 samples to 16-bit little-endian stereo PCM.
type renderReader struct {
	render func(out []float32)
	buf    []float32
}

func (r *renderReader) Read(p []byte) (int, error) {
	if len(p) < 4 {
		return 0, nil
	}
	frames := len(p) / 4
	if max := len(r.buf) / 2; frames > max {
		frames = max
	}

	buf := r.buf[:frames*2]
	r.render(buf)

	for i, v := range buf {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		p[2*i] = byte(s)
		p[2*i+1] = byte(s >> 8)
	}
	return frames * 4, nil
}

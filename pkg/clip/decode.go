package clip

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Load decodes an audio file into a Clip, choosing the decoder by extension.
// Supported formats: wav, mp3, ogg.
func Load(path string) (*Clip, error) {
	var (
		c   *Clip
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		c, err = decodeWAV(path)
	case ".mp3":
		c, err = decodeMP3(path)
	case ".ogg":
		c, err = decodeOGG(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}

	if c.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyClip, path)
	}

	c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return c, nil
}

// decodeWAV reads a PCM wav file
func decodeWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %v", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav data: %v", err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// decodeMP3 reads an mp3 file. go-mp3 always outputs 16-bit stereo.
func decodeMP3(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 file: %v", err)
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3 data: %v", err)
	}

	// 16-bit little-endian interleaved stereo
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768.0
	}

	return &Clip{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   2,
	}, nil
}

// decodeOGG reads an ogg/vorbis file
func decodeOGG(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ogg file: %v", err)
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
	}

	return &Clip{
		Samples:    data,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}

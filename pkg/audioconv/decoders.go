package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

func decodeWAV(r io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, 0, 0, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch, sr := 1, int(dec.SampleRate)
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return intSliceToFloat32(pb.Data, bd), ch, sr, nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, 0, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, 0, 0, err
	}
	return int16SliceToFloat32(ints), 2, dec.SampleRate(), nil
}

func decodeVorbis(r io.ReadSeeker) ([]float32, int, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, 0, errors.New("invalid ogg/vorbis stream")
	}
	return pcm, format.Channels, format.SampleRate, nil
}

const opusRate = 48000

func decodeOpus(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var (
		pcm []float32
		buf = make([]int16, opusRate*ch/2)
	)
	for {
		n, err := dec.Read(buf) // samples per channel
		if n > 0 {
			pcm = append(pcm, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
	}
	if len(pcm) == 0 {
		return nil, 0, 0, errors.New("empty opus stream")
	}
	return pcm, ch, opusRate, nil
}

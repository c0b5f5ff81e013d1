package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for PCM files with a
// single fmt chunk directly followed by the data chunk.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16 // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// FromWAV parses the WAV header from r and returns a Source positioned at the
// start of the PCM payload, carrying the format declared by the file.
//
// Only uncompressed PCM is supported. Files with extra chunks between "fmt "
// and "data" (e.g., LIST metadata) are handled by skipping unknown chunks.
func FromWAV(r io.Reader) (*Source, error) {
	var hdr wavHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("audio: read wav header: %w", err)
	}
	if string(hdr.ChunkID[:]) != "RIFF" || string(hdr.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("audio: not a RIFF/WAVE file")
	}
	if string(hdr.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("audio: missing fmt chunk")
	}
	if hdr.AudioFormat != 1 {
		return nil, fmt.Errorf("audio: unsupported wav encoding %d (only PCM)", hdr.AudioFormat)
	}
	if hdr.BitsPerSample%8 != 0 || hdr.BitsPerSample == 0 {
		return nil, fmt.Errorf("audio: unsupported bit depth %d", hdr.BitsPerSample)
	}

	// The fmt chunk may carry extension bytes beyond the 16 we decoded.
	if extra := int64(hdr.Subchunk1Size) - 16; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, extra); err != nil {
			return nil, fmt.Errorf("audio: skip fmt extension: %w", err)
		}
	}

	dataSize, err := seekDataChunk(r)
	if err != nil {
		return nil, err
	}

	format := Format{
		SampleRate:  int(hdr.SampleRate),
		Channels:    int(hdr.NumChannels),
		SampleWidth: int(hdr.BitsPerSample) / 8,
	}
	return NewSource(io.LimitReader(r, dataSize), dataSize, format)
}

// seekDataChunk consumes chunks from r until the "data" chunk is found and
// returns its declared size, leaving r positioned at the first PCM byte.
func seekDataChunk(r io.Reader) (int64, error) {
	for {
		var id [4]byte
		var size uint32
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return 0, fmt.Errorf("audio: missing data chunk: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return 0, fmt.Errorf("audio: read chunk size: %w", err)
		}
		if string(id[:]) == "data" {
			return int64(size), nil
		}
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return 0, fmt.Errorf("audio: skip %q chunk: %w", id, err)
		}
	}
}

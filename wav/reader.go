// WAVE file reading: sample data plus the loop point metadata the
// sampler's preset loader needs (cue points and sustain-loop regions),
// which github.com/go-audio/wav does not expose. We walk chunks
// ourselves with github.com/go-audio/riff instead, the same low-level
// layer go-audio/wav itself is built on.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// MalformedWave reports a structural problem with a WAVE file: a missing
// required chunk, an unsupported encoding, or truncated sample data.
type MalformedWave struct {
	Path   string
	Reason string
}

func (e *MalformedWave) Error() string {
	return fmt.Sprintf("malformed wave %q: %s", e.Path, e.Reason)
}

// Loop describes a single sustain-loop region in sample frames, taken
// from the first entry of a 'smpl' chunk's loop list.
type Loop struct {
	Start int
	End   int
}

// Sound is the decoded result of Read: interleaved stereo 16-bit PCM at
// whatever sample rate the file declared, plus at most one loop region.
type Sound struct {
	SampleRate int
	NumChans   int
	Data       []int16 // interleaved, len == NumChans*NumFrames
	NumFrames  int
	Loop       *Loop

	// CuePoints holds every 'cue ' marker's sample offset, keyed by cue
	// ID. Retained for inspection only; playback never consults them —
	// only 'smpl' contributes a loop.
	CuePoints map[uint32]uint32
}

type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// sampleChunkHeader mirrors the fixed-size head of a 'smpl' chunk; the loop
// list (sampleLoop records) follows immediately after in the stream.
type sampleChunkHeader struct {
	Manufacturer  uint32
	Product       uint32
	SamplePeriod  uint32
	MIDIUnityNote uint32
	MIDIPitchFrac uint32
	SMPTEFormat   uint32
	SMPTEOffset   uint32
	NumLoops      uint32
	SamplerData   uint32
}

type sampleLoop struct {
	CuePointID uint32
	Type       uint32
	Start      uint32
	End        uint32
	Fraction   uint32
	PlayCount  uint32
}

// Read decodes path's chunks into a Sound. Only PCM-encoded 16-bit and
// 24-bit mono or stereo files are supported; 24-bit samples are
// downconverted to 16-bit by taking the high two bytes of each
// little-endian 24-bit sample, matching what a 16-bit playback engine
// would reconstruct from the same source with no dithering.
func Read(r io.Reader, path string) (*Sound, error) {
	parser := riff.New(r)

	var format *fmtChunk
	var rawData []byte
	var loop *Loop
	var cuePoints map[uint32]uint32
	first := true

	for {
		chunk, err := parser.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedWave{Path: path, Reason: "truncated chunk list"}
		}
		if first {
			first = false
			if parser.Format != riff.WavFormatType {
				return nil, &MalformedWave{Path: path, Reason: "RIFF form is not WAVE"}
			}
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var f fmtChunk
			if err := binary.Read(chunk.R, binary.LittleEndian, &f); err != nil {
				return nil, &MalformedWave{Path: path, Reason: "short fmt chunk"}
			}
			if f.AudioFormat != 1 {
				return nil, &MalformedWave{Path: path, Reason: "not PCM encoded"}
			}
			if f.BitsPerSample != 16 && f.BitsPerSample != 24 {
				return nil, &MalformedWave{Path: path, Reason: "unsupported bit depth"}
			}
			if f.NumChannels != 1 && f.NumChannels != 2 {
				return nil, &MalformedWave{Path: path, Reason: "unsupported channel count"}
			}
			format = &f
			chunk.Drain()

		case "data":
			if format == nil {
				return nil, &MalformedWave{Path: path, Reason: "data chunk before fmt chunk"}
			}
			buf := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk.R, buf); err != nil {
				return nil, &MalformedWave{Path: path, Reason: "short data chunk"}
			}
			rawData = buf

		case "cue ":
			var numPoints uint32
			if err := binary.Read(chunk.R, binary.LittleEndian, &numPoints); err != nil {
				chunk.Drain()
				continue
			}
			cuePoints = make(map[uint32]uint32, numPoints)
			for i := uint32(0); i < numPoints; i++ {
				var id, position, dataChunkID, chunkStart, blockStart, sampleOffset uint32
				if binary.Read(chunk.R, binary.LittleEndian, &id) != nil {
					break
				}
				binary.Read(chunk.R, binary.LittleEndian, &position)
				binary.Read(chunk.R, binary.LittleEndian, &dataChunkID)
				binary.Read(chunk.R, binary.LittleEndian, &chunkStart)
				binary.Read(chunk.R, binary.LittleEndian, &blockStart)
				binary.Read(chunk.R, binary.LittleEndian, &sampleOffset)
				cuePoints[id] = sampleOffset
			}
			chunk.Drain()

		case "smpl":
			var hdr sampleChunkHeader
			if err := binary.Read(chunk.R, binary.LittleEndian, &hdr); err != nil {
				chunk.Drain()
				continue
			}
			if hdr.NumLoops > 0 {
				var sl sampleLoop
				if err := binary.Read(chunk.R, binary.LittleEndian, &sl); err == nil {
					loop = &Loop{Start: int(sl.Start), End: int(sl.End)}
				}
			}
			chunk.Drain()

		default:
			chunk.Drain()
		}
	}

	if format == nil {
		return nil, &MalformedWave{Path: path, Reason: "missing fmt chunk"}
	}
	if rawData == nil {
		return nil, &MalformedWave{Path: path, Reason: "missing data chunk"}
	}

	data, numFrames := decodeFrames(rawData, int(format.BitsPerSample), int(format.NumChannels))
	loop = validateLoop(loop, numFrames)

	return &Sound{
		SampleRate: int(format.SampleRate),
		NumChans:   2,
		Data:       data,
		NumFrames:  numFrames,
		Loop:       loop,
		CuePoints:  cuePoints,
	}, nil
}

// validateLoop enforces §3's "loopEnd < N" invariant against the file's
// actual decoded frame count, plus the two trailing guard frames §4.1's
// playback frame count (loopEnd+2) needs to exist. A 'smpl' chunk is
// untrusted input: nothing stops an encoder from writing a loop end at
// or past NumFrames, which would otherwise let the mixer index past the
// end of Data. An out-of-range End is capped to the last frame that
// leaves room for both guard frames; if the sample is too short for
// that, the loop is dropped entirely rather than played back incorrectly.
func validateLoop(loop *Loop, numFrames int) *Loop {
	if loop == nil {
		return nil
	}
	if numFrames < 2 {
		return nil
	}
	maxEnd := numFrames - 2 // Frames() = End+2 must not exceed numFrames
	start, end := loop.Start, loop.End
	if end > maxEnd {
		end = maxEnd
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return &Loop{Start: start, End: end}
}

// decodeFrames converts raw PCM bytes of the given bit depth and channel
// count into interleaved stereo int16, duplicating a mono source across
// both channels.
func decodeFrames(raw []byte, bits, chans int) ([]int16, int) {
	bytesPerSample := bits / 8
	frameBytes := bytesPerSample * chans
	numFrames := len(raw) / frameBytes

	out := make([]int16, numFrames*2)
	for i := 0; i < numFrames; i++ {
		base := i * frameBytes
		l := decodeSample(raw[base:base+bytesPerSample], bits)
		var r int16
		if chans == 2 {
			r = decodeSample(raw[base+bytesPerSample:base+2*bytesPerSample], bits)
		} else {
			r = l
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out, numFrames
}

func decodeSample(b []byte, bits int) int16 {
	if bits == 16 {
		return int16(binary.LittleEndian.Uint16(b))
	}
	// 24-bit little-endian: keep the high 16 bits as the downconverted
	// sample, i.e. bytes[1] and bytes[2].
	return int16(binary.LittleEndian.Uint16(b[1:3]))
}

package harness

import (
	"bytes"
	"encoding/binary"
	"os"
)

// Fixture audio parameters: 2 seconds of 44.1kHz mono 16-bit PCM.
const (
	wavSampleRate = 44100
	wavSeconds    = 2
	wavSamples    = wavSampleRate * wavSeconds
)

// WriteRampWAV synthesizes the test input: a linear amplitude ramp from
// silence to 10000, enough signal for the service to watermark.
func WriteRampWAV(path string) error {
	dataSize := wavSamples * 2 // 16-bit mono

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize)) //nolint:errcheck // bytes.Buffer cannot fail
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))               //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(1))                //nolint:errcheck // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))                //nolint:errcheck // mono
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate))    //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate*2))  //nolint:errcheck // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))                //nolint:errcheck // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))               //nolint:errcheck // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize)) //nolint:errcheck

	for i := 0; i < wavSamples; i++ {
		sample := int16(10000 * i / wavSamples)
		binary.Write(&buf, binary.LittleEndian, sample) //nolint:errcheck
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

package audio

import (
	"encoding/binary"
	"math"
)

// EncodeWAVFloat32 wraps interleaved samples in a WAV container with
// IEEE float encoding (format tag 3).
func EncodeWAVFloat32(samples []float32, sampleRate, channels int) []byte {
	dataSize := len(samples) * 4
	out := make([]byte, 44+dataSize)
	writeWAVHeader(out, 3, sampleRate, channels, 32, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// EncodeWAVPCM16 wraps interleaved samples in a WAV container with
// 16-bit PCM encoding (format tag 1), the widest-compatibility form.
// Samples are clamped to full scale before quantization.
func EncodeWAVPCM16(samples []float32, sampleRate, channels int) []byte {
	dataSize := len(samples) * 2
	out := make([]byte, 44+dataSize)
	writeWAVHeader(out, 1, sampleRate, channels, 16, dataSize)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(v))
	}
	return out
}

func writeWAVHeader(out []byte, format uint16, sampleRate, channels, bits, dataSize int) {
	bytesPerSample := bits / 8
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], format)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(bits))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
}

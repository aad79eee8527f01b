// Package vad detects speech activity in a waveform and turns it into an
// ordered sequence of speech intervals.
package vad

import (
	"encoding/binary"
	"fmt"
	"math"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// FrameClassifier decides whether a single fixed-size audio frame contains
// speech. Samples are mono floats in [-1, 1] at the given sample rate.
type FrameClassifier interface {
	IsSpeech(frame []float64, sampleRate int) (bool, error)
}

// Compile-time interface implementation checks.
var (
	_ FrameClassifier = (*WebRTCClassifier)(nil)
	_ FrameClassifier = (*EnergyClassifier)(nil)
)

// DefaultEnergyThreshold is the RMS energy above which a frame counts as
// speech on a [-1, 1]-normalized signal.
const DefaultEnergyThreshold = 0.02

// EnergyClassifier is the model-free fallback: a frame is speech when its
// root-mean-square energy exceeds a fixed threshold.
type EnergyClassifier struct {
	threshold float64
}

// NewEnergyClassifier creates an EnergyClassifier.
// A non-positive threshold selects DefaultEnergyThreshold.
func NewEnergyClassifier(threshold float64) *EnergyClassifier {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyClassifier{threshold: threshold}
}

// IsSpeech reports whether the frame's RMS energy exceeds the threshold.
func (c *EnergyClassifier) IsSpeech(frame []float64, _ int) (bool, error) {
	if len(frame) == 0 {
		return false, nil
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return rms > c.threshold, nil
}

// WebRTCClassifier scores frames with the WebRTC voice activity detector.
// It accepts only int16-quantized PCM at the canonical 16 kHz rate and one
// of the three legal frame durations; frames are quantized on the fly.
type WebRTCClassifier struct {
	vad *webrtcvad.VAD
}

// NewWebRTCClassifier creates a WebRTCClassifier with the given
// aggressiveness (0 = least aggressive filtering, 3 = most).
func NewWebRTCClassifier(aggressiveness int) (*WebRTCClassifier, error) {
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAggressiveness, aggressiveness)
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create webrtc vad: %w", err)
	}
	if err := v.SetMode(aggressiveness); err != nil {
		return nil, fmt.Errorf("set vad mode %d: %w", aggressiveness, err)
	}

	return &WebRTCClassifier{vad: v}, nil
}

// IsSpeech quantizes the frame to int16 little-endian PCM and asks the
// WebRTC detector.
func (c *WebRTCClassifier) IsSpeech(frame []float64, sampleRate int) (bool, error) {
	buf := make([]byte, len(frame)*2)
	for i, s := range frame {
		s = max(-1, min(1, s))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}

	active, err := c.vad.Process(sampleRate, buf)
	if err != nil {
		return false, fmt.Errorf("vad process frame: %w", err)
	}
	return active, nil
}

package vad

import "errors"

// ErrInvalidFrameDuration indicates a frame duration outside 10/20/30 ms.
var ErrInvalidFrameDuration = errors.New("frame duration must be 10, 20, or 30 ms")

// ErrInvalidAggressiveness indicates a VAD aggressiveness outside 0-3.
var ErrInvalidAggressiveness = errors.New("aggressiveness must be between 0 and 3")

// ErrInvalidMinDuration indicates a non-positive minimum segment duration.
var ErrInvalidMinDuration = errors.New("minimum segment duration must be positive")

package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrAudioRead indicates the source audio could not be decoded or resampled.
var ErrAudioRead = errors.New("cannot read audio source")

// ErrExtraction indicates a sub-clip could not be extracted from the source.
var ErrExtraction = errors.New("segment extraction failed")

// ErrConcatenation indicates clips could not be joined into one output file.
var ErrConcatenation = errors.New("audio concatenation failed")

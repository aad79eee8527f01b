package voiceprint

import "errors"

// ErrModelUnavailable indicates the speaker embedding service could not be
// reached or failed to produce an embedding.
var ErrModelUnavailable = errors.New("voiceprint model unavailable")

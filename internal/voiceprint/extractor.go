package voiceprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Extractor maps an audio clip to a Voiceprint. Implementations must be
// deterministic for identical input, except for the explicitly opt-in
// RandomExtractor.
type Extractor interface {
	Embed(ctx context.Context, wavPath string) (Voiceprint, error)
}

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time interface implementation checks.
var (
	_ Extractor = (*HTTPExtractor)(nil)
	_ Extractor = (*RandomExtractor)(nil)
)

// defaultEmbedTimeout bounds a single embedding request. Encoding a clip is
// CPU-bound on the service side and scales with clip length.
const defaultEmbedTimeout = 60 * time.Second

// HTTPExtractor obtains voiceprints from a speaker-embedding service: the
// clip is uploaded as multipart form data and the service answers with a
// JSON embedding vector.
type HTTPExtractor struct {
	baseURL string
	client  httpDoer
}

// HTTPExtractorOption configures an HTTPExtractor.
type HTTPExtractorOption func(*HTTPExtractor)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(c httpDoer) HTTPExtractorOption {
	return func(e *HTTPExtractor) { e.client = c }
}

// NewHTTPExtractor creates an HTTPExtractor for the embedding service at
// baseURL.
func NewHTTPExtractor(baseURL string, opts ...HTTPExtractorOption) *HTTPExtractor {
	e := &HTTPExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultEmbedTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// embedResponse is the embedding service's answer.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed uploads the clip and returns the decoded embedding vector.
// All transport and service failures are classified as ErrModelUnavailable.
func (e *HTTPExtractor) Embed(ctx context.Context, wavPath string) (Voiceprint, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	f, err := os.Open(wavPath) // #nosec G304 -- path comes from internal extraction
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy clip to form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %s: %s", ErrModelUnavailable, resp.Status, string(msg))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrModelUnavailable, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrModelUnavailable)
	}

	return Voiceprint(out.Embedding), nil
}

// DefaultRandomDim matches the reference encoder's embedding dimension.
const DefaultRandomDim = 256

// RandomExtractor substitutes a freshly seeded uniform random vector for
// every clip. Similarities computed from it are meaningless; it exists only
// for demo runs without the embedding service and must never be selected
// implicitly.
type RandomExtractor struct {
	dim  int
	seed func() int64
}

// RandomExtractorOption configures a RandomExtractor.
type RandomExtractorOption func(*RandomExtractor)

// WithSeedFunc sets the per-call seed source (for deterministic tests).
func WithSeedFunc(fn func() int64) RandomExtractorOption {
	return func(e *RandomExtractor) { e.seed = fn }
}

// NewRandomExtractor creates a RandomExtractor producing vectors of the
// given dimension. A non-positive dim selects DefaultRandomDim.
func NewRandomExtractor(dim int, opts ...RandomExtractorOption) *RandomExtractor {
	if dim <= 0 {
		dim = DefaultRandomDim
	}
	e := &RandomExtractor{
		dim:  dim,
		seed: func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns a vector of uniform values in [-1, 1), seeded per call.
func (e *RandomExtractor) Embed(_ context.Context, _ string) (Voiceprint, error) {
	r := rand.New(rand.NewSource(e.seed())) // #nosec G404 -- demo-only placeholder vector
	v := make(Voiceprint, e.dim)
	for i := range v {
		v[i] = r.Float64()*2 - 1
	}
	return v, nil
}

package resize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// pngCompression is the fixed compression level sent to the remote service
// for PNG derivatives; the quality knob only applies to lossy encodings.
const pngCompression = 9

// httpDoer is the minimal HTTP client surface the remote backend needs, kept
// as an interface so tests can substitute transports.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteBackend delegates the resize to an imaginary-style HTTP service. It
// trusts the service's resize fidelity completely: no local pixel work, no
// orientation handling, dimensions taken from the response headers.
type RemoteBackend struct {
	baseURL       string
	sourceBaseURL string
	client        httpDoer
	logger        *slog.Logger
}

// NewRemoteBackend wires the remote service endpoint and the absolute-URL
// base under which the service can fetch source images.
func NewRemoteBackend(baseURL, sourceBaseURL string, client httpDoer, logger *slog.Logger) *RemoteBackend {
	return &RemoteBackend{
		baseURL:       strings.TrimRight(baseURL, "/"),
		sourceBaseURL: strings.TrimRight(sourceBaseURL, "/"),
		client:        client,
		logger:        logger,
	}
}

// Name identifies the backend in configuration and telemetry.
func (b *RemoteBackend) Name() string { return "imaginary" }

// Resize issues one synchronous request to the remote service and streams the
// response body into the cache path. Any non-2xx status is a failure; the
// error payload is parsed for diagnostics only.
func (b *RemoteBackend) Resize(ctx context.Context, job Job) (BackendResult, error) {
	if b.client == nil {
		return BackendResult{}, fmt.Errorf("resize: remote backend: http client missing")
	}
	if b.baseURL == "" {
		return BackendResult{}, fmt.Errorf("resize: remote backend: endpoint not configured")
	}
	if b.sourceBaseURL == "" {
		return BackendResult{}, fmt.Errorf("resize: remote backend: source base url not configured")
	}

	query := url.Values{}
	query.Set("type", string(job.Encoding))
	query.Set("url", b.sourceBaseURL+"/"+strings.TrimPrefix(job.SourceRel, "/"))
	query.Set("stripmeta", strconv.FormatBool(job.StripMetadata))
	if job.Encoding == EncodingPNG {
		query.Set("compression", strconv.Itoa(pngCompression))
	} else {
		query.Set("quality", strconv.Itoa(job.Quality))
	}
	if job.Width > 0 {
		query.Set("width", strconv.Itoa(job.Width))
	}
	if job.Height > 0 {
		query.Set("height", strconv.Itoa(job.Height))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: remote backend: build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: remote backend: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Warn("remote resize rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("source", job.SourceRel),
			slog.String("message", remoteErrorMessage(resp.Body)))
		return BackendResult{}, fmt.Errorf("resize: remote backend: unexpected status %d", resp.StatusCode)
	}

	width, werr := strconv.Atoi(resp.Header.Get("Image-Width"))
	height, herr := strconv.Atoi(resp.Header.Get("Image-Height"))
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return BackendResult{}, fmt.Errorf("resize: remote backend: missing dimension headers")
	}

	if err := writeFileAtomic(job.DestAbs, resp.Body); err != nil {
		return BackendResult{}, err
	}

	b.logger.Debug("remote resize complete",
		slog.String("source", job.SourceRel),
		slog.String("dest", job.DestAbs),
		slog.Int("width", width),
		slog.Int("height", height))
	return BackendResult{Width: width, Height: height}, nil
}

// remoteErrorMessage extracts a human-readable message from an imaginary
// error payload, falling back to the raw body.
func remoteErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/l0p7/imgctrl/internal/resize"
)

// Engine is the minimal surface the HTTP facade needs from the resize
// orchestrator, kept as an interface so handler tests can stub it.
type Engine interface {
	Produce(ctx context.Context, req resize.Request) (resize.Result, error)
}

// ImageHandler resolves derivative requests through the engine and serves
// the cached file.
type ImageHandler struct {
	engine  Engine
	rootAbs string
	logger  *slog.Logger
}

// NewImageHandler wires the HTTP facade to the resize engine. rootAbs is the
// filesystem root that cache paths resolve against.
func NewImageHandler(engine Engine, rootAbs string, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		engine:  engine,
		rootAbs: rootAbs,
		logger:  logger.With(slog.String("agent", "http")),
	}
}

// ServeHTTP answers GET /img?src=photos/a.jpg&width=300&type=webp&quality=80.
// Exactly one of width/height must be set; type defaults to webp and quality
// to the configured default when omitted.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		http.Error(w, "resize engine unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Produce(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, resize.ErrSourceMissing):
			status = http.StatusNotFound
		case errors.Is(err, resize.ErrInvalidRequest), errors.Is(err, resize.ErrUnsupportedEncoding):
			status = http.StatusBadRequest
		}
		h.logger.Warn("derivative request failed",
			slog.String("source", req.SourcePath),
			slog.Int("status", status),
			slog.Any("error", err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	if result.Width > 0 && result.Height > 0 {
		w.Header().Set("Image-Width", strconv.Itoa(result.Width))
		w.Header().Set("Image-Height", strconv.Itoa(result.Height))
	}
	w.Header().Set("Content-Type", "image/"+string(req.Encoding))
	http.ServeFile(w, r, filepath.Join(h.rootAbs, filepath.FromSlash(result.Path)))
}

func parseRequest(r *http.Request) (resize.Request, error) {
	query := r.URL.Query()

	source := strings.TrimSpace(query.Get("src"))
	if source == "" {
		return resize.Request{}, fmt.Errorf("src parameter required")
	}

	width, err := parseDimension(query.Get("width"))
	if err != nil {
		return resize.Request{}, fmt.Errorf("width: %w", err)
	}
	height, err := parseDimension(query.Get("height"))
	if err != nil {
		return resize.Request{}, fmt.Errorf("height: %w", err)
	}
	if width == 0 && height == 0 {
		return resize.Request{}, fmt.Errorf("one of width or height required")
	}

	encodingName := query.Get("type")
	if encodingName == "" {
		encodingName = "webp"
	}
	encoding, err := resize.ParseEncoding(encodingName)
	if err != nil {
		return resize.Request{}, fmt.Errorf("type: unsupported encoding %q", encodingName)
	}

	quality := 0
	if raw := query.Get("quality"); raw != "" {
		quality, err = strconv.Atoi(raw)
		if err != nil || quality < 0 || quality > 100 {
			return resize.Request{}, fmt.Errorf("quality: must be an integer between 0 and 100")
		}
	}

	return resize.Request{
		SourcePath: source,
		Width:      width,
		Height:     height,
		Encoding:   encoding,
		Quality:    quality,
	}, nil
}

func parseDimension(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return value, nil
}

// HealthHandler reports liveness.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

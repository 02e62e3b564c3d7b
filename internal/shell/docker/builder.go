package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	coredeployment "github.com/artpar/hoster-template/internal/core/deployment"
	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/shell/template"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/google/uuid"
)

// =============================================================================
// Image Builder
// =============================================================================

// BuilderConfig configures the ImageBuilder.
type BuilderConfig struct {
	ImagePrefix string // repository prefix, "hoster" if empty
	Platform    string // target platform, daemon default if empty
}

// ImageBuilder builds project images with the Docker daemon.
// It implements template.Builder.
type ImageBuilder struct {
	docker Client
	logger *slog.Logger
	config BuilderConfig
}

// NewImageBuilder creates a new image builder.
func NewImageBuilder(docker Client, logger *slog.Logger, config BuilderConfig) *ImageBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageBuilder{
		docker: docker,
		logger: logger,
		config: config,
	}
}

// Build builds the image for req.ProjectRoot using the Dockerfile already
// written there. Every line of build output is written to req.Stream as a
// verbose event. A failing build returns *template.BuildError carrying the
// output collected so far.
func (b *ImageBuilder) Build(ctx context.Context, req template.BuildRequest) (domain.Build, error) {
	repository := coredeployment.ImageRepository(b.config.ImagePrefix, req.Identity, req.ProjectRoot)
	tag := coredeployment.ImageTag(repository, uuid.New().String())

	b.logger.Info("building image",
		"image", tag,
		"project", req.ProjectRoot,
		"platform", b.config.Platform,
	)

	output, err := b.docker.BuildImage(ctx, req.ProjectRoot, BuildOptions{
		Tag:      tag,
		Platform: b.config.Platform,
		Labels: map[string]string{
			coredeployment.LabelManaged:  "true",
			coredeployment.LabelIdentity: req.Identity,
			coredeployment.LabelProject:  req.ProjectRoot,
		},
		Excludes: []string{".git", "node_modules"},
	})
	if err != nil {
		return domain.Build{}, template.NewBuildError(err, "")
	}
	defer output.Close()

	log, err := decodeBuildOutput(output, req.Stream)
	if err != nil {
		b.logger.Warn("image build failed", "image", tag, "error", err)
		return domain.Build{}, template.NewBuildError(err, log)
	}

	b.logger.Info("image built", "image", tag)
	return domain.Build{Image: tag, Log: log}, nil
}

// decodeBuildOutput renders the daemon's JSON message stream as plain text,
// forwarding each line to stream. It returns the full text and the build
// error reported by the daemon, if any.
func decodeBuildOutput(r io.Reader, stream template.ResultStream) (string, error) {
	lw := &lineWriter{stream: stream}
	err := jsonmessage.DisplayJSONMessagesStream(r, lw, 0, false, nil)
	lw.flush()

	if err != nil {
		var jsonErr *jsonmessage.JSONError
		if errors.As(err, &jsonErr) {
			return lw.log.String(), fmt.Errorf("%w: %s", ErrImageBuildFailed, strings.TrimSpace(jsonErr.Message))
		}
		return lw.log.String(), fmt.Errorf("%w: %v", ErrImageBuildFailed, err)
	}
	return lw.log.String(), nil
}

// lineWriter collects build output and emits one verbose event per line.
type lineWriter struct {
	stream  template.ResultStream
	log     bytes.Buffer
	partial bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.log.Write(p)
	w.partial.Write(p)
	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.partial.Len() > 0 {
		w.emit(w.partial.String())
		w.partial.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || w.stream == nil {
		return
	}
	_ = w.stream.Write(domain.VerboseEvent(line))
}

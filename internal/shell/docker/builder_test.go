package docker

import (
	"context"
	"errors"
	"strings"
	"testing"

	coredeployment "github.com/artpar/hoster-template/internal/core/deployment"
	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/shell/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successfulBuild = `{"stream":"Step 1/3 : FROM yobasystems/alpine-nodejs:arm32v7-min\n"}
{"stream":" ---> 1a2b3c4d\n"}
{"stream":"Step 2/3 : RUN npm ci"}
{"stream":" --silent --only=prod\n"}
{"aux":{"ID":"sha256:abc"}}
{"stream":"Successfully built 1a2b3c4d\n"}
`

const failedBuild = `{"stream":"Step 1/3 : FROM yobasystems/alpine-nodejs:arm32v7-min\n"}
{"stream":"npm ERR! missing script\n"}
{"errorDetail":{"code":1,"message":"The command '/bin/sh -c npm ci' returned a non-zero code: 1"},"error":"The command '/bin/sh -c npm ci' returned a non-zero code: 1"}
`

// =============================================================================
// decodeBuildOutput Tests
// =============================================================================

func TestDecodeBuildOutput_Success(t *testing.T) {
	stream := &recordingStream{}

	log, err := decodeBuildOutput(strings.NewReader(successfulBuild), stream)

	require.NoError(t, err)
	assert.Contains(t, log, "Successfully built 1a2b3c4d")
	assert.Equal(t, []string{
		"Step 1/3 : FROM yobasystems/alpine-nodejs:arm32v7-min",
		" ---> 1a2b3c4d",
		"Step 2/3 : RUN npm ci --silent --only=prod",
		"Successfully built 1a2b3c4d",
	}, stream.messages())
	for _, e := range stream.events {
		assert.Equal(t, domain.LevelVerbose, e.Level)
	}
}

func TestDecodeBuildOutput_DaemonError(t *testing.T) {
	stream := &recordingStream{}

	log, err := decodeBuildOutput(strings.NewReader(failedBuild), stream)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageBuildFailed)
	assert.Contains(t, err.Error(), "returned a non-zero code: 1")
	assert.Contains(t, log, "npm ERR! missing script")
	assert.Len(t, stream.events, 2)
}

func TestDecodeBuildOutput_TrailingPartialLine(t *testing.T) {
	stream := &recordingStream{}

	log, err := decodeBuildOutput(strings.NewReader(`{"stream":"no newline"}`), stream)

	require.NoError(t, err)
	assert.Equal(t, "no newline", log)
	assert.Equal(t, []string{"no newline"}, stream.messages())
}

func TestDecodeBuildOutput_NilStream(t *testing.T) {
	log, err := decodeBuildOutput(strings.NewReader(successfulBuild), nil)

	require.NoError(t, err)
	assert.NotEmpty(t, log)
}

// =============================================================================
// ImageBuilder Tests
// =============================================================================

func TestImageBuilder_Build(t *testing.T) {
	cli := &stubClient{buildOutput: successfulBuild}
	builder := NewImageBuilder(cli, nil, BuilderConfig{ImagePrefix: "registry.local", Platform: "linux/arm/v7"})
	stream := &recordingStream{}

	build, err := builder.Build(context.Background(), template.BuildRequest{
		Identity:    "alice",
		ProjectRoot: "/srv/blog",
		Stream:      stream,
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(build.Image, "registry.local/alice-blog:"))
	assert.Contains(t, build.Log, "Successfully built")
	assert.Equal(t, "/srv/blog", cli.buildDir)
	assert.Equal(t, build.Image, cli.buildOpts.Tag)
	assert.Equal(t, "linux/arm/v7", cli.buildOpts.Platform)
	assert.Equal(t, "alice", cli.buildOpts.Labels[coredeployment.LabelIdentity])
	assert.Contains(t, cli.buildOpts.Excludes, "node_modules")
	assert.NotEmpty(t, stream.events)
}

func TestImageBuilder_Build_FailureCarriesLog(t *testing.T) {
	cli := &stubClient{buildOutput: failedBuild}
	builder := NewImageBuilder(cli, nil, BuilderConfig{})

	_, err := builder.Build(context.Background(), template.BuildRequest{
		Identity:    "alice",
		ProjectRoot: "/srv/blog",
		Stream:      &recordingStream{},
	})

	var buildErr *template.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Log, "npm ERR! missing script")
	assert.ErrorIs(t, err, ErrImageBuildFailed)
}

func TestImageBuilder_Build_DaemonUnavailable(t *testing.T) {
	cli := &stubClient{buildErr: errors.New("connection refused")}
	builder := NewImageBuilder(cli, nil, BuilderConfig{})

	_, err := builder.Build(context.Background(), template.BuildRequest{ProjectRoot: "/srv/blog"})

	var buildErr *template.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Empty(t, buildErr.Log)
	assert.EqualError(t, err, "connection refused")
}

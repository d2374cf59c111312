package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nais/kfp-deploy/pkg/kfp"
	"github.com/nais/kfp-deploy/pkg/kfp/kfptest"
	"github.com/nais/kfp-deploy/pkg/kfpdeploy"
)

func pipelineFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: Workflow\n"), 0o644))
	return path
}

func TestRunCreatesPipeline(t *testing.T) {
	server := kfptest.NewServer()
	defer server.Close()

	stdout := &bytes.Buffer{}
	err := run(context.Background(), []string{"--quiet", server.URL, "p", pipelineFile(t)}, stdout, &bytes.Buffer{})
	require.NoError(t, err)

	pipelines := server.Pipelines()
	require.Len(t, pipelines, 1)
	assert.Equal(t, "pipeline ID: "+pipelines[0].ID+"\n", stdout.String())
}

func TestRunCreatesVersion(t *testing.T) {
	server := kfptest.NewServer(&kfp.Pipeline{ID: "abc", Name: "p"})
	defer server.Close()

	stdout := &bytes.Buffer{}
	err := run(context.Background(), []string{"--quiet", "--output", "json", "-t", "JST", server.URL, "p", pipelineFile(t)}, stdout, &bytes.Buffer{})
	require.NoError(t, err)

	result := &kfpdeploy.Result{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), result))
	assert.Equal(t, "abc", result.PipelineID)
	assert.NotEmpty(t, result.VersionID)
	assert.Regexp(t, regexp.MustCompile(`^p-v\d{6}-\d{6}$`), result.VersionName)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "abc", uploads[0].PipelineID)
	assert.NotEmpty(t, uploads[0].Header.Get(kfp.RequestIDHeader))
}

func TestRunUnknownTimezone(t *testing.T) {
	server := kfptest.NewServer(&kfp.Pipeline{ID: "abc", Name: "p"})
	defer server.Close()

	stdout := &bytes.Buffer{}
	err := run(context.Background(), []string{"--quiet", "-t", "Mars/Olympus", server.URL, "p", pipelineFile(t)}, stdout, &bytes.Buffer{})
	assert.Equal(t, kfpdeploy.ExitInvocationFailure, kfpdeploy.ErrorExitCode(err))
	assert.Empty(t, stdout.String())
	assert.Zero(t, server.ListRequests())
	assert.Empty(t, server.Uploads())
}

func TestRunMissingFile(t *testing.T) {
	server := kfptest.NewServer()
	defer server.Close()

	err := run(context.Background(), []string{"--quiet", server.URL, "p", filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, kfpdeploy.ExitInvocationFailure, kfpdeploy.ErrorExitCode(err))
	assert.Empty(t, server.Pipelines())
}

func TestRunUnreachableHost(t *testing.T) {
	server := kfptest.NewServer()
	server.Close()

	err := run(context.Background(), []string{"--quiet", server.URL, "p", pipelineFile(t)}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, kfpdeploy.ExitUnavailable, kfpdeploy.ErrorExitCode(err))
}

func TestRunUsage(t *testing.T) {
	stderr := &bytes.Buffer{}
	err := run(context.Background(), []string{"--quiet", "only-host"}, &bytes.Buffer{}, stderr)
	assert.ErrorIs(t, err, kfpdeploy.ErrArgumentsRequired)
	assert.Equal(t, kfpdeploy.ExitInvocationFailure, kfpdeploy.ErrorExitCode(err))
	assert.Contains(t, stderr.String(), "Usage: kfp-deploy [flags] deploy_target_host pipeline_name pipeline_file")

	err = run(context.Background(), []string{"--help"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.NoError(t, err)
}

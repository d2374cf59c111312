package kfpdeploy

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/nais/kfp-deploy/pkg/kfp"
)

// PipelineClient is the part of the pipelines service used for deployments.
type PipelineClient interface {
	ListPipelines(ctx context.Context, pageSize int, pageToken string) (*kfp.PipelineList, error)
	UploadPipeline(ctx context.Context, filePath, name string) (*kfp.Pipeline, error)
	UploadPipelineVersion(ctx context.Context, filePath, pipelineID, name string) (*kfp.PipelineVersion, error)
}

var _ PipelineClient = &kfp.Client{}

// Connect creates a client for the deploy target and checks that the service answers.
func Connect(ctx context.Context, cfg Config) (*kfp.Client, error) {
	client, err := kfp.NewClient(kfp.Config{
		Endpoint:  cfg.Host,
		Token:     cfg.Token,
		RequestID: cfg.CorrelationID,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, Errorf(ExitInvocationFailure, "invalid deploy target host: %s", err)
	}

	log.Infof("We will deploy into %s...", client.Config().Endpoint)

	err = client.Healthz(ctx)
	if err != nil {
		return nil, Errorf(ExitUnavailable, "cannot reach host %s: %w", cfg.Host, err)
	}

	return client, nil
}

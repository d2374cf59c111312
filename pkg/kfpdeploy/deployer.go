package kfpdeploy

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	ocodes "go.opentelemetry.io/otel/codes"
	otrace "go.opentelemetry.io/otel/trace"

	"github.com/nais/kfp-deploy/pkg/kfp"
	"github.com/nais/kfp-deploy/pkg/metrics"
	"github.com/nais/kfp-deploy/pkg/telemetry"
	"github.com/nais/kfp-deploy/pkg/versionlabel"
)

// Largest page requested when listing pipelines.
const PageSize = 1000

type Result struct {
	PipelineID   string `json:"pipeline_id,omitempty"`
	PipelineName string `json:"pipeline_name"`
	VersionID    string `json:"version_id,omitempty"`
	VersionName  string `json:"version_name,omitempty"`
	// True when a new pipeline was registered rather than a new version.
	Created bool `json:"created"`
	DryRun  bool `json:"dry_run,omitempty"`
}

// Deployer uploads a pipeline definition either as a new pipeline or as a new
// version of the first existing pipeline with the same name.
//
// Looking up the pipeline and uploading are separate requests. Two deployers
// racing on the same name may both decide to create the pipeline; the
// pipelines service decides which one wins.
type Deployer struct {
	Client PipelineClient
	// Defaults to the built-in timezone aliases.
	Namer *versionlabel.Namer
	// Defaults to time.Now.
	Now func() time.Time
}

func (d *Deployer) Deploy(ctx context.Context, cfg *Config) (result *Result, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Deploy pipeline", otrace.WithAttributes(
		telemetry.AttributePipelineName.String(cfg.PipelineName),
		telemetry.AttributeDeployTargetURL.String(cfg.Host),
		telemetry.AttributeCorrelationID.String(cfg.CorrelationID),
	))
	defer span.End()

	defer func() {
		if err != nil {
			metrics.Deployment(metrics.OutcomeFailed)
			span.SetStatus(ocodes.Error, err.Error())
			span.RecordError(err)
		}
	}()

	log.Debugf("Trace ID: %s", telemetry.TraceID(ctx))
	log.Infof("Fetching existing pipeline %q...", cfg.PipelineName)

	pipeline, err := FindPipeline(ctx, d.Client, cfg.PipelineName)
	if err != nil {
		return nil, Errorf(ExitUnavailable, "list pipelines: %w", err)
	}

	if pipeline == nil {
		log.Infof("Pipeline %q does not exist yet.", cfg.PipelineName)
		return d.deployPipeline(ctx, cfg)
	}

	log.Infof("Pipeline %q already exists with ID %s.", cfg.PipelineName, pipeline.ID)
	span.SetAttributes(telemetry.AttributePipelineID.String(pipeline.ID))
	return d.deployVersion(ctx, cfg, pipeline)
}

func (d *Deployer) deployPipeline(ctx context.Context, cfg *Config) (*Result, error) {
	result := &Result{
		PipelineName: cfg.PipelineName,
		Created:      true,
	}

	if cfg.DryRun {
		log.Infof("Dry run: would upload %s as new pipeline %q.", cfg.PipelineFile, cfg.PipelineName)
		result.DryRun = true
		metrics.Deployment(metrics.OutcomeDryRun)
		return result, nil
	}

	log.Infof("-> Deploying new pipeline...")

	pipeline, err := d.Client.UploadPipeline(ctx, cfg.PipelineFile, cfg.PipelineName)
	if err != nil {
		return nil, ErrorWrap(uploadErrorCode(err), fmt.Errorf("upload pipeline: %w", err))
	}

	otrace.SpanFromContext(ctx).SetAttributes(telemetry.AttributePipelineID.String(pipeline.ID))
	log.Infof("Deployed new pipeline with ID %s.", pipeline.ID)
	metrics.Deployment(metrics.OutcomePipelineCreated)

	result.PipelineID = pipeline.ID
	return result, nil
}

func (d *Deployer) deployVersion(ctx context.Context, cfg *Config, pipeline *kfp.Pipeline) (*Result, error) {
	versionName, err := d.namer().Create(cfg.PipelineName, cfg.Timezone, d.now())
	if err != nil {
		return nil, ErrorWrap(ExitInvocationFailure, err)
	}

	result := &Result{
		PipelineID:   pipeline.ID,
		PipelineName: pipeline.Name,
		VersionName:  versionName,
	}

	if cfg.DryRun {
		log.Infof("Dry run: would upload %s as version %q of pipeline %s.", cfg.PipelineFile, versionName, pipeline.ID)
		result.DryRun = true
		metrics.Deployment(metrics.OutcomeDryRun)
		return result, nil
	}

	log.Infof("-> Deploying new version %q...", versionName)

	version, err := d.Client.UploadPipelineVersion(ctx, cfg.PipelineFile, pipeline.ID, versionName)
	if err != nil {
		return nil, ErrorWrap(uploadErrorCode(err), fmt.Errorf("upload pipeline version: %w", err))
	}

	otrace.SpanFromContext(ctx).SetAttributes(
		telemetry.AttributeVersionName.String(versionName),
		telemetry.AttributeVersionID.String(version.ID),
	)
	log.Infof("Deployed new version in pipeline ID %s.", pipeline.ID)
	log.Infof("  version ID: %s", version.ID)
	metrics.Deployment(metrics.OutcomeVersionCreated)

	result.VersionID = version.ID
	return result, nil
}

func (d *Deployer) namer() *versionlabel.Namer {
	if d.Namer == nil {
		return versionlabel.New(nil)
	}
	return d.Namer
}

func (d *Deployer) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// FindPipeline walks the full pipeline listing and returns the first pipeline
// whose name matches exactly, or nil if there is none.
func FindPipeline(ctx context.Context, client PipelineClient, name string) (*kfp.Pipeline, error) {
	var token string
	seen := make(map[string]bool)

	for {
		list, err := client.ListPipelines(ctx, PageSize, token)
		if err != nil {
			return nil, err
		}

		for _, p := range list.Pipelines {
			if p != nil && p.Name == name {
				return p, nil
			}
		}

		token = list.NextPageToken
		if len(token) == 0 {
			return nil, nil
		}
		if seen[token] {
			return nil, fmt.Errorf("pipelines service returned page token %q twice", token)
		}
		seen[token] = true
	}
}

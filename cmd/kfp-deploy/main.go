package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/nais/kfp-deploy/pkg/kfpdeploy"
	"github.com/nais/kfp-deploy/pkg/metrics"
	"github.com/nais/kfp-deploy/pkg/telemetry"
	"github.com/nais/kfp-deploy/pkg/version"
)

const serviceName = "kfp-deploy"

var help = `
kfp-deploy uploads a pipeline definition to Kubeflow Pipelines.

If no pipeline with the given name exists, it is created. Otherwise the file is
uploaded as a new version named <pipeline_name>-v<YYMMDD>-<HHMMSS>, using the
wall clock of the selected timezone.

Usage: kfp-deploy [flags] deploy_target_host pipeline_name pipeline_file
`

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}
	code := kfpdeploy.ErrorExitCode(err)
	log.Errorf("fatal: %s", err)
	os.Exit(int(code))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Configuration
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, help[1:])
		fmt.Fprintln(stderr)
		flags.PrintDefaults()
	}

	cfg := kfpdeploy.NewConfig()
	err := kfpdeploy.InitConfig(cfg, flags, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return kfpdeploy.ErrorWrap(kfpdeploy.ExitInvocationFailure, err)
	}
	cfg.CorrelationID = uuid.NewString()

	// Logging
	err = kfpdeploy.SetupLogging(*cfg)
	if err != nil {
		return kfpdeploy.ErrorWrap(kfpdeploy.ExitInvocationFailure, err)
	}

	// Welcome
	log.Infof("kfp-deploy %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}
	log.Debugf("Correlation ID: %s", cfg.CorrelationID)
	kfpdeploy.LogFlags(flags)

	err = cfg.Validate()
	if err != nil {
		flags.Usage()
		return kfpdeploy.ErrorWrap(kfpdeploy.ExitInvocationFailure, err)
	}

	namer, err := cfg.Namer()
	if err != nil {
		return kfpdeploy.ErrorWrap(kfpdeploy.ExitInvocationFailure, err)
	}

	// Tracing
	tracerProvider, err := telemetry.New(ctx, serviceName, cfg.OpenTelemetryCollectorURL)
	if err != nil {
		return kfpdeploy.Errorf(kfpdeploy.ExitInvocationFailure, "set up tracing: %w", err)
	}
	defer func() {
		err := tracerProvider.Shutdown(ctx)
		if err != nil {
			log.Warnf("flush traces: %s", err)
		}
	}()

	if len(cfg.PushgatewayURL) > 0 {
		defer func() {
			err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.PipelineName)
			if err != nil {
				log.Warnf("push metrics to %s: %s", cfg.PushgatewayURL, err)
			}
		}()
	}

	client, err := kfpdeploy.Connect(ctx, *cfg)
	if err != nil {
		metrics.Deployment(metrics.OutcomeFailed)
		return err
	}

	d := kfpdeploy.Deployer{
		Client: client,
		Namer:  namer,
	}

	result, err := d.Deploy(ctx, cfg)
	if err != nil {
		return err
	}

	return kfpdeploy.PrintResult(stdout, cfg.Output, result)
}

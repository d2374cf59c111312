package kfpdeploy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// PrintResult writes the identifiers of a finished deployment.
func PrintResult(w io.Writer, format string, result *Result) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	case OutputYAML:
		data, err := yaml.Marshal(result)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case OutputText, "":
		return printText(w, result)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, format)
	}
}

func printText(w io.Writer, result *Result) error {
	lines := make([]string, 0, 3)

	switch {
	case result.DryRun && result.Created:
		lines = append(lines, fmt.Sprintf("pipeline %s would be created", result.PipelineName))
	case result.DryRun:
		lines = append(lines,
			fmt.Sprintf("pipeline ID: %s", result.PipelineID),
			fmt.Sprintf("version %s would be created", result.VersionName),
		)
	case result.Created:
		lines = append(lines, fmt.Sprintf("pipeline ID: %s", result.PipelineID))
	default:
		lines = append(lines,
			fmt.Sprintf("pipeline ID: %s", result.PipelineID),
			fmt.Sprintf("version ID: %s", result.VersionID),
			fmt.Sprintf("version name: %s", result.VersionName),
		)
	}

	for _, line := range lines {
		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return err
		}
	}
	return nil
}

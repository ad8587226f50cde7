package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func (c *commandContext) outputFormat() (outputFormat, error) {
	if c.outputFlag == nil {
		return formatTable, nil
	}
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(*c.outputFlag))); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json, or yaml)", *c.outputFlag)
	}
}

// emit writes v in the selected format. table renders the human view.
func (c *commandContext) emit(cmd *cobra.Command, v any, table func() string) error {
	format, err := c.outputFormat()
	if err != nil {
		return err
	}
	switch format {
	case formatJSON:
		return writeJSON(cmd, v)
	case formatYAML:
		return writeYAML(cmd, v)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), table())
		return nil
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML, reusing the JSON field names.
func writeYAML(cmd *cobra.Command, v any) error {
	data, err := yaml.MarshalWithOptions(v, yaml.UseJSONMarshaler())
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

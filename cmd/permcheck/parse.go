package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/permcheck/checker/policy"
)

func newParseCmd() *cobra.Command {
	var (
		policyPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Print the rules a policy document declares",
		Example: `  permcheck parse --policy rules.xml
  permcheck parse --policy rules.xml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(policyPath)
			if err != nil {
				return err
			}

			rules, warnings, err := policy.ParseRules(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatTable:
				renderRules(out, "Declared rules", rules)
				renderWarnings(out, warnings)
				return nil
			case formatJSON, formatYAML:
				return encode(out, format, map[string]any{"rules": rules, "warnings": warnings})
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "XML policy document")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table, json, yaml)")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}

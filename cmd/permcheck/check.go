package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/permcheck/config"
	"github.com/dev-mohitbeniwal/permcheck/server"
)

var errDiffFound = errors.New("policy and implementation differ")

type checkFlags struct {
	policyPath   string
	projectPath  string
	format       string
	oracle       string
	completeness string
	resource     string
	workDir      string
	keepWorkDir  bool
	failOnDiff   bool
}

func newCheckCmd() *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile a project archive with a policy document",
		Example: `  # Use the configured oracle, print tables
  permcheck check --policy rules.xml --project app.zip

  # Offline run that fails CI when anything differs
  permcheck check --policy rules.xml --project app.zip --oracle static --fail-on-diff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd); err != nil {
				return err
			}

			policyXML, err := os.ReadFile(f.policyPath)
			if err != nil {
				return err
			}
			project, err := os.ReadFile(f.projectPath)
			if err != nil {
				return err
			}

			chk, err := server.NewChecker()
			if err != nil {
				return err
			}
			report, err := chk.Check(cmd.Context(), policyXML, project)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch f.format {
			case formatTable:
				renderReport(out, report)
			case formatJSON, formatYAML:
				if err := encode(out, f.format, report); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q", f.format)
			}

			if f.failOnDiff && (len(report.RedundantRule) > 0 || len(report.LackRule) > 0) {
				return errDiffFound
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.policyPath, "policy", "", "XML policy document")
	cmd.Flags().StringVar(&f.projectPath, "project", "", "Zip archive of the NestJS project")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatTable, "Output format (table, json, yaml)")
	cmd.Flags().StringVar(&f.oracle, "oracle", "", "Oracle provider (openai, huggingface, static)")
	cmd.Flags().StringVar(&f.completeness, "completeness", "", "Drop methods missing any fact (all) or only methods with no facts (any)")
	cmd.Flags().StringVar(&f.resource, "resource-strategy", "", "Take resources from the oracle or the @Controller path (oracle, controller)")
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "Directory the project is extracted under")
	cmd.Flags().BoolVar(&f.keepWorkDir, "keep-workdir", false, "Leave the extracted project on disk")
	cmd.Flags().BoolVar(&f.failOnDiff, "fail-on-diff", false, "Exit with status 1 when either result set is non-empty")
	_ = cmd.MarkFlagRequired("policy")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// apply overrides configuration with the flags the user set.
func (f *checkFlags) apply(cmd *cobra.Command) error {
	overrides := map[string]any{
		"oracle.provider":          f.oracle,
		"checker.completeness":     f.completeness,
		"checker.resourceStrategy": f.resource,
		"checker.workDir":          f.workDir,
	}
	for key, value := range overrides {
		if s, _ := value.(string); s != "" {
			config.Set(key, s)
		}
	}
	if cmd.Flags().Changed("keep-workdir") {
		config.Set("checker.keepWorkDir", f.keepWorkDir)
	}
	return nil
}

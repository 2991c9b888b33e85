package main

import (
	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/permcheck/config"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "permcheck",
		Short: "Check a NestJS project's role permissions against an XML policy document",
		Long: `permcheck recovers the permissions each controller of a NestJS project
implements (role, action, resource, condition) and reconciles them with the
rules declared in an XML policy document.

It reports permissions found in code but not declared (redundant) and rules
declared but not implemented (lacking).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.UseConfigFile(configPath)
			}
			if err := config.InitConfig(); err != nil {
				return err
			}
			if verbose {
				logger.InitLogger(config.GetString("log.dir"))
			} else {
				logger.InitNop()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default is config/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write structured logs to stdout")

	root.AddCommand(newCheckCmd(), newParseCmd(), newServeCmd())
	return root
}

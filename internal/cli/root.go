package cli

import (
	"io"

	"github.com/spf13/cobra"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/config"
)

// RootOptions holds global flags and the configuration they resolve to.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config config.Config
}

// NewRootCommand creates the kanban-tracker command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kanban-tracker",
		Short: "Kanban tracking for a PLC-driven manufacturing cell",
		Long: `kanban-tracker follows kanbans from the infeed scanner to the outfeed
scanner and drives the cell PLC through each order over its TCP protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			opts.Config = cfg
			return configureLogging(cmd.ErrOrStderr(), cfg.Log.Level)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $"+config.EnvPath+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))

	return cmd
}

func configureLogging(w io.Writer, level string) error {
	return logger.Configure(w, level)
}

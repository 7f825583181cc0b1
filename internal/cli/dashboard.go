package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"kanban-tracker/internal/connections/rabbitmq"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/microservices/notificator/service"
	"kanban-tracker/internal/tui"
)

func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the live kanban ledger in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if url == "" {
				url = cfg.Operator.URL
			}
			// the terminal belongs to the dashboard
			if err := configureLogging(io.Discard, cfg.Log.Level); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var events <-chan domain.Event
			if cfg.RabbitMQ.Enabled {
				rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
				if err != nil {
					return err
				}
				defer rmq.Close()
				events, err = service.Subscribe(ctx, rmq, cfg.RabbitMQ.Exchange)
				if err != nil {
					return err
				}
			}
			return tui.Run(tui.NewClient(url), events, cfg.Operator.PollInterval)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "operator API base URL (default operator.url)")
	return cmd
}

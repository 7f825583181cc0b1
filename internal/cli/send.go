package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kanban-tracker/internal/microservices/plclink"
)

// NewSendCommand creates a command that plays the PLC side of one exchange.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <frame>...",
		Short: "Send PLC request frames to a running cell and print the replies",
		Long: `Send one or more PLC request frames, each on its own connection,
and print the reply to each.

Example:
  kanban-tracker send M100|200
  kanban-tracker send --addr 10.0.0.5:65432 "M101|4321|9" "M102|4321|1"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = dialAddr(rootOpts.Config.PLC.Addr)
			}
			for _, frame := range args {
				reply, err := plclink.Send(cmd.Context(), addr, frame, timeout)
				if err != nil {
					return err
				}
				if reply == "" {
					reply = "(no response)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", frame, reply)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "PLC link address (default plc.addr)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-exchange timeout")
	return cmd
}

// dialAddr turns a listen address such as ":65432" into one that can be dialed.
func dialAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "127.0.0.1" + listen
	}
	return listen
}

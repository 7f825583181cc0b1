package cli

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kanban-tracker/internal/microservices/scanner"
)

// NewDecodeCommand creates a command that decodes scanner lines offline.
func NewDecodeCommand(_ *RootOptions) *cobra.Command {
	var station string
	cmd := &cobra.Command{
		Use:   "decode [line]...",
		Short: "Decode kanban label scans without touching the cell",
		Long: `Decode scanner lines given as arguments, or one per line on stdin,
and print each result as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := scanner.ParseStation(station)
			if err != nil {
				return err
			}
			lines := args
			if len(lines) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					lines = append(lines, sc.Text())
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, line := range lines {
				ev, err := scanner.Decode(line, st)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%q: %v\n", line, err)
					continue
				}
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lines did not decode", failed, len(lines))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&station, "station", "infeed", "station the scans come from (infeed|outfeed)")
	return cmd
}

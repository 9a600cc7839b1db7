package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List upload records known to the proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := signalContext()

		apiClient, err := authedClient(ctx)
		if err != nil {
			return err
		}

		list, err := apiClient.ListMedia(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RECORD ID\tMEDIA ID\tNAME\tSTATUS\tPROGRESS")
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s / %s\n",
				m.ID,
				m.MediaID,
				m.Name,
				m.Status,
				units.HumanSize(float64(m.OffsetBytes)),
				units.HumanSize(float64(m.SizeBytes)))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

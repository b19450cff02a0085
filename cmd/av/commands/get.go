package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Download an artifact of the current tenant",
	Long:  `Writes the artifact content to --output, or to stdout when no output file is given.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		var w io.Writer = cmd.OutOrStdout()
		if getOutput != "" {
			f, err := os.Create(getOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := cli.Download(cmd.Context(), currentTenant(), args[0], w)
		if err != nil {
			if getOutput != "" {
				_ = os.Remove(getOutput)
			}
			return fmt.Errorf("download failed: %w", err)
		}

		if getOutput != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %d bytes to %s\n", n, getOutput)
		}
		return nil
	},
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "File to write the artifact to")
	rootCmd.AddCommand(getCmd)
}

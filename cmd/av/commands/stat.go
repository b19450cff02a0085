package commands

import (
	"fmt"
	"time"

	avrpc "artifactvault/pkg/api/avrpc/v1"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <hash>",
	Short: "Show the artifact stored under a hash for the current tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		resp, err := cli.Artifacts.Stat(cmd.Context(), &avrpc.StatRequest{Tenant: currentTenant(), Hash: args[0]})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !resp.Exists {
			fmt.Fprintf(out, "No artifact %s for tenant %q\n", args[0], currentTenant())
			return nil
		}

		a := resp.Artifact
		tenant := a.Tenant
		if a.Legacy {
			tenant = "(legacy, no tenant)"
		}
		fmt.Fprintf(out, "hash:         %s\n", a.ContentHash)
		fmt.Fprintf(out, "id:           %s\n", a.Id)
		fmt.Fprintf(out, "tenant:       %s\n", tenant)
		fmt.Fprintf(out, "size:         %d\n", a.Size)
		fmt.Fprintf(out, "content-type: %s\n", a.ContentType)
		if a.Md5 != "" {
			fmt.Fprintf(out, "md5:          %s\n", a.Md5)
		}
		fmt.Fprintf(out, "created:      %s\n", time.UnixMilli(a.CreatedAt).UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

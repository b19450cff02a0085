package commands

import (
	"fmt"

	avrpc "artifactvault/pkg/api/avrpc/v1"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <hash>...",
	Short: "Delete artifacts of the current tenant",
	Long:  `Only artifacts owned by the current tenant are deleted. Legacy artifacts without a tenant are never touched.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		for _, hash := range args {
			_, err := cli.Artifacts.Delete(cmd.Context(), &avrpc.DeleteRequest{Tenant: currentTenant(), Hash: hash})
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", hash, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Removed %s\n", hash)
		}
		return nil
	},
}

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every artifact of the current tenant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeYes {
			return fmt.Errorf("refusing to purge tenant %q without --yes", currentTenant())
		}

		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		resp, err := cli.Artifacts.PurgeTenant(cmd.Context(), &avrpc.PurgeTenantRequest{Tenant: currentTenant()})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Purged %d artifacts of tenant %q\n", resp.Deleted, currentTenant())
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "Confirm deleting all artifacts of the tenant")
	rootCmd.AddCommand(rmCmd, purgeCmd)
}

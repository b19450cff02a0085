package commands

import (
	"fmt"
	"os"

	avrpc "artifactvault/pkg/api/avrpc/v1"

	"github.com/spf13/cobra"
)

// 两阶段上传：先 stage 字节，拿到临时 key；之后用已知的 Hash commit 或 abandon

var stageCmd = &cobra.Command{
	Use:   "stage <file>",
	Short: "Upload bytes without committing them; prints the temp key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		resp, err := cli.Stage(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.TempKey)
		return nil
	},
}

var (
	commitAuxHash     string
	commitContentType string
)

var commitCmd = &cobra.Command{
	Use:   "commit <temp-key> <hash>",
	Short: "Commit a staged upload under a content hash",
	Long: `If the tenant already has an artifact for the hash, the existing one is reported and
the staged upload is left in place; remove it with 'av abandon'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		resp, err := cli.Artifacts.Commit(cmd.Context(), &avrpc.CommitRequest{
			Tenant:      currentTenant(),
			TempKey:     args[0],
			ContentHash: args[1],
			AuxHash:     commitAuxHash,
			ContentType: commitContentType,
		})
		if err != nil {
			return err
		}

		if resp.Deduplicated {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Already stored as %s (id %s); %s was not used\n", resp.Artifact.StorageKey, resp.Artifact.Id, args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Committed %s (id %s)\n", resp.Artifact.StorageKey, resp.Artifact.Id)
		}
		return nil
	},
}

var abandonCmd = &cobra.Command{
	Use:   "abandon <temp-key>...",
	Short: "Discard staged uploads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		for _, key := range args {
			if _, err := cli.Artifacts.Abandon(cmd.Context(), &avrpc.AbandonRequest{TempKey: key}); err != nil {
				return fmt.Errorf("failed to abandon %s: %w", key, err)
			}
		}
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitAuxHash, "md5", "", "Expected MD5 of the staged bytes")
	commitCmd.Flags().StringVar(&commitContentType, "content-type", "", "Content type stored with the artifact")
	rootCmd.AddCommand(stageCmd, commitCmd, abandonCmd)
}

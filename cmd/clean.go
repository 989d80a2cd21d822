package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rntrec/internal/utils"
)

var cleanOut string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Write the cleaned, region-filtered dataset as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if cleanOut == "" {
			return fmt.Errorf("--output is required")
		}
		snap, err := loadSnapshot(cmd.Context(), c)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := snap.Table.WriteCSV(&buf); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(cleanOut, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d cleaned rows to %s\n", snap.Table.Len(), cleanOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVarP(&cleanOut, "output", "o", "", "output CSV path (required)")
}

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rntrec/internal/analysis"
	"github.com/KaramelBytes/rntrec/internal/utils"
)

var (
	reportTop  int
	reportJSON bool
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize categories, localities and capacity of the cleaned dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		k := c.ReportTopK
		if cmd.Flags().Changed("top") {
			if reportTop < 0 {
				return fmt.Errorf("--top must be zero (all values) or positive, got %d", reportTop)
			}
			k = reportTop
		}
		snap, err := loadSnapshot(cmd.Context(), c)
		if err != nil {
			return err
		}
		rep := analysis.Build(snap.Table, analysis.Options{Name: filepath.Base(snap.Source), TopK: k})

		var data []byte
		if reportJSON {
			if data, err = utils.PrettyJSON(rep); err != nil {
				return err
			}
			data = append(data, '\n')
		} else {
			data = []byte(rep.Markdown())
		}
		if reportOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := utils.SafeWriteFile(reportOut, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", reportOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "values per ranking, 0 for all (default from config)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "write JSON instead of markdown")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "write the report to this file instead of stdout")
}

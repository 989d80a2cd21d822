package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rntrec/internal/metrics"
	"github.com/KaramelBytes/rntrec/internal/recommend"
	"github.com/KaramelBytes/rntrec/internal/utils"
)

var (
	recCount int
	recJSON  bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <name>",
	Short: "List establishments similar to the one whose name matches",
	Long: `Finds the first establishment whose trade name contains <name> (case-insensitive)
and lists the most similar other establishments by category and locality.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		if strings.TrimSpace(query) == "" {
			metrics.RecordRecommendation("invalid")
			return recommend.ErrEmptyQuery
		}
		n, err := c.Count(recCount)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context(), c)
		if err != nil {
			return err
		}
		res, err := recommend.Recommend(query, snap.Table, snap.Matrix, n)
		if err != nil {
			metrics.RecordRecommendation("invalid")
			return err
		}
		if res.Found {
			metrics.RecordRecommendation("found")
		} else {
			metrics.RecordRecommendation("not_found")
		}
		out := cmd.OutOrStdout()
		if recJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if !res.Found {
			fmt.Fprintf(out, "⚠ No establishment matches %q\n", res.Query)
			return nil
		}
		if res.Matches > 1 {
			fmt.Fprintf(out, "⚠ %d establishments match %q; using the first\n", res.Matches, res.Query)
		}
		m := res.Match
		fmt.Fprintf(out, "✓ Match: %s (%s, %s)\n", m.Name, m.Category, m.Locality)
		if len(res.Items) == 0 {
			fmt.Fprintln(out, "No other establishments to compare")
			return nil
		}
		fmt.Fprintf(out, "Top %d similar establishments:\n", len(res.Items))
		for i, it := range res.Items {
			fmt.Fprintf(out, "%2d. %-40s %-20s %-20s %.3f\n", i+1,
				utils.Truncate(it.Name, 40), utils.Truncate(it.Category, 20), utils.Truncate(it.Locality, 20), it.Score)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().IntVarP(&recCount, "count", "n", 0, "number of recommendations (default from config)")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "print the result as JSON")
}

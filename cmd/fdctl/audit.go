package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/faceauth/internal/faceid"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report pairs of enrolled faces closer than the duplicate threshold",
	Long: `Compares every pair of stored embeddings offline. Enrollment rejects
near-duplicates, so any pair reported here predates a threshold change or was
enrolled concurrently.`,
	RunE: runAudit,
}

var auditThreshold float64

func init() {
	auditCmd.Flags().Float64Var(&auditThreshold, "threshold", 0, "distance threshold (default: face.duplicate_threshold)")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	threshold := auditThreshold
	if threshold <= 0 {
		threshold = cfg.Face.DuplicateThreshold
	}

	var ids []faceid.Identity
	for id, err := range db.ListEnrolledIdentities(ctx) {
		if err != nil {
			return fmt.Errorf("scan identities: %w", err)
		}
		ids = append(ids, id)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(ids),
			progressbar.OptionSetDescription("Comparing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	pairs := faceid.FindDuplicatePairs(ids, threshold, func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pairs)
	}

	if len(pairs) == 0 {
		fmt.Printf("no pairs under %.2f among %d identities\n", threshold, len(ids))
		return nil
	}
	fmt.Printf("%d pairs under %.2f:\n", len(pairs), threshold)
	for _, p := range pairs {
		fmt.Printf("  %s  %s  %.4f\n", p.A, p.B, p.Distance)
	}
	return nil
}

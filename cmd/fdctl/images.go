package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/faceauth/internal/storage"
)

// faceImagePrefix is where enrollment photos live in the bucket.
const faceImagePrefix = "faces/"

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage stored enrollment photos",
}

var imagesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete photos no employee references",
	RunE:  runImagesPrune,
}

var (
	pruneDryRun    bool
	pruneBatchSize int
	pruneMinAge    time.Duration
)

func init() {
	imagesPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "only print what would be deleted")
	imagesPruneCmd.Flags().IntVar(&pruneBatchSize, "batch", 100, "objects per delete request")
	imagesPruneCmd.Flags().DurationVar(&pruneMinAge, "min-age", time.Hour, "never delete photos younger than this")
	imagesCmd.AddCommand(imagesPruneCmd)
	rootCmd.AddCommand(imagesCmd)
}

func runImagesPrune(cmd *cobra.Command, args []string) error {
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

	store, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return err
	}

	// Objects are listed before employees: a photo uploaded by an enrollment
	// that commits after this point is either too young to prune or already
	// referenced in the employee snapshot below.
	cutoff := time.Now().Add(-pruneMinAge)
	stored, err := store.ListObjects(ctx, faceImagePrefix)
	if err != nil {
		return err
	}

	employees, err := db.ListEmployees(ctx)
	if err != nil {
		return err
	}
	referenced := make(map[string]struct{}, len(employees))
	for _, e := range employees {
		if e.ImageKey != "" {
			referenced[e.ImageKey] = struct{}{}
		}
	}

	orphans := orphanKeys(stored, referenced, cutoff)
	if len(orphans) == 0 {
		fmt.Printf("no orphaned photos older than %s among %d objects\n", pruneMinAge, len(stored))
		return nil
	}

	if pruneDryRun {
		for _, key := range orphans {
			fmt.Println(key)
		}
		fmt.Printf("%d orphaned photos (dry run)\n", len(orphans))
		return nil
	}

	bar := progressbar.NewOptions(len(orphans),
		progressbar.OptionSetDescription("Deleting photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
	for batch := range slices.Chunk(orphans, max(pruneBatchSize, 1)) {
		if err := store.DeleteObjects(ctx, batch); err != nil {
			return err
		}
		_ = bar.Add(len(batch))
	}
	_ = bar.Finish()
	fmt.Printf("\ndeleted %d orphaned photos\n", len(orphans))
	return nil
}

// orphanKeys returns the keys of objects missing from referenced and last
// modified before cutoff, sorted.
func orphanKeys(stored []storage.ObjectInfo, referenced map[string]struct{}, cutoff time.Time) []string {
	var out []string
	for _, obj := range stored {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		out = append(out, obj.Key)
	}
	slices.Sort(out)
	return out
}

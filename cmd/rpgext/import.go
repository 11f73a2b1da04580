package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/pipeline"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/svcctx"
)

var (
	importCollection string
	importGameType   string
	importEdition    string
	importBookType   string
	importWorkers    int
)

var importCmd = &cobra.Command{
	Use:   "import <pdf> [pdf...]",
	Short: "Import PDF books into the stores",
	Long: `Import one or more PDF books.

Each book is extracted, segmented into sections, classified, and written
to DefraDB plus the pgvector index. Re-importing the same book into the
same collection is a no-op: sections keep their deterministic IDs and are
skipped.

Examples:
  rpgext import phb.pdf --collection "core rules"
  rpgext import *.pdf --workers 8
  rpgext import homebrew.pdf --game-type "D&D" --edition "5th Edition"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := buildServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		importer := svcctx.ImporterFrom(ctx)

		reqs := make([]pipeline.ImportRequest, len(args))
		for i, path := range args {
			reqs[i] = pipeline.ImportRequest{
				Path:           path,
				CollectionName: importCollection,
				GameType:       importGameType,
				Edition:        importEdition,
				BookType:       importBookType,
			}
		}

		if len(reqs) == 1 {
			result, err := importer.ImportDocument(ctx, reqs[0])
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		}

		summary := importer.ImportBatch(ctx, reqs, importWorkers)
		for _, item := range summary.Items {
			if item.Err != nil {
				fmt.Printf("FAILED  %s: %v\n", item.Source, item.Err)
				continue
			}
			printResult(item.Result)
		}
		fmt.Printf("\nTotal: %d written, %d skipped, %d failed, %d documents errored\n",
			summary.Written, summary.Skipped, summary.Failed, summary.Errored)
		if summary.Errored > 0 {
			return fmt.Errorf("%d of %d documents failed to import", summary.Errored, len(reqs))
		}
		return nil
	},
}

func printResult(r *pipeline.ImportResult) {
	fmt.Printf("%s -> %s\n", r.Source, r.Path)
	fmt.Printf("  game: %s", r.Game.GameType)
	if r.Game.Edition != "" {
		fmt.Printf(" (%s)", r.Game.Edition)
	}
	fmt.Printf("  method: %s  confidence: %.2f\n", r.Game.Method, r.Game.Confidence)
	fmt.Printf("  sections: %d  written: %d  skipped: %d  failed: %d  (%s)\n",
		r.Sections, r.Summary.Written, r.Summary.Skipped, r.Summary.Failed,
		r.Duration.Round(time.Millisecond))
	for _, f := range r.Summary.Failures {
		fmt.Printf("  FAILED section %s: %s\n", f.SectionID, f.Reason)
	}
}

func init() {
	importCmd.Flags().StringVarP(&importCollection, "collection", "c", "", "collection name (default: file name)")
	importCmd.Flags().StringVar(&importGameType, "game-type", "", "skip detection and use this game system")
	importCmd.Flags().StringVar(&importEdition, "edition", "", "edition for manual override")
	importCmd.Flags().StringVar(&importBookType, "book-type", "", "book type for manual override")
	importCmd.Flags().IntVarP(&importWorkers, "workers", "w", 4, "concurrent imports for batches")

	rootCmd.AddCommand(importCmd)
}

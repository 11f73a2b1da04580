package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/svcctx"
)

var (
	searchPath     string
	searchLimit    int
	searchSemantic bool
)

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Search imported sections",
	Long: `Search sections in a collection.

By default this is a substring search over section text in the document
store. With --semantic the query is embedded and matched against the
pgvector index by cosine distance instead.

Examples:
  rpgext search fireball --path rpger.dnd.5th_edition.phb
  rpgext search "saving throws against fear" --path rpger.dnd.5th_edition.phb --semantic`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		term := strings.Join(args, " ")

		if searchPath == "" {
			return fmt.Errorf("--path is required")
		}

		ctx, cleanup, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if searchSemantic {
			matches, err := svcctx.VecStoreFrom(ctx).Query(ctx, searchPath, term, searchLimit)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, m := range matches {
				title, _ := m.Metadata["title"].(string)
				pages, _ := m.Metadata["pages"].(string)
				fmt.Printf("%.4f  %s  (pages %s)\n", m.Distance, title, pages)
				fmt.Printf("        %s\n", snippet(m.Content, 140))
			}
			return nil
		}

		sections, err := docstore.SearchSections(ctx, svcctx.DocClientFrom(ctx), searchPath, term, searchLimit)
		if err != nil {
			return err
		}
		if len(sections) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, sec := range sections {
			fmt.Printf("%s  (pages %d-%d, %s)\n", sec.Title, sec.StartPage, sec.EndPage, sec.Category)
			fmt.Printf("        %s\n", snippet(sec.Text, 140))
		}
		return nil
	},
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func init() {
	searchCmd.Flags().StringVarP(&searchPath, "path", "p", "", "collection path to search (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "similarity search via the vector index")

	rootCmd.AddCommand(searchCmd)
}

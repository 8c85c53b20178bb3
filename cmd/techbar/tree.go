package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"techbar/internal/catalog"
)

var treeHidden bool

var treeCmd = &cobra.Command{
	Use:   "tree [kapp]",
	Short: "Print a kapp's category hierarchy",
	Long: `Fetches the categories of a kapp (KAPP_SLUG when omitted) from the
configured source and prints them as an indented tree with each
category's full sort order and form count.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kapp := cfg.KappSlug
		if len(args) == 1 {
			kapp = args[0]
		}

		b, err := openBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		h, err := b.catalogService(cfg, nil).Refresh(cmd.Context(), kapp)
		if err != nil {
			return err
		}

		v := catalog.VisibleOnly
		if treeHidden {
			v = catalog.IncludeHidden
		}
		tree, err := h.Tree(v)
		if err != nil {
			return err
		}
		return printTree(cmd.OutOrStdout(), h, catalog.Flatten(tree))
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeHidden, "hidden", false, "include hidden categories")
}

func printTree(w io.Writer, h *catalog.Helper, rows []catalog.Node) error {
	for _, row := range rows {
		order, err := h.FullSortOrder(row.Category.Slug)
		if err != nil {
			return err
		}
		marker := ""
		if row.Category.Hidden {
			marker = " (hidden)"
		}
		if _, err := fmt.Fprintf(w, "%s%s %s [%s] %d forms%s\n",
			strings.Repeat("  ", row.Depth), order, row.Category.Name, row.Category.Slug,
			row.Category.FormCount, marker); err != nil {
			return err
		}
	}
	return nil
}

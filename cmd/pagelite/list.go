package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bissquit/pagelite/internal/app"
	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored status pages",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := app.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	service := pages.NewService(store, nil, nil, pages.Config{ComponentLimit: cfg.Pages.FreeComponentLimit})
	list, err := service.ListPages(cmd.Context())
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tNAME\tTIER\tCOMPONENTS\tSTATUS\tSUBSCRIBERS")
	for i := range list {
		page := &list[i]
		tier := "free"
		if page.IsPro {
			tier = "pro"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
			page.Slug, page.Name, tier, len(page.Components),
			domain.DeriveOverallStatus(page.Components), len(page.Subscribers))
	}
	return w.Flush()
}

package main

import (
	"fmt"

	"github.com/bissquit/pagelite/internal/app"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/spf13/cobra"
)

func newProCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pro <slug>",
		Short: "Enable or disable the Pro tier of a page",
		Long: `Mark a page as Pro, lifting the component limit, or return it to the free
tier with --disable. Existing components are kept when a page is downgraded.`,
		Args: cobra.ExactArgs(1),
		RunE: runPro,
	}
	cmd.Flags().Bool("disable", false, "return the page to the free tier")
	return cmd
}

func runPro(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	disable, _ := cmd.Flags().GetBool("disable")

	store, err := app.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	service := pages.NewService(store, nil, nil, pages.Config{ComponentLimit: cfg.Pages.FreeComponentLimit})
	page, err := service.SetPro(cmd.Context(), args[0], !disable)
	if err != nil {
		return fmt.Errorf("set pro: %w", err)
	}

	tier := "pro"
	if !page.IsPro {
		tier = "free"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "page %s (%s) is now on the %s tier\n", page.Slug, page.Name, tier)
	return nil
}

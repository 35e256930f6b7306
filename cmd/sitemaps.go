package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/search-console-gateway/internal/publisher"
	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
)

func newSitemapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemaps",
		Short: "List, inspect and submit sitemaps",
	}
	cmd.AddCommand(newSitemapsListCmd(), newSitemapsGetCmd(), newSitemapsSubmitCmd())
	return cmd
}

func newSitemapsListCmd() *cobra.Command {
	var req searchconsole.ListSitemapsRequest
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sitemaps submitted for a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			resp, err := a.Reporter().ListSitemaps(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.SiteURL, "site", "", "site URL or sc-domain: property (required)")
	cmd.Flags().StringVar(&req.SitemapIndex, "index", "", "only list sitemaps contained in this sitemap index")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func newSitemapsGetCmd() *cobra.Command {
	var req searchconsole.SitemapRequest
	cmd := &cobra.Command{
		Use:   "get <feedpath>",
		Short: "Show the status of one sitemap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			req.Feedpath = args[0]
			resp, err := a.Reporter().GetSitemap(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.SiteURL, "site", "", "site URL or sc-domain: property (required)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func newSitemapsSubmitCmd() *cobra.Command {
	var req searchconsole.SitemapRequest
	cmd := &cobra.Command{
		Use:   "submit <feedpath>",
		Short: "Submit a sitemap and announce it on the events topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			req.Feedpath = args[0]
			if err := a.Reporter().SubmitSitemap(ctx, req); err != nil {
				return err
			}

			out := map[string]string{"siteUrl": req.SiteURL, "feedpath": req.Feedpath, "status": "submitted"}
			eventID := publisher.AnnounceSitemapSubmitted(ctx, a.Events(), a.Logger(), req.SiteURL, req.Feedpath, time.Now())
			if eventID != "" {
				out["eventId"] = eventID
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&req.SiteURL, "site", "", "site URL or sc-domain: property (required)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

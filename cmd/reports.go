package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
)

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the properties visible to the service account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			resp, err := a.Reporter().ListSites(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

// analyticsFlags binds the search analytics query parameters.
type analyticsFlags struct {
	req searchconsole.SearchAnalyticsRequest
}

func (f *analyticsFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.req.SiteURL, "site", "", "site URL or sc-domain: property (required)")
	fs.StringVar(&f.req.StartDate, "start", "", "start date, YYYY-MM-DD (required)")
	fs.StringVar(&f.req.EndDate, "end", "", "end date, YYYY-MM-DD (required)")
	fs.StringSliceVar(&f.req.Dimensions, "dimensions", nil, "dimensions to group by, e.g. query,page")
	fs.StringVar(&f.req.Type, "type", "", "search type: web, image, video, news, discover, googleNews")
	fs.StringVar(&f.req.DataState, "data-state", "", "final or all")
	fs.StringVar(&f.req.AggregationType, "aggregation", "", "auto, byPage or byProperty")
	fs.Int64Var(&f.req.RowLimit, "row-limit", 0, "maximum rows to return")
	fs.Int64Var(&f.req.StartRow, "start-row", 0, "zero-based row offset")
}

func markAnalyticsRequired(cmd *cobra.Command) {
	for _, name := range []string{"site", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func newAnalyticsCmd() *cobra.Command {
	flags := &analyticsFlags{}
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Run a search analytics query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			resp, err := a.Reporter().SearchAnalytics(ctx, flags.req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	flags.register(cmd.Flags())
	markAnalyticsRequired(cmd)
	return cmd
}

func newExportCmd() *cobra.Command {
	flags := &analyticsFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a search analytics query and store the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			exporter := a.Exporter()
			if exporter == nil {
				return errors.New(`report export is disabled; set export.provider to "local" or "gcs"`)
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			result, err := exporter.Export(ctx, flags.req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	flags.register(cmd.Flags())
	markAnalyticsRequired(cmd)
	return cmd
}

func newInspectCmd() *cobra.Command {
	var req searchconsole.InspectRequest
	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Summarize the index status of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := withRequestTimeout(cmd.Context(), a)
			defer cancel()
			req.InspectionURL = args[0]
			summary, err := a.Reporter().InspectURL(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&req.SiteURL, "site", "", "property the URL belongs to (required)")
	cmd.Flags().StringVar(&req.LanguageCode, "language", "", "BCP-47 language code for translated issue messages")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

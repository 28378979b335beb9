package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/cloud/cors"
	"github.com/ipdata/ipdata/internal/config"
)

func newCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Administer the bucket CORS policy",
	}
	cmd.AddCommand(newCorsApplyCmd())
	return cmd
}

func newCorsApplyCmd() *cobra.Command {
	var (
		origin string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the browser-upload CORS rule to the target bucket",
		Long: `Apply the CORS rule that lets the marketplace front-end PUT to presigned
URLs. The origin defaults to IPDATA_ALLOWED_ORIGIN. A wildcard origin is
refused when IPDATA_ENV=production.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			origins := app.Config.AllowedOrigins()
			if origin != "" {
				origins = config.SplitOrigins(origin)
			}
			rule := cors.DefaultRule(origins)
			if err := cors.Validate(rule, app.Config.IsProduction()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			creds := app.Credentials.Resolve()
			fmt.Fprintf(out, "Bucket:  %s\n", creds.Bucket)
			fmt.Fprintf(out, "Origins: %s\n", strings.Join(rule.AllowedOrigins, ", "))
			fmt.Fprintf(out, "Methods: %s\n", strings.Join(rule.AllowedMethods, ", "))
			if dryRun {
				fmt.Fprintln(out, "(dry run, nothing applied)")
				return nil
			}

			if err := app.Cors.Apply(commandContext(cmd), creds, rule); err != nil {
				return withHint(err)
			}
			fmt.Fprintln(out, "✓ CORS rule applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "Allowed origins, comma-separated (default IPDATA_ALLOWED_ORIGIN)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the rule without applying it")
	return cmd
}

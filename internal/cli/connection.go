package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/cloud/connection"
	"github.com/ipdata/ipdata/internal/cloud/storage"
)

func newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Check connectivity to object storage",
	}
	cmd.AddCommand(newConnectionTestCmd())
	return cmd
}

func newConnectionTestCmd() *cobra.Command {
	var requireBucket bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Probe the resolved credentials with a single ListBuckets call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			creds, source := app.Credentials.ResolveWithSource()
			fmt.Fprintf(out, "Testing connection (credentials from %s)...\n", source)

			report, err := app.Validator.TestConnection(commandContext(cmd), creds)
			if err != nil {
				return withHint(err)
			}

			printReport(cmd, report)
			if requireBucket {
				return report.RequireBucket()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&requireBucket, "require-bucket", false, "Fail when the target bucket is not listed")
	return cmd
}

func printReport(cmd *cobra.Command, r *connection.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Connected in %s (region %s)\n", r.Latency.Round(time.Millisecond), r.Region)
	fmt.Fprintf(out, "  Buckets visible: %d\n", len(r.AvailableBuckets))
	if r.BucketExists {
		fmt.Fprintf(out, "  Target bucket %q: found\n", r.TargetBucket)
	} else {
		fmt.Fprintf(out, "  Target bucket %q: not listed (the key may lack s3:ListAllMyBuckets)\n", r.TargetBucket)
	}
}

// withHint appends the remediation hint of a storage error.
func withHint(err error) error {
	if hint := storage.HintOf(err); hint != "" {
		return fmt.Errorf("%w\n  hint: %s", err, hint)
	}
	return err
}

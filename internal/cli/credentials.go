package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/models"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Show, save or clear the storage credential override",
	}
	cmd.AddCommand(newCredentialsShowCmd())
	cmd.AddCommand(newCredentialsSaveCmd())
	cmd.AddCommand(newCredentialsClearCmd())
	return cmd
}

func newCredentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved credentials and where they came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			creds, source := app.Credentials.ResolveWithSource()

			fmt.Fprintf(out, "Source: %s\n", source)
			printCredentials(out, creds)

			fmt.Fprintln(out, "\nEnvironment:")
			for _, v := range app.Credentials.Environment().Required() {
				fmt.Fprintf(out, "  %s\n", v.Describe())
			}
			if _, ok := app.Credentials.Override(); ok {
				fmt.Fprintf(out, "\nOverride saved in %s\n", app.Config.SettingsPath)
			}
			return nil
		},
	}
}

func newCredentialsSaveCmd() *cobra.Command {
	var (
		accessKeyID string
		region      string
		bucket      string
		secretStdin bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a credential override to the settings file",
		Long: `Save a credential override used whenever a required IPDATA_* storage
variable is missing from the environment.

Values not given as flags are prompted for. The secret access key is never
accepted as a flag; it is prompted for without echo, or read from stdin with
--secret-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			current, _ := app.Credentials.Override()

			var err error
			if accessKeyID == "" {
				if accessKeyID, err = p.line("Access key ID", current.AccessKeyID); err != nil {
					return err
				}
			}
			var secret string
			if secretStdin {
				b, err := io.ReadAll(p.reader)
				if err != nil {
					return fmt.Errorf("failed to read secret from stdin: %w", err)
				}
				secret = strings.TrimSpace(string(b))
			} else if secret, err = p.secret("Secret access key"); err != nil {
				return err
			}
			if region == "" {
				if region, err = p.line("Region", current.EffectiveRegion()); err != nil {
					return err
				}
			}
			if bucket == "" {
				if bucket, err = p.line("Bucket", current.Bucket); err != nil {
					return err
				}
			}

			creds := models.StorageCredentials{
				AccessKeyID:     accessKeyID,
				SecretAccessKey: secret,
				Region:          region,
				Bucket:          bucket,
			}
			if !creds.IsComplete() {
				return storage.CredentialsMissing("SaveCredentials", creds.MissingFields())
			}
			if err := app.Credentials.Save(creds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Credentials saved to %s\n", app.Config.SettingsPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&accessKeyID, "access-key-id", "", "Access key ID")
	cmd.Flags().StringVar(&region, "region", "", "Bucket region (default us-east-1)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Target bucket")
	cmd.Flags().BoolVar(&secretStdin, "secret-stdin", false, "Read the secret access key from stdin")

	return cmd
}

func newCredentialsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved credential override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Credentials.Clear(); err != nil {
				return err
			}
			_, source := app.Credentials.ResolveWithSource()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Override cleared (credentials now from: %s)\n", source)
			return nil
		},
	}
}

func printCredentials(w io.Writer, creds models.StorageCredentials) {
	fmt.Fprintf(w, "  Access key ID:     %s\n", orUnset(models.MaskSecret(creds.AccessKeyID, 4)))
	fmt.Fprintf(w, "  Secret access key: %s\n", orUnset(models.MaskSecret(creds.SecretAccessKey, 0)))
	fmt.Fprintf(w, "  Region:            %s\n", creds.EffectiveRegion())
	fmt.Fprintf(w, "  Bucket:            %s\n", orUnset(creds.Bucket))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

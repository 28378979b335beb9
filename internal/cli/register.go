package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/models"
)

func newRegisterCmd() *cobra.Command {
	var (
		name        string
		description string
		mediaURL    string
		tags        []string
		license     string
	)

	cmd := &cobra.Command{
		Use:   "register <file-url>...",
		Short: "Register already-uploaded files as an IP asset",
		Long: `Submit an IP asset to the registration service at IPDATA_REGISTRY_URL.

The media URL defaults to the first file URL.`,
		Example: `  ipdata register https://bucket.s3.us-east-1.amazonaws.com/datasets/data.csv --name "Survey 2026"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Registry()
			if err != nil {
				return err
			}

			if mediaURL == "" {
				mediaURL = args[0]
			}
			asset := models.IPAsset{
				Name:        name,
				Description: description,
				MediaURL:    mediaURL,
				FileURLs:    args,
				Tags:        tags,
				License:     license,
			}

			id, err := client.Register(commandContext(cmd), asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered IP asset %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Asset name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Asset description")
	cmd.Flags().StringVar(&mediaURL, "media-url", "", "Primary media URL (default first file URL)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Asset tags")
	cmd.Flags().StringVar(&license, "license", "", "License identifier")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/localfs"
	"github.com/ipdata/ipdata/internal/progress"
	"github.com/ipdata/ipdata/internal/registry"
	"github.com/ipdata/ipdata/internal/util/tar"
)

// ErrUploadFailed is returned when at least one file failed.
var ErrUploadFailed = errors.New("one or more uploads failed")

func newUploadCmd() *cobra.Command {
	var (
		target      string
		dest        string
		preflight   bool
		register    bool
		name        string
		description string
		tags        []string
		archive     bool
		include     []string
		exclude     []string
		hidden      bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file|dir>...",
		Short: "Upload dataset files to the configured storage target",
		Long: `Upload files to object storage and print one URL per file.

Targets:
  direct            SDK upload with the resolved credentials
  presigned         presign each object, then PUT over HTTP (default)
  alternate:<name>  a registered backend (minio, gcs); azure is reserved

Directories are walked recursively and dot files are skipped unless --hidden
is given. With --archive each directory is packed into one .tar.gz first.
Files with the same name get _2, _3... suffixes. One failed file does not
stop the others.`,
		Example: `  ipdata upload data.csv
  ipdata upload ./corpus --target alternate:minio --dest corpora/v2
  ipdata upload ./corpus --archive --exclude '*.tmp'
  ipdata upload model.bin --register --name "Weights v1" --tags ml,weights`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			if target == "" {
				target = app.Config.Settings.Upload.Target
			}
			t, err := upload.ParseTarget(target)
			if err != nil {
				return err
			}
			if dest == "" {
				dest = app.Config.Settings.Upload.DestinationPath
			}

			var reg *registry.Client
			if register {
				if name == "" {
					return fmt.Errorf("--name is required with --register")
				}
				if reg, err = app.Registry(); err != nil {
					return err
				}
			}

			var archiveOpts *tar.Options
			stagingDir := ""
			if archive {
				archiveOpts = &tar.Options{Include: include, Exclude: exclude, IncludeHidden: hidden}
				if stagingDir, err = os.MkdirTemp("", "ipdata-archive-"); err != nil {
					return fmt.Errorf("failed to create staging directory: %w", err)
				}
				defer os.RemoveAll(stagingDir)
			}

			files, total, err := collectFiles(ctx, args, hidden, archiveOpts, stagingDir)
			if err != nil {
				return err
			}

			if preflight && t.Kind != upload.TargetAlternate {
				report, err := app.Validator.TestConnection(ctx, app.Credentials.Resolve())
				if err != nil {
					return withHint(err)
				}
				if err := report.RequireBucket(); err != nil {
					return err
				}
			}

			GetLogger().Info().
				Int("files", len(files)).
				Int64("bytes", total).
				Str("target", t.String()).
				Str("dest", dest).
				Msg("starting upload")

			res, err := runUpload(cmd, files, total, t, dest)
			if err != nil {
				return withHint(err)
			}

			printSession(out, res)

			if register && len(res.SucceededURLs) > 0 {
				asset, err := registry.AssetFromSession(name, description, tags, res)
				if err != nil {
					return err
				}
				id, err := reg.Register(ctx, asset)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Registered IP asset %s\n", id)
			}

			if !res.Succeeded() {
				return fmt.Errorf("%w (%d of %d)", ErrUploadFailed, len(res.Failures), len(res.Jobs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Upload target: direct, presigned or alternate:<name> (default from settings)")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination key prefix (default from settings)")
	cmd.Flags().BoolVar(&preflight, "preflight", false, "Run a connection test and require the bucket before uploading")
	cmd.Flags().BoolVar(&register, "register", false, "Register the uploaded files as an IP asset")
	cmd.Flags().StringVar(&name, "name", "", "Asset name (with --register)")
	cmd.Flags().StringVar(&description, "description", "", "Asset description (with --register)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Asset tags (with --register)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Upload each directory as one .tar.gz")
	cmd.Flags().StringSliceVar(&include, "include", nil, "With --archive, only archive files matching these patterns")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "With --archive, skip files matching these patterns")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Include dot files found in directories")

	return cmd
}

// runUpload draws a single bar for one file and per-file bars otherwise.
func runUpload(cmd *cobra.Command, files []upload.FileRef, total int64, t upload.Target, dest string) (*upload.SessionResult, error) {
	ctx := commandContext(cmd)

	if quiet {
		return app.Uploads.UploadAll(ctx, files, t, dest, nil)
	}

	errOut := cmd.ErrOrStderr()
	if f, ok := errOut.(*os.File); ok && len(files) > 1 {
		ui := progress.NewUploadUI(len(files), f)
		ui.Follow(app.Bus)
		res, err := app.Uploads.UploadAll(ctx, files, t, dest, nil)
		ui.Stop()
		return res, err
	}

	bar := progress.NewSessionBar(errOut, total, files[0].Name)
	res, err := app.Uploads.UploadAll(ctx, files, t, dest, bar.Observe)
	bar.Done(err)
	return res, err
}

// collectFiles expands args into file refs. With archive set, each
// directory argument becomes one tarball staged under stagingDir.
func collectFiles(ctx context.Context, args []string, hidden bool, archive *tar.Options, stagingDir string) ([]upload.FileRef, int64, error) {
	paths := args
	if archive != nil {
		paths = make([]string, 0, len(args))
		for _, arg := range args {
			dir, err := localfs.ExpandPath(arg)
			if err != nil {
				return nil, 0, err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				paths = append(paths, arg)
				continue
			}
			res, err := tar.Create(ctx, dir, filepath.Join(stagingDir, tar.ArchiveName(dir)), *archive)
			if err != nil {
				return nil, 0, err
			}
			GetLogger().Info().
				Str("dir", arg).
				Int("files", res.Files).
				Int64("input_bytes", res.InputBytes).
				Int64("archive_bytes", res.Size).
				Msg("directory archived")
			paths = append(paths, res.Path)
		}
	}

	entries, err := localfs.Collect(paths, localfs.Options{IncludeHidden: hidden})
	if err != nil {
		return nil, 0, err
	}

	files := make([]upload.FileRef, 0, len(entries))
	for _, e := range entries {
		ref, err := upload.FileRefFromPath(e.Path)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, ref)
	}
	return files, localfs.TotalSize(entries), nil
}

func printSession(w io.Writer, res *upload.SessionResult) {
	for _, j := range res.Jobs {
		if j.Status == upload.StatusSucceeded {
			fmt.Fprintf(w, "✓ %s → %s\n", j.FileName, j.URL)
		} else {
			fmt.Fprintf(w, "✗ %s: %v\n", j.FileName, j.Err)
		}
	}
	fmt.Fprintf(w, "\nSession %s: %d succeeded, %d failed\n",
		res.SessionID, len(res.SucceededURLs), len(res.Failures))
}

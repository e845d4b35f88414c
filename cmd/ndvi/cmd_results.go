package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/noah-isme/ndvi-gateway/pkg/config"
)

func newURLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "urls <session-id>",
		Short: "Print the resource URLs of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.results("", a.cfg.Preview)
			if err != nil {
				return err
			}
			files, err := svc.URLs(args[0])
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, files)
			}
			printField(a.out, "Preview", files.PreviewURL)
			printField(a.out, "Map", files.MapURL)
			printField(a.out, "Chart", files.ChartURL)
			printField(a.out, "Download", files.DownloadURL)
			printField(a.out, "Metadata", files.MetadataURL)
			return nil
		},
	}
}

func newMetadataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <session-id>",
		Short: "Print the metadata document of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.results("", a.cfg.Preview)
			if err != nil {
				return err
			}
			meta, err := svc.Metadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(a.out, meta)
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <session-id>",
		Short: "Download the result bundle of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Downloads.Dir
			}
			svc, err := a.results(dir, a.cfg.Preview)
			if err != nil {
				return err
			}
			saved, err := svc.SaveDownload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, saved)
			}
			fmt.Fprintf(a.out, "Saved %s (%s)\n", saved.Path, humanize.Bytes(uint64(saved.Size)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default DOWNLOADS_DIR)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete one of your analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.results("", a.cfg.Preview)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newPreviewWaitCmd(a *app) *cobra.Command {
	var (
		attempts int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "preview-wait <session-id>",
		Short: "Wait until the preview image of a session is available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preview := a.cfg.Preview
			if cmd.Flags().Changed("attempts") {
				preview.MaxAttempts = attempts
			}
			if cmd.Flags().Changed("interval") {
				preview = config.PreviewConfig{MaxAttempts: preview.MaxAttempts, Interval: interval, MaxInterval: interval}
			}
			svc, err := a.results("", preview)
			if err != nil {
				return err
			}
			wait, err := svc.WaitForPreview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, wait)
			}
			if !wait.Ready {
				printHint(a.errOut, fmt.Sprintf("Preview not available after %d attempts; showing a placeholder instead.", wait.Attempts))
				return nil
			}
			printField(a.out, "Preview", wait.PreviewURL)
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 0, "maximum number of probes (default 5)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "fixed delay between probes")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the analysis backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.backend.Health(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, status)
			}
			printField(a.out, "Backend", a.backend.Resolver().Base())
			printField(a.out, "Status", status.Status)
			printField(a.out, "Analyzer ready", fmt.Sprintf("%t", status.AnalyzerInitialized))
			printField(a.out, "Language model ready", fmt.Sprintf("%t", status.GeminiModelInitialized))
			return nil
		},
	}
}

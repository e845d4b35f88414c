package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/noah-isme/ndvi-gateway/internal/cards"
)

type pageFlags struct {
	limit  int
	offset int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", 0, "maximum number of analyses (default 50)")
	cmd.Flags().IntVar(&p.offset, "offset", 0, "number of analyses to skip")
}

func newGalleryCmd(a *app) *cobra.Command {
	page := &pageFlags{}
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List your past analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.gallery.List(cmd.Context(), page.limit, page.offset)
			if err != nil {
				return err
			}
			if result.Notice != "" {
				printHint(a.errOut, result.Notice)
			}
			if a.json {
				return writeJSON(a.out, result)
			}
			if len(result.Items) == 0 {
				fmt.Fprintln(a.out, "No analyses yet.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tLOCATION\tYEARS\tCREATED")
			for _, item := range result.Items {
				fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\n", item.SessionID, item.LocationName, item.StartYear, item.EndYear, relativeTime(item.CreatedAt))
			}
			return tw.Flush()
		},
	}
	page.register(cmd)
	return cmd
}

func newCardsCmd(a *app) *cobra.Command {
	page := &pageFlags{}
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Show your analyses as gallery cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.gallery.Cards(cmd.Context(), page.limit, page.offset)
			if err != nil {
				return err
			}
			if result.Notice != "" {
				printHint(a.errOut, result.Notice)
			}
			if a.json {
				return writeJSON(a.out, result)
			}
			for i, card := range result.Cards {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				printField(a.out, "Title", card.Title)
				printField(a.out, "Session", card.SessionID)
				fmt.Fprintln(a.out, "  "+card.Description)
				printField(a.out, "Category", string(card.Category))
				printField(a.out, "Tags", strings.Join(card.Tags, ", "))
				printField(a.out, "Created", relativeTime(card.CreatedAt))
			}
			return nil
		},
	}
	page.register(cmd)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your gallery as CSV or PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Downloads.Dir
			}
			svc, err := a.exports(dir)
			if err != nil {
				return err
			}
			file, err := svc.Save(cmd.Context(), format)
			if err != nil {
				return err
			}
			if file.Notice != "" {
				printHint(a.errOut, file.Notice)
			}
			if a.json {
				return writeJSON(a.out, file)
			}
			fmt.Fprintf(a.out, "Wrote %s (%d analyses, %s)\n", file.Path, file.Rows, humanize.Bytes(uint64(len(file.Data))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or pdf")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default DOWNLOADS_DIR)")
	return cmd
}

func relativeTime(raw string) string {
	ts, ok := cards.ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return humanize.Time(ts)
}

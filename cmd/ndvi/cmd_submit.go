package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		credentials  string
		downloadData bool
	)
	cmd := &cobra.Command{
		Use:   "submit [query]",
		Short: "Run an NDVI analysis described in plain language",
		Long: `Submits a natural-language request such as
"Analyze vegetation in Nairobi from 2019 to 2023" together with a Google
Cloud service account key. The command waits for the analysis to finish.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, closer, err := validation.OpenCredentialsFile(credentials)
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := validation.ValidateCredentialsFile(file); err != nil {
				return err
			}
			if !validation.LooksLikeJSON(file) {
				printHint(a.errOut, fmt.Sprintf("%s does not look like JSON (detected %s); the backend may reject it.", file.Name, file.DetectedType))
			}

			req := service.SubmitRequest{
				Query:           strings.Join(args, " "),
				CredentialsFile: file,
			}
			if cmd.Flags().Changed("download-data") {
				req.DownloadData = &downloadData
			}

			result, err := a.analyses.Submit(cmd.Context(), req, a.progress())
			if appErrors.IsCode(err, appErrors.CodeStillProcessing) {
				printHint(a.errOut, processingHint)
				return nil
			}
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, result)
			}
			printSession(a, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&credentials, "credentials", "c", "", "service account key (.json)")
	cmd.Flags().BoolVar(&downloadData, "download-data", false, "ask the backend to prepare the download bundle")
	_ = cmd.MarkFlagRequired("credentials")
	return cmd
}

// progress reports milestones on stderr when it is a terminal.
func (a *app) progress() models.ProgressFunc {
	if a.json || !isTerminal(a.errOut) {
		return nil
	}
	return func(percentage int, message string) {
		fmt.Fprintf(a.errOut, "[%3d%%] %s\n", percentage, message)
	}
}

func isTerminal(w interface{}) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printSession(a *app, result *service.SubmitResult) {
	card := result.Card
	printField(a.out, "Session", result.Session.SessionID)
	printField(a.out, "Title", card.Title)
	printField(a.out, "Location", card.LocationName)
	printField(a.out, "Years", fmt.Sprintf("%d-%d", card.StartYear, card.EndYear))
	printField(a.out, "Tags", strings.Join(card.Tags, ", "))
	printField(a.out, "Preview", result.Session.Files.PreviewURL)
	printField(a.out, "Map", result.Session.Files.MapURL)
	printField(a.out, "Chart", result.Session.Files.ChartURL)
	printField(a.out, "Download", result.Session.Files.DownloadURL)
}

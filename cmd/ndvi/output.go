package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const (
	offlineHint    = "The analysis backend is unreachable, so ndvi is running in offline/demo mode. Start the backend or point --api-url at it."
	processingHint = "The request timed out but the analysis may still be completing. Run `ndvi gallery` in a few minutes to check."
	forbiddenHint  = "Analyses belong to the identity that ran them. Check `ndvi identity show` or switch with `ndvi identity set`."
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
}

func printHint(w io.Writer, hint string) {
	fmt.Fprintln(w, hintStyle.Render(hint))
}

// reportError prints the user-facing message of err, plus a hint for the
// categories a user can act on.
func reportError(w io.Writer, err error) {
	appErr := appErrors.FromError(err)
	message := appErr.Message
	if appErr.Code == appErrors.CodeInternal && appErr.Err != nil {
		message = appErr.Err.Error()
	}
	fmt.Fprintln(w, errorStyle.Render("error: ")+message)
	switch appErr.Code {
	case appErrors.CodeOffline:
		printHint(w, offlineHint)
	case appErrors.CodeStillProcessing:
		printHint(w, processingHint)
	case appErrors.CodeForbidden:
		printHint(w, forbiddenHint)
	}
}

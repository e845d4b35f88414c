package main

import (
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/cards"
	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/pkg/config"
	"github.com/noah-isme/ndvi-gateway/pkg/export"
	"github.com/noah-isme/ndvi-gateway/pkg/logger"
	"github.com/noah-isme/ndvi-gateway/pkg/storage"
)

type rootOptions struct {
	apiURL        string
	identityFile  string
	submitTimeout time.Duration
	jsonOutput    bool
	verbose       bool
}

// app holds everything a command needs. It is built once per invocation
// after flags are parsed.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	backend  *client.Client
	ids      *identity.Provider
	store    *identity.FileStore
	analyses *service.AnalysisService
	gallery  *service.GalleryService
	out      io.Writer
	errOut   io.Writer
	json     bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "ndvi",
		Short: "Submit and browse NDVI vegetation analyses",
		Long: `ndvi talks to the NDVI analysis backend.

Analyses are scoped to a client user id kept in ~/.ndvi/identity.json. The id
is created on first use and can be shown, replaced or reset with the identity
commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", "", "backend origin (default from NDVI_API_URL)")
	flags.StringVar(&opts.identityFile, "identity-file", "", "file holding the client user id")
	flags.DurationVar(&opts.submitTimeout, "timeout", 0, "how long to wait for an analysis (default 3m)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print machine readable JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	root.AddCommand(
		newSubmitCmd(a),
		newGalleryCmd(a),
		newCardsCmd(a),
		newExportCmd(a),
		newURLsCmd(a),
		newMetadataCmd(a),
		newDownloadCmd(a),
		newDeleteCmd(a),
		newPreviewWaitCmd(a),
		newHealthCmd(a),
		newIdentityCmd(a),
	)
	return root
}

func (a *app) init(opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.apiURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(opts.apiURL, "/")
	}
	if opts.identityFile != "" {
		cfg.Identity.File = opts.identityFile
	}
	if opts.submitTimeout > 0 {
		cfg.Backend.SubmitTimeout = opts.submitTimeout
	}

	log, err := logger.NewCLI(cfg.Log.Level, opts.verbose)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.json = opts.jsonOutput
	a.backend = client.New(client.Options{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		SubmitTimeout:  cfg.Backend.SubmitTimeout,
		Breaker:        cfg.Breaker,
		Logger:         log.Named("backend"),
	})
	a.store = identity.NewFileStore(cfg.Identity.File)
	a.ids = identity.NewProvider(a.store, log)
	a.analyses = service.NewAnalysisService(a.backend, a.ids, nil, nil, nil, service.AnalysisConfig{DownloadData: cfg.Backend.DownloadData}, log)
	a.gallery = service.NewGalleryService(a.backend, a.ids, cards.NewMemoryCounters(), nil, service.GalleryConfig{DefaultLimit: cfg.Backend.GalleryLimit}, log)
	return nil
}

func (a *app) results(dir string, preview config.PreviewConfig) (*service.ResultService, error) {
	var files *storage.LocalStorage
	if dir != "" {
		var err error
		if files, err = storage.NewLocalStorage(dir); err != nil {
			return nil, err
		}
	}
	return service.NewResultService(a.backend, a.ids, optionalStorage(files), nil, preview, a.log), nil
}

func (a *app) exports(dir string) (*service.ExportService, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return service.NewExportService(a.gallery, files, service.ExportConfig{}, a.log, export.NewCSVExporter(), export.NewPDFExporter()), nil
}

// optionalStorage keeps a nil *LocalStorage from becoming a non-nil
// interface value inside ResultService.
func optionalStorage(files *storage.LocalStorage) interface {
	SaveStream(filename string, r io.Reader) (string, int64, error)
	Path(filename string) string
} {
	if files == nil {
		return nil
	}
	return files
}

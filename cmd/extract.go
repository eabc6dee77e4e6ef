package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/present"
	"github.com/sells-group/docextract/internal/session"
)

// Output formats for the extract command.
const (
	formatText  = "text"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
	formatPrint = "print"
)

var (
	extractProvider string
	extractAPIKey   string
	extractFormat   string
	extractOut      string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract the fields of one document",
	Long:  "Runs a JPG, PNG or PDF through the extraction pipeline. Without --api-key the manual template is produced.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cfg, nil)
		if err != nil {
			return err
		}

		opts := extractOptions{
			Provider: extractProvider,
			APIKey:   extractAPIKey,
			Format:   extractFormat,
			Out:      extractOut,
			Dir:      cfg.Export.Dir,
		}
		return runExtract(cmd.Context(), env, args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

type extractOptions struct {
	Provider string
	APIKey   string
	Format   string
	Out      string
	Dir      string
	Now      func() time.Time
}

// runExtract extracts path and writes the result in the requested format to
// opts.Out, or to stdout for text, json and print.
func runExtract(ctx context.Context, env *extractEnv, path string, opts extractOptions, stdout, stderr io.Writer) error {
	format := strings.ToLower(opts.Format)
	switch format {
	case formatText, formatJSON, formatXLSX, formatPrint:
	default:
		return eris.Errorf("unsupported format %q", opts.Format)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	strategy := extract.Manual()
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		p, err := model.ParseProvider(opts.Provider)
		if err != nil {
			return err
		}
		if err := session.ValidateKey(p, key); err != nil {
			return err
		}
		strategy = extract.Remote(p, key)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}

	res, f, err := env.Pipeline.Process(ctx, filepath.Base(path), "", data, strategy)
	if err != nil {
		return err
	}
	fmt.Fprintln(stderr, res.Notice.Message)
	zap.L().Debug("extract: finished",
		zap.String("file", f.Name),
		zap.String("source", string(res.Extraction.Source)),
	)

	w := stdout
	if format == formatXLSX && opts.Out == "" {
		name := present.ExportFileName(now())
		opts.Out = filepath.Join(opts.Dir, strings.TrimSuffix(name, ".json")+".xlsx")
	}
	if opts.Out != "" {
		out, err := os.Create(opts.Out)
		if err != nil {
			return eris.Wrapf(err, "create %s", opts.Out)
		}
		defer out.Close() //nolint:errcheck
		w = out
	}

	switch format {
	case formatText:
		text, err := env.Presenter.PlainTextSummary(res.Extraction.Model)
		if err != nil {
			return emptyResult(err, "⚠️ Nenhum dado para copiar. Preencha os campos primeiro.")
		}
		_, err = io.WriteString(w, text)
		return err
	case formatPrint:
		doc, err := env.Presenter.PrintDocument(res.Extraction.Model, f.Name)
		if err != nil {
			return emptyResult(err, "⚠️ Nenhum dado para imprimir. Preencha os campos primeiro.")
		}
		return present.RenderHTML(w, doc)
	}

	doc, err := env.Presenter.ExportDocument(res.Extraction, f.Name)
	if err != nil {
		return emptyResult(err, "⚠️ Nenhum dado para exportar. Preencha os campos primeiro.")
	}
	if format == formatXLSX {
		if err := present.WriteXLSX(w, doc); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "✅ Arquivo exportado: %s\n", opts.Out)
		return nil
	}
	return present.WriteJSON(w, doc)
}

func emptyResult(err error, msg string) error {
	if errors.Is(err, present.ErrEmptyResult) {
		return eris.New(msg)
	}
	return err
}

func init() {
	extractCmd.Flags().StringVar(&extractProvider, "provider", string(model.ProviderClaude), "AI provider (claude or gemini)")
	extractCmd.Flags().StringVar(&extractAPIKey, "api-key", "", "provider API key; omit for the manual template")
	extractCmd.Flags().StringVar(&extractFormat, "format", formatText, "output format: text, json, xlsx or print")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file (default stdout; xlsx defaults to export.dir)")
	rootCmd.AddCommand(extractCmd)
}

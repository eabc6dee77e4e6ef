package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/docextract/pkg/docapi"
)

var checkURL string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the extraction backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := checkURL
		if url == "" {
			url = cfg.Backend.BaseURL
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		return runCheck(ctx, docapi.NewClient(url), url, cmd.OutOrStdout())
	},
}

func runCheck(ctx context.Context, client docapi.Client, url string, w io.Writer) error {
	h, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "🔴 Backend offline: %s\n", url)
		return err
	}
	fmt.Fprintf(w, "🟢 Backend online: %s (%s, versão %s, %s)\n", url, h.Status, h.Version, h.Environment)
	return nil
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "", "backend base URL (default backend.base_url)")
	rootCmd.AddCommand(checkCmd)
}

// file: cmd/lookup.go
// version: 1.0.0
// guid: 7d9f1b3e-4c6a-4d8f-a0b2-3e5c7a9d1f4b

package cmd

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Run one federated lookup and print the merged record as JSON",
	Example: `  shelvance lookup --query "Dune" --author "Frank Herbert"
  shelvance lookup --capability isbn_lookup --id 9780441013593 --mode merge`,
	Args: cobra.NoArgs,
	RunE: runLookup,
}

type failureOutput struct {
	ProviderID   string              `json:"provider_id"`
	ProviderName string              `json:"provider_name"`
	Class        metadata.ErrorClass `json:"class"`
	Error        string              `json:"error"`
}

type lookupOutput struct {
	Record   *engine.MergedRecord `json:"record"`
	Failures []failureOutput      `json:"failures,omitempty"`
	Skipped  []string             `json:"skipped,omitempty"`
}

func renderFailures(failures []engine.ProviderFailure) []failureOutput {
	out := make([]failureOutput, 0, len(failures))
	for _, f := range failures {
		fo := failureOutput{ProviderID: f.ProviderID, ProviderName: f.ProviderName, Class: f.Class}
		if f.Err != nil {
			fo.Error = f.Err.Error()
		}
		out = append(out, fo)
	}
	return out
}

func lookupRequestFromFlags(cmd *cobra.Command) engine.LookupRequest {
	flags := cmd.Flags()
	capability, _ := flags.GetString("capability")
	query, _ := flags.GetString("query")
	author, _ := flags.GetString("author")
	id, _ := flags.GetString("id")
	mode, _ := flags.GetString("mode")
	purpose, _ := flags.GetString("purpose")
	limit, _ := flags.GetInt("limit")
	return engine.LookupRequest{
		Capability: models.Capability(capability),
		Mode:       engine.Mode(mode),
		Purpose:    provider.Purpose(purpose),
		Query:      query,
		Author:     author,
		Identifier: id,
		Limit:      limit,
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := openApp(config.AppConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext(cmd)
	defer stop()

	res, err := a.engine.Execute(ctx, lookupRequestFromFlags(cmd))
	if err != nil {
		var uerr *engine.UnavailableError
		if errors.As(err, &uerr) {
			for _, f := range uerr.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", f.Error())
			}
			for _, id := range uerr.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: circuit open\n", id)
			}
		}
		return err
	}

	out, err := json.MarshalIndent(lookupOutput{
		Record:   res.Record,
		Failures: renderFailures(res.Failures),
		Skipped:  res.Skipped,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func init() {
	lookupCmd.Flags().String("capability", string(models.CapBookSearch), "capability to request (book_search, author_search, isbn_lookup, asin_lookup, series_info, covers, ratings, descriptions)")
	lookupCmd.Flags().StringP("query", "q", "", "title, author name or series name")
	lookupCmd.Flags().String("author", "", "narrow book searches by author")
	lookupCmd.Flags().String("id", "", "ISBN, ASIN or series identifier")
	lookupCmd.Flags().String("mode", string(engine.ModeSingle), "single (first provider with data) or merge (all providers)")
	lookupCmd.Flags().String("purpose", string(provider.PurposeInteractive), "search, interactive or refresh; selects which provider feature flag applies")
	lookupCmd.Flags().Int("limit", 0, "maximum candidates per provider (0 uses the adapter default)")
}

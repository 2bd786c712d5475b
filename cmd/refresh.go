// file: cmd/refresh.go
// version: 1.0.0
// guid: 9e1a3c5b-6d8f-4b0a-b2c4-5f7e9a1c3d6b

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [identifier...]",
	Short: "Refresh metadata for a batch of identifiers",
	Long: `Refresh re-queries every provider with automatic refresh enabled for each
identifier and reports which ones were updated, had no data, or could not
be served because providers were unavailable.`,
	Example: `  shelvance refresh 9780441013593 9780553293357
  shelvance refresh --capability asin_lookup --file asins.txt`,
	RunE: runRefresh,
}

// barReporter shows refresh progress on a terminal progress bar.
type barReporter struct {
	bar      *progressbar.ProgressBar
	canceled func() bool
}

func (r *barReporter) UpdateProgress(current, total int, message string) error {
	if total > 0 {
		r.bar.ChangeMax(total)
	}
	r.bar.Describe(message)
	return r.bar.Set(current)
}

func (r *barReporter) IsCanceled() bool { return r.canceled() }

// readIdentifiers returns one identifier per non-blank line, skipping
// lines starting with #.
func readIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ids, nil
}

func refreshRequestsFromFlags(cmd *cobra.Command, args []string) ([]engine.LookupRequest, error) {
	capability, _ := cmd.Flags().GetString("capability")
	mode, _ := cmd.Flags().GetString("mode")
	file, _ := cmd.Flags().GetString("file")

	ids := append([]string(nil), args...)
	if file != "" {
		fromFile, err := readIdentifiers(file)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no identifiers given")
	}

	reqs := make([]engine.LookupRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, engine.LookupRequest{
			Capability: models.Capability(capability),
			Identifier: id,
			Mode:       engine.Mode(mode),
		})
	}
	return reqs, nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	reqs, err := refreshRequestsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	a, err := openApp(config.AppConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext(cmd)
	defer stop()

	job := operations.NewRefreshJob(reqs)
	bar := progressbar.NewOptions(len(reqs),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("refreshing"),
		progressbar.OptionShowCount(),
	)
	runErr := job.Func(a.engine)(ctx, &barReporter{bar: bar, canceled: func() bool { return ctx.Err() != nil }})
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		out, err := json.MarshalIndent(job.Items(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "IDENTIFIER\tSTATUS\tDETAIL")
		for _, item := range job.Items() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", item.Request.Identifier, item.Status, item.Error)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("refresh stopped: %w", runErr)
	}
	return nil
}

func init() {
	refreshCmd.Flags().String("capability", string(models.CapISBNLookup), "identifier lookup to run (isbn_lookup or asin_lookup)")
	refreshCmd.Flags().String("mode", string(engine.ModeMerge), "single or merge")
	refreshCmd.Flags().StringP("file", "f", "", "file with one identifier per line")
	refreshCmd.Flags().Bool("json", false, "print per-item results as JSON")
}

// file: cmd/providers.go
// version: 1.0.0
// guid: 2c4e6a8b-3d5f-4a7c-8e9b-1d3f5a7c9e2b

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/watcher"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage metadata providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers in the order they are asked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		defs, err := a.registry.All()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tKIND\tPRIORITY\tFEATURES")
		for _, def := range defs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", def.ID, def.Name, def.ImplementationKind, def.Priority, featureList(def.Features))
		}
		return tw.Flush()
	},
}

var providersImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import provider definitions from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.Close()
		return importProviderFile(cmd, a, args[0])
	},
}

var providersTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Run a provider's connection test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		def, err := a.registry.Get(args[0])
		if err != nil {
			return fmt.Errorf("provider %s: %w", args[0], err)
		}
		ctx, stop := interruptContext(cmd)
		defer stop()
		if err := a.engine.TestProvider(ctx, *def); err != nil {
			return fmt.Errorf("%s: test failed (%s): %w", def.Name, metadata.Classify(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", def.Name)
		return nil
	},
}

var providersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show each provider's circuit state and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.engine.AllHealth()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTATE\tLEVEL\tDISABLED UNTIL\tOK\tFAILED")
		for _, h := range all {
			until := "-"
			if h.State == models.CircuitOpen && h.Status.DisabledUntil != nil {
				until = h.Status.DisabledUntil.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\n", h.ProviderName, h.State, h.Status.EscalationLevel,
				until, h.Status.SuccessfulQueryCount, h.Status.FailedQueryCount)
		}
		return tw.Flush()
	},
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersImportCmd)
	providersCmd.AddCommand(providersTestCmd)
	providersCmd.AddCommand(providersHealthCmd)
}

// importProviderFile imports path and prints what changed. Entries that
// fail validation are reported and make the command fail after the rest
// were imported.
func importProviderFile(cmd *cobra.Command, a *app, path string) error {
	res, err := watcher.ReloadProviders(a.registry, path)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s: %d created, %d updated, %d unchanged, %d failed\n",
		path, len(res.Created), len(res.Updated), len(res.Unchanged), len(res.Failed))
	if len(res.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(res.Failed))
	for name := range res.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %v\n", name, res.Failed[name])
	}
	return fmt.Errorf("%d provider definitions were rejected", len(res.Failed))
}

func featureList(f models.FeatureFlags) string {
	var on []string
	if f.AuthorSearchEnabled {
		on = append(on, "author")
	}
	if f.BookSearchEnabled {
		on = append(on, "book")
	}
	if f.AutomaticRefreshEnabled {
		on = append(on, "refresh")
	}
	if f.InteractiveSearchEnabled {
		on = append(on, "interactive")
	}
	return strings.Join(on, ",")
}

// interruptContext is canceled on Ctrl-C so in-flight provider calls stop.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

type fakeSource struct {
	name string
	book *models.Book
	err  error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	if s.err != nil || s.book == nil {
		return nil, s.err
	}
	return []models.Book{*s.book}, nil
}

func (s *fakeSource) LookupISBN(ctx context.Context, isbn string) (*models.Book, error) {
	if s.err != nil || s.book == nil || s.book.ISBN13 != isbn {
		return nil, s.err
	}
	return s.book, nil
}

func (s *fakeSource) Test(ctx context.Context) error { return s.err }

type fakeCatalog map[string]*fakeSource

func (c fakeCatalog) Capabilities(kind string) (models.Capabilities, bool) {
	if _, ok := c[kind]; !ok {
		return models.Capabilities{}, false
	}
	return models.Capabilities{BookSearch: true, ISBNLookup: true}, true
}

func (c fakeCatalog) ValidateSettings(kind string, settings json.RawMessage) error { return nil }

func (c fakeCatalog) Build(kind string, settings json.RawMessage) (metadata.MetadataSource, error) {
	src, ok := c[kind]
	if !ok {
		return nil, &metadata.ProviderError{Provider: kind, Class: metadata.ClassConfiguration, Err: fmt.Errorf("unknown implementation %q", kind)}
	}
	return src, nil
}

var dune = &models.Book{Title: "Dune", Authors: []string{"Frank Herbert"}, ISBN13: "9780441013593"}

// useTestApp points every command at one in-memory store.
func useTestApp(t *testing.T, catalog fakeCatalog) *database.MockStore {
	t.Helper()
	store := database.NewMockStore()
	orig := openApp
	origCfg := config.AppConfig
	openApp = func(cfg config.Config) (*app, error) {
		return newApp(store, catalog, cfg), nil
	}
	t.Cleanup(func() {
		openApp = orig
		config.AppConfig = origCfg
	})
	return store
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeProviders(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

const twoProviders = `providers:
  - name: Alpha
    implementation: alpha
    priority: 10
  - name: Beta
    implementation: beta
    priority: 20
`

func TestInitConfigCreatesDatabaseDirectory(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "db", "shelvance.pebble")

	origCfgFile := cfgFile
	origDBPath := databasePath
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		databasePath = origDBPath
		config.AppConfig = origConfig
	}()

	cfgFile = filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("registry_cache_ttl: 5m\n"), 0o644))
	databasePath = dbPath

	initConfig()

	_, err := os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)
	assert.Equal(t, "5m0s", config.AppConfig.RegistryCacheTTL.String())
}

func TestProvidersImportAndList(t *testing.T) {
	useTestApp(t, fakeCatalog{"alpha": {name: "Alpha"}, "beta": {name: "Beta"}})
	path := writeProviders(t, twoProviders)

	out, err := runCommand(t, "providers", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 created, 0 updated, 0 unchanged, 0 failed")

	out, err = runCommand(t, "providers", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 0 updated, 2 unchanged, 0 failed")

	out, err = runCommand(t, "providers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PRIORITY")
	assert.Less(t, bytes.Index([]byte(out), []byte("Alpha")), bytes.Index([]byte(out), []byte("Beta")))
	assert.Contains(t, out, "author,book,refresh,interactive")
}

func TestProvidersImportReportsRejectedEntries(t *testing.T) {
	useTestApp(t, fakeCatalog{"alpha": {name: "Alpha"}})
	path := writeProviders(t, twoProviders)

	out, err := runCommand(t, "providers", "import", path)
	require.Error(t, err)
	assert.Contains(t, out, "1 created")
	assert.Contains(t, out, "Beta:")
}

func TestProvidersTestAndHealth(t *testing.T) {
	catalog := fakeCatalog{"alpha": {name: "Alpha"}}
	store := useTestApp(t, catalog)
	_, err := runCommand(t, "providers", "import", writeProviders(t, "providers:\n  - name: Alpha\n    implementation: alpha\n"))
	require.NoError(t, err)

	defs, err := store.GetAllProviders()
	require.NoError(t, err)
	require.Len(t, defs, 1)

	out, err := runCommand(t, "providers", "test", defs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha: OK")

	catalog["alpha"].err = &metadata.ProviderError{Provider: "Alpha", Class: metadata.ClassConfiguration, Err: fmt.Errorf("401")}
	_, err = runCommand(t, "providers", "test", defs[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration")

	out, err = runCommand(t, "providers", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, string(models.CircuitClosed))
}

func TestLookupPrintsMergedRecord(t *testing.T) {
	useTestApp(t, fakeCatalog{
		"alpha": {name: "Alpha", book: dune},
		"beta":  {name: "Beta", err: &metadata.ProviderError{Provider: "Beta", Class: metadata.ClassOperational, Err: fmt.Errorf("503")}},
	})
	_, err := runCommand(t, "providers", "import", writeProviders(t, twoProviders))
	require.NoError(t, err)

	out, err := runCommand(t, "lookup", "--query", "Dune", "--mode", "merge")
	require.NoError(t, err)

	var res struct {
		Record struct {
			Sources []string `json:"sources"`
		} `json:"record"`
		Failures []failureOutput `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Record.Sources, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "Beta", res.Failures[0].ProviderName)
	assert.Equal(t, metadata.ClassOperational, res.Failures[0].Class)
}

func TestLookupRejectsInvalidRequest(t *testing.T) {
	useTestApp(t, fakeCatalog{"alpha": {name: "Alpha", book: dune}})

	_, err := runCommand(t, "lookup", "--capability", "isbn_lookup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier")
}

func TestRefreshReportsEachIdentifier(t *testing.T) {
	useTestApp(t, fakeCatalog{"alpha": {name: "Alpha", book: dune}})
	_, err := runCommand(t, "providers", "import", writeProviders(t, "providers:\n  - name: Alpha\n    implementation: alpha\n"))
	require.NoError(t, err)

	idFile := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(idFile, []byte("# wanted\n9780000000000\n\n"), 0o644))

	out, err := runCommand(t, "refresh", "9780441013593", "--file", idFile)
	require.NoError(t, err)
	assert.Contains(t, out, "9780441013593  updated")
	assert.Contains(t, out, "9780000000000  not_found")
}

func TestRefreshRequiresIdentifiers(t *testing.T) {
	useTestApp(t, fakeCatalog{})

	_, err := runCommand(t, "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identifiers")
}

func TestReadIdentifiersSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("  a \n#b\n\nc\n"), 0o644))

	ids, err := readIdentifiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)

	_, err = readIdentifiers(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

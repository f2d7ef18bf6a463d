// Command gotlm extracts, translates and publishes structured content.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/cache"
	"github.com/ZaguanLabs/gotlm/config"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/provider"
	"github.com/ZaguanLabs/gotlm/store"
	"github.com/ZaguanLabs/gotlm/translation"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&cli{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// cli carries the global flags and the configuration shared by commands.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	envFile    string
	dbPath     string
	schemaPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   gotlm.Name,
		Short: gotlm.Description,
		Long: `gotlm splits structured content into translatable segments, keeps them
in a translation memory and rebuilds translated objects from it.

Objects are JSON documents described by a schema file (YAML, JSON or TOML).
Settings are read from the environment and from a .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.envFile, "env", "", "dotenv file to read (default: .env)")
	pf.StringVar(&c.dbPath, "db", "", "SQLite database path (overrides GOTLM_DB_PATH)")
	pf.StringVar(&c.schemaPath, "schema", "", "content schema file (overrides GOTLM_SCHEMA_PATH)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newVersionCmd(c),
		newMigrateCmd(c),
		newExtractCmd(c),
		newDiffCmd(c),
		newSubmitCmd(c),
		newStatusCmd(c),
		newEditCmd(c),
		newTranslateCmd(c),
		newPOCmd(c),
		newPublishCmd(c),
		newServeCmd(c),
		newCacheCmd(c),
	)
	return root
}

func (c *cli) load() error {
	var files []string
	if c.envFile != "" {
		files = append(files, c.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.schemaPath != "" {
		cfg.SchemaPath = c.schemaPath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	c.logger = cfg.NewLogger(c.stderr)
	return nil
}

func (c *cli) schema() (*content.Schema, error) {
	s, err := content.LoadSchema(c.cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", c.cfg.SchemaPath, err)
	}
	return s, nil
}

// openStore opens and migrates the database.
func (c *cli) openStore() (*store.Store, func(), error) {
	db, err := store.NewDB(c.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.New(db), func() { db.Close() }, nil
}

// openCache returns the configured lookup cache.
func (c *cli) openCache(ctx context.Context) (cache.TranslationCache, error) {
	return cache.New(ctx, cache.Config{
		RedisURL: c.cfg.RedisURL,
		Prefix:   c.cfg.CachePrefix,
		TTL:      c.cfg.CacheTTL,
	})
}

// machineTranslator wraps the configured provider with retries, rate
// limiting and batching.
func (c *cli) machineTranslator(tc gotlm.TranslationCache) (*gotlm.BatchTranslator, error) {
	name := c.cfg.MTProvider
	if name == "" {
		name = "openai"
	}
	p, err := provider.New(provider.Config{
		Name:    name,
		APIKey:  c.cfg.OpenAIAPIKey,
		Model:   c.cfg.OpenAIModel,
		BaseURL: c.cfg.OpenAIBaseURL,
	})
	if err != nil {
		return nil, err
	}

	var mt gotlm.MachineTranslator = gotlm.NewRetryingTranslator(p, gotlm.DefaultRetryPolicy(), c.logger)
	mt = gotlm.NewRateLimitedTranslator(mt, gotlm.RateLimitConfig{RequestsPerMinute: c.cfg.MTRPM})

	return gotlm.NewBatchTranslator(mt,
		gotlm.WithProviderName(name),
		gotlm.WithBatchSize(c.cfg.MTBatchSize),
		gotlm.WithCache(tc),
		gotlm.WithLogger(c.logger),
	), nil
}

// serviceMode says whether a command needs machine translation.
type serviceMode int

const (
	withoutMT serviceMode = iota
	optionalMT
	requireMT
)

// service builds the translation service. The returned func releases the
// database and cache.
func (c *cli) service(ctx context.Context, mode serviceMode) (*translation.Service, func(), error) {
	schema, err := c.schema()
	if err != nil {
		return nil, nil, err
	}
	policy, err := translation.ParseMissingPolicy(c.cfg.MissingPolicy)
	if err != nil {
		return nil, nil, err
	}
	locales, err := gotlm.NewLocaleResolver(append([]string{c.cfg.SourceLocale}, c.cfg.TargetLocales()...))
	if err != nil {
		return nil, nil, err
	}
	st, closeDB, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	tc, err := c.openCache(ctx)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	cleanup := func() {
		if cl, ok := tc.(io.Closer); ok {
			cl.Close()
		}
		closeDB()
	}

	opts := []translation.Option{
		translation.WithCache(tc),
		translation.WithMissingPolicy(policy),
		translation.WithLocales(locales),
		translation.WithLogger(c.logger),
	}
	if mode != withoutMT {
		mt, err := c.machineTranslator(tc)
		switch {
		case err == nil:
			opts = append(opts, translation.WithMachineTranslator(mt))
		case mode == requireMT:
			cleanup()
			return nil, nil, err
		default:
			c.logger.Warn("machine translation disabled", "error", err)
		}
	}

	return translation.NewService(st, schema, opts...), cleanup, nil
}

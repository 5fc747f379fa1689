package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/bootstrap"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// noQuotesPlaceholder is printed when the filter selects nothing.
const noQuotesPlaceholder = "No quotes found"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	profile   string
	storePath string
	mirrorURL string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Manage the quotebook from the command line",
		Long: `quotectl reads and writes the same quote store as the quotebook service.

Quotes live in the configured store (store.path). The sync command
reconciles the store with the remote mirror exactly as the service does.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultProfile := os.Getenv("APP_ENVIRONMENT")
	if defaultProfile == "" {
		defaultProfile = "local"
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.profile, "profile", defaultProfile, "configuration profile (configs/{profile}.yaml)")
	flags.StringVar(&opts.storePath, "store", "", "override the sqlite store path")
	flags.StringVar(&opts.mirrorURL, "mirror-url", "", "override the mirror base URL")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "pretty", "log format (json, text, pretty)")

	root.AddCommand(
		newAddCmd(opts),
		newListCmd(opts),
		newRandomCmd(opts),
		newCategoriesCmd(opts),
		newFilterCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newSyncCmd(opts),
	)

	return root
}

// withComponents builds the application, runs fn and reports the message
// the operation left behind on stderr.
func (o *rootOptions) withComponents(cmd *cobra.Command, fn func(ctx context.Context, c *bootstrap.Components) error) error {
	cfg, err := bootstrap.LoadConfig(o.profile)
	if err != nil {
		return err
	}

	if o.storePath != "" {
		cfg.Store.Driver = bootstrap.DriverSQLite
		cfg.Store.Path = o.storePath
	}

	if o.mirrorURL != "" {
		cfg.Services.Mirror.BaseURL = o.mirrorURL
	}

	cfg.Log.Level = o.logLevel
	cfg.Log.Format = o.logFormat

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := bootstrap.NewLoggerWithWriter(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	c, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runErr := fn(ctx, c)

	if msg, ok := c.Messages.Current(); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", msg.Kind, msg.Text)
	}

	return errors.Join(runErr, c.Close())
}

func printQuote(w io.Writer, q domain.Quote) {
	fmt.Fprintf(w, "[%s] %s\n", q.Category, q.Text)
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text> <category>",
		Short: "Add a quote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				q, err := c.Book.Add(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				printQuote(cmd.OutOrStdout(), q)

				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, optionally for one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd, func(_ context.Context, c *bootstrap.Components) error {
				quotes := domain.FilterByCategory(c.Book.Quotes(), category)
				if quotes == nil {
					quotes = []domain.Quote{}
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")

					return enc.Encode(quotes)
				}

				for _, q := range quotes {
					printQuote(cmd.OutOrStdout(), q)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", domain.AllCategories, "category to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")

	return cmd
}

func newRandomCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Show a random quote from the selected category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				q, err := c.Book.ShowRandom(ctx)
				if domain.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), noQuotesPlaceholder)
					return nil
				}

				if err != nil {
					return err
				}

				printQuote(cmd.OutOrStdout(), q)

				return nil
			})
		},
	}
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the selectable category filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd, func(_ context.Context, c *bootstrap.Components) error {
				for _, category := range c.Book.Categories() {
					fmt.Fprintln(cmd.OutOrStdout(), category)
				}

				return nil
			})
		},
	}
}

func newFilterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: "Show or select the category filter",
		Long: `Without an argument, prints the selected category filter.
With an argument, selects it. Use "all" to clear the filter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				if len(args) == 1 {
					if err := c.Book.SetFilter(ctx, args[0]); err != nil {
						return err
					}
				}

				fmt.Fprintln(cmd.OutOrStdout(), c.Book.Filter())

				return nil
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every quote as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				if output == "" || output == "-" {
					return c.Book.Export(ctx, cmd.OutOrStdout())
				}

				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}

				if err := c.Book.Export(ctx, f); err != nil {
					_ = f.Close()
					return err
				}

				return f.Close()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Append quotes from a JSON array document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				var r io.Reader = cmd.InOrStdin()

				if args[0] != "-" {
					f, err := os.Open(args[0])
					if err != nil {
						return fmt.Errorf("opening import file: %w", err)
					}
					defer f.Close()

					r = f
				}

				n, err := c.Book.Import(ctx, r)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes\n", n)

				return nil
			})
		},
	}
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the store with the remote mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd, func(ctx context.Context, c *bootstrap.Components) error {
				result, err := c.Reconciler.Sync(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "pushed %d, remote %d, merged %d, changed %t\n",
					len(result.Pushed), result.Remote, result.Merged, result.Changed)

				return nil
			})
		},
	}
}

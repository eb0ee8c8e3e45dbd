package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sfi2k7/bluequery"
	"github.com/sfi2k7/bluequery/config"
	"github.com/sfi2k7/bluequery/keystore"
)

type app struct {
	configFile   string
	registryFile string
	verbose      bool

	cfg *config.Config
	reg *bluequery.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "bluequery",
		Short:         "Validate and normalize query strings",
		Long:          `Parse query strings against a parameter catalog, validate every value and print the canonical form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./config.*)")
	rootCmd.PersistentFlags().StringVar(&a.registryFile, "registry", "", "parameter catalog file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		a.normalizeCmd(),
		a.keyCmd(),
		a.getCmd(),
		a.urlCmd(),
	)
	return rootCmd
}

func (a *app) setup(stderr io.Writer) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	path := a.registryFile
	if path == "" {
		path = cfg.RegistryFile
	}
	if path == "" {
		return errors.New("no parameter catalog: pass --registry or set BLUEQUERY_REGISTRY_FILE")
	}
	reg, err := bluequery.LoadRegistryFile(path)
	if err != nil {
		return err
	}
	a.reg = reg
	return nil
}

func (a *app) options() bluequery.Options {
	return bluequery.Options{
		EncodeURLs:   a.cfg.EncodeURLs,
		URLMaxLength: a.cfg.URLMaxLength,
		Logger:       slog.Default(),
	}
}

func (a *app) normalizeCmd() *cobra.Command {
	var sep string
	cmd := &cobra.Command{
		Use:   "normalize <query>",
		Short: "Print the canonical form of a query string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := bluequery.Parse(a.reg, args[0], a.options())
			if err != nil {
				return err
			}
			out, err := p.ToURL(sep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sep, "separator", "&", "parameter separator")
	return cmd
}

func (a *app) keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <query>",
		Short: "Print the derived key of the storable parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := bluequery.Parse(a.reg, args[0], a.options())
			if err != nil {
				return err
			}
			key, err := p.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <query> <name>",
		Short: "Print the values of one parameter, one per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := a.reg.Lookup(args[1])
			if !ok {
				return errors.Errorf("unknown parameter %q", args[1])
			}
			p, err := bluequery.Parse(a.reg, args[0], a.options())
			if err != nil {
				return err
			}
			for _, v := range p.GetValues(d).Strings() {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func (a *app) urlCmd() *cobra.Command {
	var sep string
	cmd := &cobra.Command{
		Use:   "url <query>",
		Short: "Print the request URL, storing long storable queries under their key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keystore.New(a.cfg.Storage.Dir, a.cfg.Storage.CacheTTL, slog.Default())
			if err != nil {
				return err
			}
			defer store.Close()

			opts := a.options()
			opts.KeyStore = store
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			p := bluequery.New(a.reg, opts)
			if err := p.LoadRequest(ctx, args[0]); err != nil {
				return err
			}
			out, err := p.RequestURL(ctx, sep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sep, "separator", "&", "parameter separator")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bluequery:", err)
		os.Exit(1)
	}
}

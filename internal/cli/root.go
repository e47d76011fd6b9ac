// Package cli implements the propstore command line tool: inspecting and
// editing persisted property documents and SQLite stores.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.byted.org/khicago/propstore"
	"code.byted.org/khicago/propstore/sqlitedriver"
)

// Config is the resolved tool configuration.
type Config struct {
	File     string `mapstructure:"file"`
	Format   string `mapstructure:"format"`
	Comment  string `mapstructure:"comment"`
	Encoding string `mapstructure:"encoding"`
	LogLevel string `mapstructure:"log_level"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		File:     "properties.xml",
		LogLevel: "warn",
	}
}

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	log     zerolog.Logger
}

// NewRootCommand builds the command tree. Output goes to out, logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "propstore",
		Short:         "Inspect and edit namespaced property stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	defaults := Defaults()
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./.propstore.yaml)")
	root.PersistentFlags().StringP("file", "f", defaults.File, "property document or SQLite database (.db, .sqlite)")
	root.PersistentFlags().String("format", "", "document format: xml or yaml (default: from file extension)")
	root.PersistentFlags().String("comment", "", "comment written at the head of saved documents")
	root.PersistentFlags().String("encoding", "", "character encoding of saved XML documents (default: UTF-8)")
	root.PersistentFlags().String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")

	_ = a.v.BindPFlag("file", root.PersistentFlags().Lookup("file"))
	_ = a.v.BindPFlag("format", root.PersistentFlags().Lookup("format"))
	_ = a.v.BindPFlag("comment", root.PersistentFlags().Lookup("comment"))
	_ = a.v.BindPFlag("encoding", root.PersistentFlags().Lookup("encoding"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newDumpCommand(a),
		newKeysCommand(a),
		newGetCommand(a),
		newSetCommand(a),
		newConvertCommand(a),
	)
	return root
}

func (a *app) init(errOut io.Writer) error {
	a.v.SetEnvPrefix("PROPSTORE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".propstore")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || a.cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	a.cfg = Defaults()
	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	level, err := zerolog.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.cfg.LogLevel, err)
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true}).Level(level).With().Timestamp().Logger()
	return nil
}

func isSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// openStore loads the configured file into a fresh store. The returned
// function releases the backend.
func (a *app) openStore(ctx context.Context) (*propstore.Store, func(), error) {
	driver, closeFn, err := a.driver(ctx, a.cfg.File, a.cfg.Format)
	if err != nil {
		return nil, nil, err
	}
	store := propstore.New(
		propstore.WithDriver(driver),
		propstore.WithLogger(propstore.NewZerologLogger(a.log)),
		propstore.WithLogTag("[cli]"),
	)
	if err := store.Load(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func (a *app) driver(ctx context.Context, path, format string) (propstore.Driver, func(), error) {
	if isSQLite(path) {
		d, err := sqlitedriver.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = d.Close() }, nil
	}
	fd := propstore.NewFileDriver(path, propstore.DocumentOptions{
		Comment:  a.cfg.Comment,
		Encoding: a.cfg.Encoding,
	})
	if format != "" {
		f, err := propstore.ParseFormat(format)
		if err != nil {
			return nil, nil, err
		}
		fd.Format = f
	}
	return fd, func() {}, nil
}

// Execute runs the tool with the process arguments.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).Execute()
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.byted.org/khicago/propstore"
)

func newDumpCommand(a *app) *cobra.Command {
	var sep string
	cmd := &cobra.Command{
		Use:   "dump [namespace...]",
		Short: "Print the entries of every namespace, or of the given ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			namespaces := args
			if len(namespaces) == 0 {
				namespaces = store.Namespaces()
			}
			for _, ns := range namespaces {
				view, err := store.Claim(ns)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", ns)
				if body := view.Format(sep); body != "" {
					fmt.Fprintln(cmd.OutOrStdout(), body)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sep, "sep", "\n", "separator between key=value pairs")
	return cmd
}

func newKeysCommand(a *app) *cobra.Command {
	var kinds bool
	cmd := &cobra.Command{
		Use:   "keys <namespace>",
		Short: "List the keys of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			view, err := store.Claim(args[0])
			if err != nil {
				return err
			}
			for _, k := range view.Keys() {
				if !kinds {
					fmt.Fprintln(cmd.OutOrStdout(), k)
					continue
				}
				raw, _ := view.Lookup(k)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, propstore.KindOf(raw))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&kinds, "kinds", false, "also print the narrowest kind each value decodes as")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "get <namespace> <key>",
		Short: "Print one value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			view, err := store.Claim(args[0])
			if err != nil {
				return err
			}
			raw, ok := view.Lookup(args[1])
			if !ok {
				return fmt.Errorf("%s: no such key", propstore.QualifiedKey(args[0], args[1]))
			}
			if typeName != "" {
				kind, err := propstore.ParseKind(typeName)
				if err != nil {
					return err
				}
				if raw, err = propstore.Canonicalize(kind, raw); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "require the value to decode as this type")
	return cmd
}

func newSetCommand(a *app) *cobra.Command {
	var typeName string
	var allowed []string
	cmd := &cobra.Command{
		Use:   "set <namespace> <key> <value>",
		Short: "Store one value and save the file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := propstore.ParseKind(typeName)
			if err != nil {
				return err
			}
			value, err := propstore.Canonicalize(kind, args[2])
			if err != nil {
				return err
			}

			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			view, err := store.Claim(args[0])
			if err != nil {
				return err
			}
			if len(allowed) > 0 {
				view.AddToDictionary(allowed...)
			}
			if args[1] == "" {
				return fmt.Errorf("key must not be empty")
			}
			if err := view.SetString(args[1], value); err != nil {
				return err
			}
			a.log.Info().Str("namespace", args[0]).Str("key", args[1]).Stringer("type", kind).Msg("set")
			return store.Save(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "string", "value type: int, int64, float64, bool, string")
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "restrict writable keys of the namespace to this list")
	return cmd
}

func newConvertCommand(a *app) *cobra.Command {
	var to, outPath string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Copy the store into another file, format or SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			src, closeSrc, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeSrc()

			driver, closeDst, err := a.driver(cmd.Context(), outPath, to)
			if err != nil {
				return err
			}
			defer closeDst()

			dst := propstore.New(
				propstore.WithDriver(driver),
				propstore.WithLogger(propstore.NewZerologLogger(a.log)),
			)
			if err := dst.Restore(src.Snapshot()); err != nil {
				return err
			}
			if err := dst.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d namespaces to %s\n", len(dst.Namespaces()), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format: xml or yaml (default: from --out extension)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path")
	return cmd
}

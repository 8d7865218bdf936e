package main

import (
	"encoding/json"
	"fmt"

	"github.com/a-poor/cowdb/db"
	"github.com/spf13/cobra"
)

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				v, err := d.Get(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", v)
				return err
			})
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key and commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				if err := d.Set(args[0], []byte(args[1])); err != nil {
					return err
				}
				return d.Commit()
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"del", "rm"},
		Short:   "Remove a key and commit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				if err := d.Delete(args[0]); err != nil {
					return err
				}
				return d.Commit()
			})
		},
	}
}

func (a *app) lenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "len",
		Short: "Print the number of keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				n, err := d.Len()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
}

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every key and value in key order, tab separated",
		Long: "Print every key and value in key order, one tab-separated pair per line.\n" +
			"The output can be loaded back with the import command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return a.withDB(func(d *db.DB) error {
				return d.Scan(func(k string, v []byte) (bool, error) {
					_, err := fmt.Fprintf(out, "%s\t%s\n", k, v)
					return false, err
				})
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				st, err := d.Stats()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the ordering and size invariants of the committed tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(d *db.DB) error {
				if err := d.Verify(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}
}

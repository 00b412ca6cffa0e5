package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

func newWarehousesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "warehouses",
		Aliases: []string{"wh"},
		Short:   "List warehouses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				whs, err := a.svc.RefreshWarehouses(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tOWNER\tCREATED")
				for _, wh := range whs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wh.ID, wh.Name, wh.OwnerID,
						humanize.Time(time.UnixMilli(wh.CreatedAt)))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				wh, err := a.svc.CreateWarehouse(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created warehouse %s (%s).\n", wh.Name, wh.ID)
				return nil
			})
		},
	}, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.svc.DeleteWarehouse(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted warehouse %s.\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

// itemFlags are the flags shared by item add and item set.
type itemFlags struct {
	custom, upc, bin string
	qty, min, max    int64
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.custom, "custom", "", "custom label")
	cmd.Flags().StringVar(&f.upc, "upc", "", "UPC or EAN barcode")
	cmd.Flags().StringVar(&f.bin, "bin", "", "bin location")
	cmd.Flags().Int64Var(&f.qty, "qty", 0, "quantity on hand")
	cmd.Flags().Int64Var(&f.min, "min", 0, "minimum quantity")
	cmd.Flags().Int64Var(&f.max, "max", 0, "maximum quantity")
}

// input builds an ItemInput from the flags that were set.
func (f *itemFlags) input(cmd *cobra.Command, internal string) inventory.ItemInput {
	in := inventory.ItemInput{Internal: internal}
	changed := cmd.Flags().Changed
	if changed("custom") {
		in.Custom = &f.custom
	}
	if changed("upc") {
		in.UPC = &f.upc
	}
	if changed("bin") {
		in.Bin = &f.bin
	}
	if changed("qty") {
		in.Qty = &f.qty
	}
	if changed("min") {
		in.Min = &f.min
	}
	if changed("max") {
		in.Max = &f.max
	}
	return in
}

func newItemsCommand(opts *rootOptions) *cobra.Command {
	var (
		warehouse string
		filter    inventory.Filter
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List items of a warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				items, err := a.svc.Items(ctx, filter)
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.PersistentFlags().StringVarP(&warehouse, "warehouse", "w", "", "warehouse id (default: first warehouse)")
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "case-insensitive search")
	cmd.Flags().BoolVar(&filter.BelowMin, "below-min", false, "only items under their minimum")
	cmd.Flags().StringVar(&filter.SortBy, "sort", inventory.SortInternal, "sort by internal or a field name")
	cmd.Flags().BoolVar(&filter.Desc, "desc", false, "sort descending")

	var add, set itemFlags
	addCmd := &cobra.Command{
		Use:   "add <internal>",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				item, err := a.svc.CreateItem(ctx, add.input(cmd, args[0]))
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), []model.Item{*item})
			})
		},
	}
	add.register(addCmd)

	setCmd := &cobra.Command{
		Use:   "set <internal>",
		Short: "Change fields of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				item, err := a.svc.UpdateItem(ctx, args[0], set.input(cmd, args[0]))
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), []model.Item{*item})
			})
		},
	}
	set.register(setCmd)

	rmCmd := &cobra.Command{
		Use:   "rm <internal>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				if err := a.svc.DeleteItem(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
				return nil
			})
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <internal>",
		Short: "Restore a deleted item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				item, err := a.svc.UndeleteItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), []model.Item{*item})
			})
		},
	}

	cmd.AddCommand(addCmd, setCmd, rmCmd, restoreCmd)
	return cmd
}

func printItems(w io.Writer, items []model.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INTERNAL\tCUSTOM\tUPC\tQTY\tMIN\tMAX\tBIN")
	for _, it := range items {
		qty := humanize.Comma(it.Qty)
		if it.BelowMin() {
			qty += " !"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Internal, it.Custom, it.UPC, qty, optional(it.Min), optional(it.Max), it.Bin)
	}
	return tw.Flush()
}

func optional(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

func newAdjustCommand(opts *rootOptions) *cobra.Command {
	var warehouse string

	cmd := &cobra.Command{
		Use:   "adjust <internal> <delta>",
		Short: "Add to or remove from an item's quantity",
		Example: `  zaloga adjust bolt-m6 12
  zaloga adjust bolt-m6 -- -3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.selectWarehouse(ctx, warehouse); err != nil {
					return err
				}
				item, err := a.svc.AdjustQuantity(ctx, args[0], delta)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", item.Internal, humanize.Comma(item.Qty))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&warehouse, "warehouse", "w", "", "warehouse id (default: first warehouse)")
	return cmd
}

func newConflictsCommand(opts *rootOptions) *cobra.Command {
	var (
		warehouse string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List concurrent edits that need a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cs, err := a.svc.Conflicts(ctx, warehouse, all)
				if err != nil {
					return err
				}
				if len(cs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No conflicts.")
					return nil
				}
				return printConflicts(cmd.OutOrStdout(), cs)
			})
		},
	}
	cmd.Flags().StringVarP(&warehouse, "warehouse", "w", "", "only this warehouse (default: all)")
	cmd.Flags().BoolVar(&all, "all", false, "include resolved conflicts")
	return cmd
}

func printConflicts(w io.Writer, cs []model.Conflict) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tFIELD\tMINE\tTHEIRS\tWHEN\tSTATUS")
	for _, c := range cs {
		status := "open"
		if c.Resolved {
			status = "resolved by " + c.ResolvedBy
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Internal, c.Field,
			c.Mine, c.Theirs, humanize.Time(time.UnixMilli(c.BaseTS)), status)
	}
	return tw.Flush()
}

func newResolveCommand(opts *rootOptions) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "resolve <conflict-id>",
		Short: "Resolve a conflict by keeping one side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keepMine bool
			switch keep {
			case "mine":
				keepMine = true
			case "theirs":
			default:
				return fmt.Errorf("--keep must be mine or theirs, got %q", keep)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.svc.ResolveConflict(ctx, args[0], keepMine)
				if err != nil {
					return err
				}
				kept := c.Theirs
				if keepMine {
					kept = c.Mine
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved: %s %s = %s. Sync to share it.\n",
					c.Internal, c.Field, kept)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&keep, "keep", "", "side to keep: mine or theirs")
	cmd.MarkFlagRequired("keep")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/models"
	"hardware-inventory/pkg/importer"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all hardware, grouped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				return printGroups(cmd.OutOrStdout(), s.Groups(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the groups as JSON")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "List hardware matching a case-insensitive substring",
		Long: `search keeps the items whose name, brand, model, serial number or details
contain QUERY, ignoring case. Groups without a match are left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				return printGroups(cmd.OutOrStdout(), s.Search(args[0]), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the groups as JSON")
	return cmd
}

// itemFlags are the editable fields shared by add and edit.
type itemFlags struct {
	name, brand, model, serial, cost, details string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "item name, e.g. Laptop")
	cmd.Flags().StringVar(&f.brand, "brand", "", "brand, e.g. Dell")
	cmd.Flags().StringVar(&f.model, "model", "", "model, e.g. XPS 13")
	cmd.Flags().StringVar(&f.serial, "serial", "", "unique serial number")
	cmd.Flags().StringVar(&f.cost, "cost", "", "monthly cost; ignored when the group already has items")
	cmd.Flags().StringVar(&f.details, "details", "", "free-form details")
}

// apply copies the flags that were set onto it.
func (f *itemFlags) apply(cmd *cobra.Command, it *models.HardwareItem) error {
	set := cmd.Flags().Changed
	if set("name") {
		it.Name = f.name
	}
	if set("brand") {
		it.Brand = f.brand
	}
	if set("model") {
		it.Model = f.model
	}
	if set("serial") {
		it.SerialNumber = f.serial
	}
	if set("details") {
		it.Details = f.details
	}
	if set("cost") {
		cost, err := decimal.NewFromString(f.cost)
		if err != nil {
			return fmt.Errorf("invalid --cost %q: %w", f.cost, err)
		}
		it.MonthlyCost = cost
	}
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a hardware item",
		Example: `  inventory add --name Laptop --brand Dell --model "XPS 13" --serial SN-0001 --cost 49.90`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var it models.HardwareItem
			if err := f.apply(cmd, &it); err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				_, locked := s.CostLock(it.Name, it.Brand, it.Model)
				saved, err := s.Save(it)
				if err != nil {
					return err
				}
				return printSaved(cmd.OutOrStdout(), "Added", saved, locked)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "edit ID|SERIAL",
		Short: "Change fields of a hardware item",
		Long: `edit updates only the fields given as flags. Changing name, brand or model
moves the item to that group, taking the group's monthly cost if it has items.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				it, err := resolve(s, args[0])
				if err != nil {
					return err
				}
				if err := f.apply(cmd, &it); err != nil {
					return err
				}
				_, locked := s.CostLock(it.Name, it.Brand, it.Model)
				saved, err := s.Save(it)
				if err != nil {
					return err
				}
				return printSaved(cmd.OutOrStdout(), "Updated", saved, locked)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID|SERIAL...",
		Aliases: []string{"rm"},
		Short:   "Delete hardware items",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				for _, arg := range args {
					it, err := resolve(s, arg)
					if err != nil {
						return err
					}
					if err := s.Delete(it.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s (%s)\n", it.ID, groupTitle(it), it.SerialNumber)
				}
				return nil
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Write the inventory to an Excel workbook (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				if args[0] == "-" {
					return importer.ExportExcel(cmd.OutOrStdout(), s.Groups())
				}
				file, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := importer.ExportExcel(file, s.Groups()); err != nil {
					file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", s.Len(), args[0])
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		opts        importer.ImportOptions
		mappingPath string
	)
	cmd := &cobra.Command{
		Use:   "import FILE.xlsx",
		Short: "Add or update hardware from an Excel workbook",
		Long: `import reads one sheet of FILE.xlsx. The first row holds the column headers,
matched through the header mapping. Rows whose serial number already exists
update that item; the others are added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			opts.MappingPath = mappingPath
			if !cmd.Flags().Changed("mapping") {
				opts.MappingPath = a.cfg.MappingPath
			}
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				summary, err := importer.ImportExcel(cmd.Context(), s, file, opts)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "sheet to read (default: mapping sheet or the first one)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "YAML header mapping (default $MAPPING_PATH or built-in)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate rows without saving")
	cmd.Flags().IntVar(&opts.MaxErrors, "max-errors", 50, "stop after this many row errors")
	return cmd
}

// resolve finds an item by id, then by serial number.
func resolve(s *inventory.Store, ref string) (models.HardwareItem, error) {
	if it, ok := s.Get(ref); ok {
		return it, nil
	}
	if it, ok := s.FindBySerial(ref); ok {
		return it, nil
	}
	return models.HardwareItem{}, fmt.Errorf("%q: %w", ref, inventory.ErrNotFound)
}

func groupTitle(it models.HardwareItem) string {
	return fmt.Sprintf("%s · %s · %s", it.Name, it.Brand, it.Model)
}

func printSaved(w io.Writer, verb string, it models.HardwareItem, locked bool) error {
	note := ""
	if locked {
		note = " (set by group)"
	}
	_, err := fmt.Fprintf(w, "%s %s: %s (%s), %s/month%s\n",
		verb, it.ID, groupTitle(it), it.SerialNumber, it.MonthlyCost.StringFixed(2), note)
	return err
}

func printGroups(w io.Writer, groups models.Groups, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No hardware found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tMODEL\tSERIAL\tMONTHLY\tDETAILS")
	total := decimal.Zero
	for _, key := range groups.Keys() {
		for _, it := range groups[key] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Name, it.Brand, it.Model, it.SerialNumber, it.MonthlyCost.StringFixed(2), it.Details)
			total = total.Add(it.MonthlyCost)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d items in %d groups, %s/month\n", groups.ItemCount(), len(groups), total.StringFixed(2))
	return err
}

func printSummary(w io.Writer, s importer.ImportSummary) {
	fmt.Fprintf(w, "Sheet: %s (dry run: %v)\n", s.Sheet, s.DryRun)
	fmt.Fprintf(w, "Inserted: %d\nUpdated: %d\nSkipped: %d\nErrors: %d\n", s.Inserted, s.Updated, s.Skipped, s.Errors)
	for _, e := range s.Samples {
		fmt.Fprintf(w, "  Row %d: %s\n", e.Row, e.Message)
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/procuroid/procurement-engine/internal/model"
)

var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "Manage the supplier directory",
	Long:  "Commands for importing and listing the suppliers the engine can call for quotes.",
}

// -- suppliers import --

var suppliersImportCmd = &cobra.Command{
	Use:   "import <suppliers.yaml>",
	Short: "Bulk-import suppliers from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read suppliers file")
		}

		var suppliers []model.Supplier
		if err := yaml.Unmarshal(data, &suppliers); err != nil {
			return eris.Wrap(err, "parse suppliers file")
		}
		if len(suppliers) == 0 {
			return eris.New("suppliers file is empty")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.ImportSuppliers(ctx, suppliers)
		if err != nil {
			return eris.Wrap(err, "suppliers import")
		}

		fmt.Printf("Imported %d suppliers.\n", n)
		return nil
	},
}

// -- suppliers list --

var suppliersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppliers in the directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		suppliers, err := st.ListSuppliers(ctx)
		if err != nil {
			return eris.Wrap(err, "suppliers list")
		}
		if len(suppliers) == 0 {
			fmt.Fprintln(os.Stderr, "No suppliers found.")
			return nil
		}

		formatSuppliersList(os.Stdout, suppliers)
		return nil
	},
}

func init() {
	suppliersCmd.AddCommand(suppliersImportCmd)
	suppliersCmd.AddCommand(suppliersListCmd)
	rootCmd.AddCommand(suppliersCmd)
}

// formatSuppliersList writes a tabular supplier listing to w.
func formatSuppliersList(out io.Writer, suppliers []model.Supplier) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPHONE\tCAPABILITIES")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t------------")

	for _, s := range suppliers {
		capList := strings.Join(s.Capabilities, ",")
		if len(capList) > 40 {
			capList = capList[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(s.ID),
			s.Name,
			s.Phone,
			capList,
		)
	}
	_ = w.Flush()
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/procuroid/procurement-engine/internal/model"
)

var (
	dispatchProduct  string
	dispatchQuantity int
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [request.yaml]",
	Short: "Start a procurement workflow and call suppliers",
	Long:  "Creates a workflow run for the given request, scouts matching suppliers, and dispatches the quote-request call batch. The request comes from a YAML file or from --product/--quantity flags.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := loadRequest(args)
		if err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Coordinator.StartProcurement(ctx, req)
		if err != nil {
			return eris.Wrap(err, "dispatch")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// loadRequest builds the procurement request from a YAML file argument or
// from flags.
func loadRequest(args []string) (model.ProcurementRequest, error) {
	var req model.ProcurementRequest

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return req, eris.Wrap(err, "read request file")
		}
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, eris.Wrap(err, "parse request file")
		}
	}

	if dispatchProduct != "" {
		req.ProductDescription = dispatchProduct
	}
	if dispatchQuantity > 0 {
		req.Quantity = dispatchQuantity
	}

	if req.ProductDescription == "" {
		return req, eris.New("a request file or --product is required")
	}
	return req, nil
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchProduct, "product", "", "product description to quote")
	dispatchCmd.Flags().IntVar(&dispatchQuantity, "quantity", 0, "requested quantity")
	rootCmd.AddCommand(dispatchCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/internal/workflow"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect procurement workflow runs",
	Long:  "Commands for listing workflow runs, viewing run details, and comparing the quotes a run collected.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow runs",
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

		phase, _ := cmd.Flags().GetString("phase")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListWorkflows(ctx, store.WorkflowFilter{
			Phase: model.WorkflowPhase(phase),
			Limit: limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Show full details of a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetWorkflow(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		if run == nil {
			return eris.Errorf("workflow not found: %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs quotes --

var runsQuotesCmd = &cobra.Command{
	Use:   "quotes <workflow-id>",
	Short: "Show a run's quotation records ranked by comparison score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.ListQuotationsByWorkflow(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs quotes")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No quotation records yet.")
			return nil
		}

		formatRankedQuotes(os.Stdout, workflow.ScoreQuotations(records))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("phase", "", "filter by phase (scouting, awaiting_quotes, pending_approval, ordering, completed, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsQuotesCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of workflow runs to w.
func formatRunsList(out io.Writer, runs []model.WorkflowRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPRODUCT\tQTY\tPHASE\tCALLS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t---\t-----\t-----\t-------")

	for _, r := range runs {
		product := r.Request.ProductDescription
		if len(product) > 30 {
			product = product[:27] + "..."
		}

		placed := 0
		for _, o := range r.Outcomes {
			if o.Status == model.OutcomeCalled {
				placed++
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d/%d\t%s\n",
			truncateID(r.ID),
			product,
			r.Request.Quantity,
			r.Phase,
			placed,
			len(r.Outcomes),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRankedQuotes writes a ranked quote comparison table to w.
func formatRankedQuotes(out io.Writer, ranked []model.RankedQuotation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tID\tSUPPLIER\tRESPONSE\tPRICE\tDELIVERY\tSCORE")
	_, _ = fmt.Fprintln(w, "----\t--\t--------\t--------\t-----\t--------\t-----")

	for i, rq := range ranked {
		price := ""
		delivery := ""
		if q := rq.Record.Quotation; q != nil {
			if q.TotalPrice != nil {
				price = fmt.Sprintf("%.2f %s", *q.TotalPrice, q.Currency)
			} else if q.PricePerUnit != nil {
				price = fmt.Sprintf("%.2f %s/unit", *q.PricePerUnit, q.Currency)
			}
			if q.DeliveryDate != nil {
				delivery = q.DeliveryDate.Format("2006-01-02")
			} else if q.LeadTimeDays != nil {
				delivery = fmt.Sprintf("%dd lead", *q.LeadTimeDays)
			}
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			i+1,
			truncateID(rq.Record.ID),
			rq.Record.SupplierName,
			rq.Record.ResponseType,
			price,
			delivery,
			rq.Metrics.Overall,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

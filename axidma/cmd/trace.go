package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/axidma/analysis"
	"github.com/sarchlab/axidma/datarecording"
	"github.com/sarchlab/axidma/instrumentation/tracing"
	"github.com/spf13/cobra"
)

func newTraceCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "trace FILE",
		Short: "Print the tasks and FIFO levels recorded by run --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			kind, _ := f.GetString("kind")
			limit, _ := f.GetInt("limit")
			pure, _ := f.GetBool("pure-sqlite")

			driver := datarecording.DriverCGo
			if pure {
				driver = datarecording.DriverPure
			}

			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			r := datarecording.NewReaderWithDriver(args[0], driver)
			defer r.Close()

			return printTrace(cmd.Context(), cmd.OutOrStdout(), r, kind, limit)
		},
	}

	c.Flags().String("kind", "", "Only print tasks of this kind")
	c.Flags().Int("limit", 0, "Print at most this many tasks, 0 for all")
	c.Flags().Bool("pure-sqlite", false,
		"Read with the pure Go SQLite driver instead of the CGo one")

	return c
}

func printTrace(
	ctx context.Context,
	out io.Writer,
	r datarecording.DataReader,
	kind string,
	limit int,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.MapTable(tracing.TaskTable, tracing.TaskEntry{})
	r.MapTable(analysis.PerfTable, analysis.PerfAnalyzerEntry{})

	params := datarecording.QueryParams{
		OrderBy: "StartTime, ID",
		Limit:   limit,
	}
	if kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{kind}
	}

	tasks, total, err := r.Query(ctx, tracing.TaskTable, params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARENT\tKIND\tWHAT\tSTART\tEND\tCYCLES")

	for _, row := range tasks {
		t := row.(*tracing.TaskEntry)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			t.ID, t.ParentID, t.Kind, t.What,
			t.StartTime, t.EndTime, t.EndTime-t.StartTime)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d of %d tasks\n", len(tasks), total)

	levels, _, err := r.Query(ctx, analysis.PerfTable,
		datarecording.QueryParams{OrderBy: "Start"})
	if err != nil {
		return err
	}

	if len(levels) == 0 {
		return nil
	}

	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHERE\tSTART\tEND\tAVG LEVEL")

	for _, row := range levels {
		e := row.(*analysis.PerfAnalyzerEntry)
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f %s\n",
			e.Where, e.Start, e.End, e.Value, e.Unit)
	}

	return w.Flush()
}

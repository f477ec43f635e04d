package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/internal/pipeline"
	"github.com/ajitpratap0/nebulaframe/pkg/arrowbridge"
	"github.com/ajitpratap0/nebulaframe/pkg/codec"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/explode"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/join"
	jsonpool "github.com/ajitpratap0/nebulaframe/pkg/json"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
	"github.com/ajitpratap0/nebulaframe/pkg/metrics"
	"github.com/ajitpratap0/nebulaframe/pkg/observability"
)

func (a *app) runCmd() *cobra.Command {
	var planFile, metricsOut string
	var timeout time.Duration
	var trace bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a plan",
		Long: `Run a YAML plan: read the named inputs, apply the steps and write the output.
The run report is printed as JSON.

Example:
  nebulaframe run --plan plan.yaml --metrics-out run.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			opts := []pipeline.Option{pipeline.WithLogger(logger.Get().With(zap.String("component", "nebulaframe-cli")))}

			var reg *prometheus.Registry
			if a.cfg.Metrics.Enabled {
				reg = prometheus.NewRegistry()
				collector, err := metrics.NewCollector(a.cfg.Metrics.Namespace, reg)
				if err != nil {
					return err
				}
				opts = append(opts, pipeline.WithMetrics(collector))
			}

			tcfg := observability.FromConfig(a.cfg.Tracing)
			tcfg.Enabled = tcfg.Enabled || trace
			tcfg.ServiceVersion = version
			tcfg.Writer = cmd.ErrOrStderr()
			tracer, err := observability.New(tcfg)
			if err != nil {
				return err
			}
			defer func() { _ = tracer.Shutdown(context.Background()) }()
			opts = append(opts, pipeline.WithTracer(tracer))

			runner, err := pipeline.NewRunner(a.cfg, opts...)
			if err != nil {
				return err
			}
			report, runErr := runner.RunFile(ctx, planFile)

			if reg != nil && metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, reg); err != nil {
					return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics").WithDetail("path", metricsOut)
				}
			}
			if report != nil {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&planFile, "plan", "p", "", "Path to the plan YAML file (required)")
	_ = cmd.MarkFlagRequired("plan")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write run metrics to this file in the Prometheus text format")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Run timeout")
	cmd.Flags().BoolVar(&trace, "trace", false, "Export spans to stderr")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var in, out, mode string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a table between JSON and Arrow",
		Long: `Convert a table file. Formats are picked by extension (.json, .arrow) and
may carry a compression extension (.gz, .zst, .lz4, .snappy, .s2).

Example:
  nebulaframe convert --in orders.json --out orders.arrow.zst --mode strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := a.files
			if mode != "" {
				m, err := arrowbridge.ParseMode(mode)
				if err != nil {
					return err
				}
				files.Arrow.Mode = m
			}

			t, warnings, err := files.Read(in)
			if err != nil {
				return err
			}
			more, err := files.Write(out, t)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), append(warnings, more...))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows (%s -> %s)\n",
				t.NumRows(), pipeline.FormatOf(in), pipeline.FormatOf(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "Arrow conversion mode (lenient, strict); overrides the configuration")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema tree of a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, warnings, err := a.files.Read(in)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), warnings)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d rows, %d columns\n", t.NumRows(), t.NumColumns())
			fmt.Fprint(w, t.Schema().String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (required)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func (a *app) explodeCmd() *cobra.Command {
	var in, out string
	var cols []string
	var dropEmpty bool

	cmd := &cobra.Command{
		Use:   "explode",
		Short: "Spread list and frame columns over rows",
		Long: `Explode the given columns of a table. Nested columns are addressed with dots.

Example:
  nebulaframe explode --in orders.json --cols lines --drop-empty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, warnings, err := a.files.Read(in)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), warnings)

			if !cmd.Flags().Changed("drop-empty") {
				dropEmpty = a.cfg.Explode.DropEmpty
			}
			res, err := explode.Explode(t, frame.Cols(cols...), explode.Options{DropEmpty: dropEmpty})
			if err != nil {
				return err
			}
			return a.emit(cmd, out, res)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file; JSON rows are printed when empty")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "Columns to explode (required)")
	cmd.Flags().BoolVar(&dropEmpty, "drop-empty", false, "Drop rows whose collections are all empty")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("cols")
	return cmd
}

func (a *app) joinCmd() *cobra.Command {
	var left, right, out, typ string
	var on []string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join two tables on key columns",
		Long: `Join two tables. A key may be written left=right when the column names differ.

Example:
  nebulaframe join --left orders.json --right customers.json --on customer_id=id --type left`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, lw, err := a.files.Read(left)
			if err != nil {
				return err
			}
			r, rw, err := a.files.Read(right)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), append(lw, rw...))

			if typ == "" {
				typ = a.cfg.Join.Type
			}
			jt, err := join.ParseType(typ)
			if err != nil {
				return err
			}
			keys := make([]join.KeyPair, len(on))
			for i, k := range on {
				lk, rk, ok := strings.Cut(k, "=")
				if !ok {
					rk = lk
				}
				keys[i] = join.Pair(lk, rk)
			}

			res, err := join.Join(l, r, keys, jt)
			if err != nil {
				return err
			}
			return a.emit(cmd, out, res)
		},
	}

	cmd.Flags().StringVarP(&left, "left", "l", "", "Left input file (required)")
	cmd.Flags().StringVarP(&right, "right", "r", "", "Right input file (required)")
	cmd.Flags().StringSliceVar(&on, "on", nil, "Key columns, as name or left=right (required)")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Join type (inner, left, right, full, exclude)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file; JSON rows are printed when empty")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	_ = cmd.MarkFlagRequired("on")
	return cmd
}

// emit writes t to path, or prints it as JSON rows when path is empty.
func (a *app) emit(cmd *cobra.Command, path string, t *frame.Table) error {
	if path == "" {
		w := cmd.OutOrStdout()
		if err := codec.EncodeTo(w, t, a.files.Codec); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}
	warnings, err := a.files.Write(path, t)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), warnings)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := jsonpool.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	return nil
}

func printWarnings(w io.Writer, warnings []errors.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

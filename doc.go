// Package nebulaframe provides hierarchical data frames: tables whose
// columns may be plain values, nested groups of columns, or nested tables
// (one sub-table per row).
//
// # Architecture
//
// The frame model lives in pkg/frame. Every operation is a pure function
// from tables to a new table; inputs are never modified.
//
//   - pkg/explode spreads list and frame cells over rows and collects them back
//   - pkg/join joins two tables on one or more keys, nested groups included
//   - pkg/reshape splits one column into several and merges several into one
//   - pkg/convert re-types columns through a registry of converters
//   - pkg/codec reads and writes nested JSON
//   - pkg/arrowbridge maps tables to Apache Arrow records and IPC streams
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/nebulaframe/pkg/codec"
//	    "github.com/ajitpratap0/nebulaframe/pkg/explode"
//	    "github.com/ajitpratap0/nebulaframe/pkg/frame"
//	)
//
//	t, err := codec.ReadFile("orders.json", codec.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	lines, err := explode.Explode(t, frame.Cols("lines"), explode.Options{DropEmpty: true})
//
// # Plans
//
// internal/pipeline runs YAML plans (inputs, steps, output) and reports
// row counts and warnings per step. Runs are timed into Prometheus
// (pkg/metrics), traced with OpenTelemetry (pkg/observability) and logged
// with zap (pkg/logger). The nebulaframe command wraps plans and the
// single operations:
//
//	nebulaframe run --plan plan.yaml
//	nebulaframe convert --in orders.json --out orders.arrow.zst
//	nebulaframe explode --in orders.json --cols lines
//	nebulaframe join --left orders.json --right customers.json --on customer_id=id
//
// # Configuration
//
// pkg/config loads YAML configuration with NEBULAFRAME_* environment
// overrides, e.g. NEBULAFRAME_LOG_LEVEL=debug or NEBULAFRAME_ARROW_MODE=strict.
package nebulaframe

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/snapshot"
)

func executeSnapshot(cmd *cobra.Command, cfg *config.Config, asJSON bool) error {
	builder := snapshot.New(cfg, snapshot.Factories{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	snap := builder.Build(cmd.Context())
	return printSnapshot(cmd.OutOrStdout(), snap, asJSON)
}

func printSnapshot(out io.Writer, snap *snapshot.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
	} else {
		printTable(out, snap)
	}

	for _, svc := range snap.Services {
		if !svc.Reachable {
			return fmt.Errorf("one or more services are unreachable")
		}
	}
	return nil
}

func printTable(out io.Writer, snap *snapshot.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "SERVICE\tREACHABLE\tCHECKED")
	for _, svc := range snap.Services {
		state := "no"
		if svc.Reachable {
			state = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", svc.Name, state, svc.CheckedAt.Local().Format("15:04:05"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TREE\tFILES")
	for _, sz := range snap.Sizes {
		fmt.Fprintf(w, "%s\t%d\n", sz.Label, sz.Count)
	}
	fmt.Fprintln(w)

	connected := "no"
	if snap.Database.Connected {
		connected = "yes"
	}
	fmt.Fprintf(w, "DATABASE\t%s (%d tables)\n", connected, snap.Database.TableCount)
	fmt.Fprintf(w, "PROGRESS\t%d%%\n", snap.DerivedProgress)
	w.Flush()
}

// Command depscheck enforces the layering table of SPEC_FULL.md §2:
// C1 State Store -> C2 Event Bus -> {C3 Influence Maps, C5 Bomb Analyzer}
// -> C4 Pathfinder -> C6 Goal Planner -> C7 Engine Tick Loop ->
// {C8 Bot Kernel, C9 Scheduler}, with internal/grid as a shared foundation
// every ranked component may import. A ranked package importing another
// ranked package with a strictly higher rank is a layering violation.
//
// Grounded on Mikko-Finell-mine-and-die's tools/depscheck/main.go
// (`go list -json` + decode-loop + forbidden-import scan), generalized
// from that tool's single forbidden-prefix check to a full rank table.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rank gives each core component's import path its position in the
// layering table. Packages absent from this map (internal/grid,
// internal/config, internal/replaystore, logging/*, contrib/*, cmd/*,
// tools/*) are unranked: they may import any ranked package freely, since
// they sit outside the ordered core (ambient stack, optional extensions,
// or orchestration).
var rank = map[string]int{
	"bombkernel/internal/state":     1, // C1
	"bombkernel/internal/eventbus":  2, // C2
	"bombkernel/internal/influence": 3, // C3
	"bombkernel/internal/bombs":     3, // C5 (parallel to C3)
	"bombkernel/internal/pathfind":  4, // C4
	"bombkernel/internal/planner":   5, // C6
	"bombkernel/internal/engine":    6, // C7
	"bombkernel/internal/bot":       7, // C8 (parallel to C9)
	"bombkernel/internal/scheduler": 7, // C9
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}

		fromRank, ranked := rank[pkg.ImportPath]
		if !ranked {
			continue
		}
		for _, imp := range pkg.Imports {
			if !strings.HasPrefix(imp, "bombkernel/") {
				continue
			}
			toRank, ok := rank[imp]
			if !ok {
				continue
			}
			if toRank > fromRank {
				violations = append(violations, fmt.Sprintf("%s (rank %d) -> %s (rank %d)", pkg.ImportPath, fromRank, imp, toRank))
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found layering violations:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

//go:build ignore

// Demo driver that exercises the full search pipeline against a mock
// oracle, no toolchain required.
// Run with: go run scripts/demo_search.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
	"github.com/AleutianAI/PassProspector/services/prospector/search"
	"github.com/AleutianAI/PassProspector/services/prospector/transcript"
)

// demoOracle accepts any configuration that avoids a few "poison"
// passes, simulating a workload that tolerates most of the pipeline.
type demoOracle struct {
	poison map[pipeline.Pass]bool
	delay  time.Duration
}

func (o *demoOracle) Evaluate(ctx context.Context, cfg pipeline.Config) oracle.Verdict {
	time.Sleep(o.delay)
	for _, p := range cfg.Passes(pipeline.StagePreLink) {
		if o.poison[p] {
			return oracle.Verdict{Status: oracle.StatusFailed, ExitCode: 1}
		}
	}
	return oracle.Verdict{Status: oracle.StatusOK}
}

func main() {
	candidates := []pipeline.Pass{
		"adce", "sroa", "licm", "gvn", "instcombine", "mem2reg",
		"loop-unroll", "inline", "jump-threading", "sccp",
		"dse", "simplifycfg", "tailcallelim", "reassociate",
	}
	judge := &demoOracle{
		poison: map[pipeline.Pass]bool{"loop-unroll": true, "inline": true},
		delay:  20 * time.Millisecond,
	}

	recorder := transcript.NewRecorder(transcript.Discard{}, os.Stdout, nil)
	searcher := search.NewSearcher(judge,
		search.WithSeed(1),
		search.WithObserver(recorder),
	)

	fmt.Printf("Found %d passes\n", len(candidates))
	good := searcher.Run(context.Background(), candidates)

	if good.Len() != len(candidates)-2 {
		log.Fatalf("expected %d accepted passes, got %d", len(candidates)-2, good.Len())
	}
	fmt.Printf("\nAccepted %d of %d passes\n", good.Len(), len(candidates))
}

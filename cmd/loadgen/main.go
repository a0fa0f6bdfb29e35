// Command loadgen drives a scripted fake model run through the Run
// Registry and Block Streamer without a network hop, printing each emitted
// block to stdout. It exists to exercise the fabric's core pipeline in
// isolation, the way a teacher's smoke-test binary would.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/streamfabric/gateway/internal/agentmodel"
	"github.com/streamfabric/gateway/internal/blockstream"
	"github.com/streamfabric/gateway/internal/profile"
	"github.com/streamfabric/gateway/internal/registry"
)

func main() {
	channel := flag.String("channel", "telegram", "channel profile name to render through")
	text := flag.String("text", "Hello there! This is a scripted demo run showing how the Block Streamer chunks text for delivery.", "text to stream, word by word")
	interval := flag.Duration("interval", 30*time.Millisecond, "delay between simulated token deltas")
	flag.Parse()

	profiles := profile.NewRegistry()
	p, ok := profiles.Get(*channel)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown channel profile %q\n", *channel)
		os.Exit(1)
	}

	reg := registry.New(registry.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := agentmodel.NewFakeRun(ctx, "loadgen-run", agentmodel.FakeScript{
		Deltas:   splitWords(*text),
		Interval: *interval,
	})
	reg.Register(run.ID(), run)

	streamer := blockstream.New(p, blockstream.Options{ProtectCodeFences: true}, blockstream.Hooks{
		OnBlock: func(b blockstream.Block) {
			fmt.Printf("[block %d%s] %s\n", b.Index, lastMarker(b.IsLast), b.Content)
		},
		OnUpdate: func(u blockstream.StreamingUpdate) {
			fmt.Printf("\r[update %d] %s", u.Index, u.FullContent)
		},
		OnComplete: func(s blockstream.CompletedRunSummary) {
			fmt.Printf("\ndone: %d blocks, %d chars, %dms\n", s.TotalBlocks, s.TotalChars, s.DurationMs)
		},
	})

	sub, err := reg.SubscribeWithIDs(run.ID(), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	for be := range sub.Events {
		switch be.Event.Kind {
		case agentmodel.EventDelta:
			_ = streamer.Push(be.Event.Delta)
		case agentmodel.EventDone:
			streamer.Complete()
			return
		case agentmodel.EventError:
			fmt.Fprintf(os.Stderr, "run error: %s\n", be.Event.Err)
			streamer.Complete()
			return
		}
	}
}

func lastMarker(isLast bool) string {
	if isLast {
		return " final"
	}
	return ""
}

func splitWords(s string) []string {
	return strings.SplitAfter(s, " ")
}

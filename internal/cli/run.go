package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/playback"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// runFlags holds the flags shared by run and play.
type runFlags struct {
	targets   []string
	weight    float64
	implode   bool
	speed     float64
	mode      string
	frameRate float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.targets, "target", "t", nil, "explode only these parts and whatever blocks them (repeatable)")
	cmd.Flags().Float64VarP(&f.weight, "weight", "w", 1, "fraction of each part's travel to use, in [0, 1]")
	cmd.Flags().BoolVar(&f.implode, "implode", false, "collapse the parts back to rest after exploding")
	cmd.Flags().Float64Var(&f.speed, "speed", 0, "offset units per second (default from config, else 2)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "scheduling mode: concurrent or serial")
	cmd.Flags().Float64Var(&f.frameRate, "frame-rate", 0, "ticks per second (default 60)")
}

// requests returns the explosion and, with --implode, the matching implosion.
func (f *runFlags) requests() []scheduler.Request {
	reqs := []scheduler.Request{{Scope: f.targets, Sign: scheduler.Forward, WeightFraction: f.weight}}
	if f.implode {
		reqs = append(reqs, scheduler.Request{Scope: f.targets, Sign: scheduler.Backward, WeightFraction: 1})
	}
	return reqs
}

// apply overrides config values with explicitly set flags.
func (f *runFlags) apply(c *CLI) (scheduler.Config, playback.Options, error) {
	sc := c.Config.schedulerConfig(c.Logger)
	po := c.Config.playbackOptions(c.Logger)
	if err := errors.ValidateWeightFraction(f.weight); err != nil {
		return sc, po, err
	}
	if f.speed != 0 {
		sc.Speed = f.speed
	}
	if f.mode != "" {
		mode, err := scheduler.ParseMode(f.mode)
		if err != nil {
			return sc, po, err
		}
		sc.Mode = mode
	}
	if f.frameRate != 0 {
		po.FrameRate = f.frameRate
	}
	return sc, po, nil
}

// runCommand creates the run command, which simulates requests as fast as
// possible and reports where every part ends up.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags     runFlags
		tracePath string
		noCache   bool
		refresh   bool
	)

	cmd := &cobra.Command{
		Use:   "run [assembly-file]",
		Short: "Simulate an explosion and report final offsets",
		Long: `Simulate an explosion of the assembly without real-time playback.

The run is ticked at the configured frame rate until every part has settled,
then the final offset of each displaced part is printed. Traces are cached, so
repeating a run with the same assembly and options is instant.`,
		Example: `  explode run gearbox.toml
  explode run gearbox.toml -t gear-a --weight 0.5
  explode run gearbox.toml --implode --trace trace.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.loadAssembly(args[0])
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				printWarning("%s", w)
			}

			sc, po, err := flags.apply(c)
			if err != nil {
				return err
			}
			po.Refresh = refresh

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			spin := newSpinnerWithContext(ctx, "Simulating...")
			spin.Start()
			prog := newProgress(c.Logger)
			trace, cached, err := runner.SimulateWithCacheInfo(ctx, res.Tree, sc, flags.requests(), po)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Simulated %d ticks", trace.Ticks))

			printSuccess("Ran %s", filepath.Base(args[0]))
			printStats(res.Tree.Len(), trace.Ticks, cached)
			for _, msg := range trace.Errors {
				printWarning("%s", msg)
			}
			displaced := trace.Displaced()
			if len(displaced) == 0 {
				printInfo("Every part is at rest")
			}
			for _, name := range displaced {
				printKeyValue(name, fmt.Sprintf("%g", trace.Final[name]))
			}

			if tracePath != "" {
				if err := writeTrace(trace, tracePath); err != nil {
					return err
				}
				printFile(tracePath)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&tracePath, "trace", "", "write the full trace as JSON to this file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the trace cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached traces but store the new one")

	return cmd
}

func writeTrace(t *playback.Trace, path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

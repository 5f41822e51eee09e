// replay: run a recorded JSON-lines joint log through a session offline
// and print the per-tick phase and rep count.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	applog "github.com/hiral-chawra/Protofito/internal/log"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/session"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

var version = "dev"

type options struct {
	movement string
	down     float64
	up       float64
	asJSON   bool
	quiet    bool
	logLevel string
}

func main() {
	if err := fang.Execute(context.Background(), newCommand()); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "replay <file.jsonl | ->",
		Short: "Count reps in a recorded joint log",
		Long: `replay runs a JSON-lines joint log through a session offline and
prints the phase and rep count of every tick. Pass - to read stdin.`,
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.resolveMovement(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), m, args[0], opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&opts.movement, "movement", exercise.PushUp, "Movement to track: pushup, squat")
	f.Float64Var(&opts.down, "down", 0, "Override the down threshold in degrees")
	f.Float64Var(&opts.up, "up", 0, "Override the up threshold in degrees")
	f.BoolVar(&opts.asJSON, "json", false, "Print results as JSON lines")
	f.BoolVar(&opts.quiet, "quiet", false, "Only print the summary")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	return cmd
}

// resolveMovement looks up the movement and applies the threshold
// overrides that were given on the command line, zero included.
func (o options) resolveMovement(flags *pflag.FlagSet) (exercise.Movement, error) {
	m, err := exercise.LookupMovement(o.movement)
	if err != nil {
		return exercise.Movement{}, err
	}
	if !flags.Changed("down") && !flags.Changed("up") {
		return m, nil
	}

	th := m.Thresholds
	if flags.Changed("down") {
		th.DownMaxAngle = o.down
	}
	if flags.Changed("up") {
		th.UpMinAngle = o.up
	}
	if err := th.Validate(); err != nil {
		return exercise.Movement{}, err
	}
	return m.WithThresholds(th), nil
}

func run(ctx context.Context, m exercise.Movement, path string, opts options) error {
	applog.Init(opts.logLevel)
	logger := applog.L()

	sess, err := session.New(m, session.WithLogger(logger))
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	src := source.NewReplay(in, 0, false)

	enc := json.NewEncoder(os.Stdout)
	printer := session.SinkFunc(func(res session.Result) error {
		switch {
		case opts.quiet:
			return nil
		case opts.asJSON:
			return enc.Encode(res)
		}
		fmt.Println(formatResult(res))
		return nil
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := session.NewRunner(sess, src, logger, printer)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("replay: %w", err)
	}

	snap := sess.Snapshot()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "🏁 %s: %d reps over %d ticks (%d skipped, %d without signal)\n",
		m.Name, snap.State.RepCount, snap.Stats.Ticks, snap.Stats.Skipped, snap.Stats.NoSignal)
	if n := runner.SourceErrors(); n > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %d unreadable lines\n", n)
	}
	return nil
}

func formatResult(res session.Result) string {
	angle := "   --  "
	if a, ok := res.Angle(); ok {
		angle = fmt.Sprintf("%6.1f°", a)
	}
	marker := ""
	if res.RepCounted {
		marker = "  ✅"
	}
	return fmt.Sprintf("%5d  %s  %-15s reps=%-3d %s%s",
		res.Tick, angle, res.Phase, res.RepCount, res.Feedback, marker)
}

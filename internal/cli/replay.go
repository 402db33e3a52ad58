package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/optimize"
)

var (
	replayConfig string
	replayPreset string
	replayWatch  bool
	replayTrace  bool
	replayDebug  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay a JSON-lines script of subscriptions and emissions",
	Long: `Replay reads one JSON object per line (from a file or stdin) and applies it
to a fresh bus. Supported directives:

  {"on": "user.*", "reply": 1, "priority": 5, "group": "g", "async": true,
   "once": true, "timeout": "20ms", "delay": "50ms", "fail": "boom"}
  {"emit": "user.created", "payload": {"id": 7}}
  {"emitGroup": "g", "payload": null}
  {"off": "user.*", "id": ""}
  {"advance": "31m"}        advance the replay clock
  {"sweep": true}           run one cleanup tick

Lines that are empty or start with '#' are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		p, err := loadProfile(replayConfig, replayPreset)
		if err != nil {
			return err
		}
		if replayTrace {
			p.TraceEvents = true
		}

		r, err := newReplayer(p, cmd.OutOrStdout(), replayWatch)
		if err != nil {
			return err
		}
		defer r.bus.Destroy()

		if err := r.run(cmd.Context(), in); err != nil {
			return err
		}
		if replayDebug || replayTrace {
			return r.dumpDebug()
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayConfig, "config", "", "YAML profile file")
	replayCmd.Flags().StringVar(&replayPreset, "preset", "default", "preset used when --config is not given")
	replayCmd.Flags().BoolVar(&replayWatch, "watch", false, "print every listener invocation as it happens")
	replayCmd.Flags().BoolVar(&replayTrace, "trace", false, "record emission history and print it at the end")
	replayCmd.Flags().BoolVar(&replayDebug, "debug", false, "print the bus debug snapshot at the end")
	rootCmd.AddCommand(replayCmd)
}

func loadProfile(path, preset string) (*optimize.Profile, error) {
	if path != "" {
		return optimize.Load(path)
	}
	if _, ok := optimize.Presets[preset]; !ok {
		return nil, fmt.Errorf("unknown preset %q (known: %s)", preset, strings.Join(optimize.PresetNames(), ", "))
	}
	return optimize.Preset(preset), nil
}

// replayer 逐行执行回放脚本
type replayer struct {
	bus   core.Bus
	clock *core.ManualClock
	mu    sync.Mutex // 异步 listener 与 Reporter 并发写 out
	out   io.Writer
	watch bool

	emitted  *color.Color
	result   *color.Color
	failure  *color.Color
	muted    *color.Color
	failures int
}

func newReplayer(p *optimize.Profile, out io.Writer, watch bool) (*replayer, error) {
	r := &replayer{
		clock:   core.NewManualClock(time.Now()),
		out:     out,
		watch:   watch,
		emitted: color.New(color.FgCyan, color.Bold),
		result:  color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		muted:   color.New(color.Faint),
	}
	p = p.Clone()
	p.Clock = r.clock
	p.Reporter = r.report

	bus, err := optimize.Build(optimize.NewAdvisor().Advise(p))
	if err != nil {
		return nil, err
	}
	r.bus = bus
	return r, nil
}

func (r *replayer) printf(c *color.Color, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Fprintf(r.out, format, args...)
}

func (r *replayer) report(err *core.Error) {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
	r.printf(r.failure, "  ✗ %s\n", err.Error())
}

func (r *replayer) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.apply(ctx, line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

// apply 执行一条指令
func (r *replayer) apply(ctx context.Context, line string) error {
	if !gjson.Valid(line) {
		return errors.New("invalid JSON")
	}
	doc := gjson.Parse(line)

	switch {
	case doc.Get("on").Exists():
		return r.subscribe(doc)

	case doc.Get("emit").Exists():
		name := doc.Get("emit").String()
		r.printf(r.emitted, "emit %s\n", name)
		r.printResults(r.bus.Emit(ctx, name, doc.Get("payload").Value()))

	case doc.Get("emitGroup").Exists():
		group := doc.Get("emitGroup").String()
		r.printf(r.emitted, "emitGroup %s\n", group)
		r.printResults(r.bus.EmitGroup(ctx, group, doc.Get("payload").Value()))

	case doc.Get("off").Exists():
		ok := r.bus.Off(doc.Get("off").String(), doc.Get("id").String())
		r.printf(r.muted, "off %s -> %v\n", doc.Get("off").String(), ok)

	case doc.Get("advance").Exists():
		d, err := time.ParseDuration(doc.Get("advance").String())
		if err != nil {
			return err
		}
		r.clock.Advance(d)
		r.printf(r.muted, "clock +%s\n", d)

	case doc.Get("sweep").Bool():
		r.printf(r.muted, "sweep -> %d evicted\n", r.bus.Sweep())

	default:
		return fmt.Errorf("unknown directive: %s", line)
	}
	return nil
}

func (r *replayer) subscribe(doc gjson.Result) error {
	event := doc.Get("on").String()
	var opts []core.Option
	if v := doc.Get("priority"); v.Exists() {
		opts = append(opts, core.WithPriority(int(v.Int())))
	}
	if v := doc.Get("group"); v.Exists() {
		opts = append(opts, core.InGroup(v.String()))
	}
	if doc.Get("async").Bool() {
		opts = append(opts, core.AsAsync())
	}
	if doc.Get("once").Bool() {
		opts = append(opts, core.AsOnce())
	}
	if doc.Get("force").Bool() {
		opts = append(opts, core.Forced())
	}
	if v := doc.Get("retries"); v.Exists() {
		opts = append(opts, core.WithMaxRetries(int(v.Int())))
	}
	if v := doc.Get("timeout"); v.Exists() {
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return err
		}
		opts = append(opts, core.WithTimeout(d))
	}
	var delay time.Duration
	if v := doc.Get("delay"); v.Exists() {
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return err
		}
		delay = d
	}

	reply := doc.Get("reply")
	fail := doc.Get("fail").String()
	handler := func(ctx context.Context, e *core.Event) (any, error) {
		if r.watch {
			r.printf(r.muted, "  · %s @ %s\n", event, e.Level())
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if fail != "" {
			return nil, errors.New(fail)
		}
		if reply.Exists() {
			return reply.Value(), nil
		}
		return e.Payload, nil
	}

	sub, err := r.bus.On(event, handler, opts...)
	if err != nil {
		return nil // 已通过 Reporter 输出
	}
	r.printf(r.muted, "on %s -> %s\n", event, sub.ID())
	return nil
}

func (r *replayer) printResults(results []any) {
	b, err := json.Marshal(results)
	if err != nil {
		r.printf(r.failure, "  results: %v\n", err)
		return
	}
	r.printf(r.result, "  → %s\n", b)
}

func (r *replayer) dumpDebug() error {
	b, err := json.Marshal(r.bus.DebugInfo())
	if err != nil {
		return err
	}
	b = pretty.Pretty(b)
	if !color.NoColor {
		b = pretty.Color(b, nil)
	}
	_, err = r.out.Write(b)
	return err
}

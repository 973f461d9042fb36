package builtin

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
)

const (
	defaultHistogramBins  = 10
	defaultHistogramWidth = 40
)

// TextDisplayConfig configures a TextDisplay.
type TextDisplayConfig struct {
	Bins  int `json:"bins"`
	Width int `json:"width"`
}

// TextDisplay prints the robot pose as a joint table and the results as a histogram of the
// reached scores.
type TextDisplay struct {
	mu    sync.Mutex
	out   io.Writer
	bins  int
	width int
}

// NewTextDisplay returns a display printing to out.
func NewTextDisplay(out io.Writer, cfg TextDisplayConfig) *TextDisplay {
	if cfg.Bins <= 0 {
		cfg.Bins = defaultHistogramBins
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultHistogramWidth
	}
	return &TextDisplay{out: out, bins: cfg.Bins, width: cfg.Width}
}

func newTextDisplay(env registry.Env, attrs registry.Attributes) (plugins.Display, error) {
	var cfg TextDisplayConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewTextDisplay(os.Stdout, cfg), nil
}

// ShowEnvironment does nothing.
func (d *TextDisplay) ShowEnvironment() {}

// UpdateRobotPose prints the joint positions sorted by joint name.
func (d *TextDisplay) UpdateRobotPose(jointPositions map[string]float64) {
	names := lo.Keys(jointPositions)
	sort.Strings(names)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Position"})
	for _, name := range names {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.4f", jointPositions[name])})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, t.Render())
}

// ShowReachNeighborhood prints how much of the neighborhood is reachable.
func (d *TextDisplay) ShowReachNeighborhood(neighborhood []reachdb.Record) {
	reachable := lo.CountBy(neighborhood, func(rec reachdb.Record) bool { return rec.Reachable })

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "neighborhood: %d/%d reachable\n", reachable, len(neighborhood))
}

// ShowResults prints a histogram of the scores of the reached poses.
func (d *TextDisplay) ShowResults(db *reachdb.Database) {
	scores := lo.FilterMap(db.Records(), func(rec reachdb.Record, _ int) (float64, bool) {
		return rec.Score, rec.Reachable
	})

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "reached scores (%d of %d poses)\n", len(scores), db.Len())
	if len(scores) == 0 {
		return
	}
	if lo.Min(scores) == lo.Max(scores) {
		// A single value has no spread to bin.
		fmt.Fprintf(d.out, "all %d scores are %.4f\n", len(scores), scores[0])
		return
	}
	if err := histogram.Fprint(d.out, histogram.Hist(d.bins, scores), histogram.Linear(d.width)); err != nil {
		fmt.Fprintf(d.out, "failed to print histogram: %v\n", err)
	}
}

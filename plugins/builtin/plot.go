package builtin

import (
	"image/color"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
)

const defaultPlotSizeInches = 6

var (
	reachedColor      = color.RGBA{R: 0x1b, G: 0x9e, B: 0x77, A: 0xff}
	unreachedColor    = color.RGBA{R: 0xd9, G: 0x5f, B: 0x02, A: 0xff}
	neighborhoodColor = color.RGBA{R: 0x75, G: 0x70, B: 0xb3, A: 0xff}
)

// PlotDisplayConfig configures a PlotDisplay.
type PlotDisplayConfig struct {
	// Path is the image file the results are drawn to. The extension selects the format.
	Path         string  `json:"path"`
	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
}

// PlotDisplay draws the sampled positions projected onto the XY plane of the study frame, colored
// by reachability, and the last shown neighborhood on top.
type PlotDisplay struct {
	cfg    PlotDisplayConfig
	logger logging.Logger

	mu           sync.Mutex
	neighborhood []reachdb.Record
}

// NewPlotDisplay returns a display drawing to cfg.Path.
func NewPlotDisplay(cfg PlotDisplayConfig, logger logging.Logger) (*PlotDisplay, error) {
	if cfg.Path == "" {
		return nil, errors.New("plot display needs a path")
	}
	if cfg.WidthInches < 0 || cfg.HeightInches < 0 {
		return nil, errors.New("plot size cannot be negative")
	}
	if cfg.WidthInches == 0 {
		cfg.WidthInches = defaultPlotSizeInches
	}
	if cfg.HeightInches == 0 {
		cfg.HeightInches = defaultPlotSizeInches
	}
	return &PlotDisplay{cfg: cfg, logger: logger}, nil
}

func newPlotDisplay(env registry.Env, attrs registry.Attributes) (plugins.Display, error) {
	var cfg PlotDisplayConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewPlotDisplay(cfg, env.Logger)
}

// ShowEnvironment does nothing; the plot has no environment to draw.
func (d *PlotDisplay) ShowEnvironment() {}

// UpdateRobotPose does nothing; the plot has no robot model.
func (d *PlotDisplay) UpdateRobotPose(map[string]float64) {}

// ShowReachNeighborhood remembers the neighborhood for the next ShowResults.
func (d *PlotDisplay) ShowReachNeighborhood(neighborhood []reachdb.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.neighborhood = append([]reachdb.Record{}, neighborhood...)
}

// ShowResults draws the database and writes the image. Failures are logged.
func (d *PlotDisplay) ShowResults(db *reachdb.Database) {
	d.mu.Lock()
	neighborhood := d.neighborhood
	d.mu.Unlock()

	if err := d.draw(db, neighborhood); err != nil {
		d.logger.Errorw("failed to draw reach plot", "path", d.cfg.Path, "error", err)
		return
	}
	d.logger.Infow("wrote reach plot", "path", d.cfg.Path)
}

func (d *PlotDisplay) draw(db *reachdb.Database, neighborhood []reachdb.Record) error {
	var reached, unreached plotter.XYs
	for _, rec := range db.Records() {
		pt := rec.Pose.Point()
		xy := plotter.XY{X: pt.X, Y: pt.Y}
		if rec.Reachable {
			reached = append(reached, xy)
		} else {
			unreached = append(unreached, xy)
		}
	}
	if len(reached)+len(unreached) == 0 {
		return errors.New("database is empty")
	}
	near := make(plotter.XYs, len(neighborhood))
	for i, rec := range neighborhood {
		pt := rec.Pose.Point()
		near[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}

	p := plot.New()
	p.Title.Text = "Reach study " + db.Name()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		label  string
		xys    plotter.XYs
		color  color.Color
		filled bool
	}{
		{"reached", reached, reachedColor, true},
		{"unreached", unreached, unreachedColor, false},
		{"neighborhood", near, neighborhoodColor, false},
	} {
		if len(series.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(series.xys)
		if err != nil {
			return errors.Wrapf(err, "%s series", series.label)
		}
		s.GlyphStyle.Color = series.color
		if series.filled {
			s.GlyphStyle.Shape = draw.CircleGlyph{}
		} else {
			s.GlyphStyle.Shape = draw.RingGlyph{}
		}
		p.Add(s)
		p.Legend.Add(series.label, s)
	}

	return p.Save(vg.Length(d.cfg.WidthInches)*vg.Inch, vg.Length(d.cfg.HeightInches)*vg.Inch, d.cfg.Path)
}

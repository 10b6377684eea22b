package cli

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/purepursuit/control"
	"go.viam.com/purepursuit/spatialmath"
)

func toXYs(points []spatialmath.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, point := range points {
		xys[i].X = point.X
		xys[i].Y = point.Y
	}
	return xys
}

// savePlot draws the profile lines and the sampled velocities. The image format follows
// the file extension.
func savePlot(profile *control.TrapezoidVelocityProfile, samples []spatialmath.Point, file string) error {
	p := plot.New()
	p.Title.Text = "Velocity profile"
	p.X.Label.Text = "Distance"
	p.Y.Label.Text = "Velocity"

	corners, err := plotter.NewLine(toXYs(profile.Corners()))
	if err != nil {
		return errors.Wrap(err, "plotting profile lines")
	}
	sampled, err := plotter.NewScatter(toXYs(samples))
	if err != nil {
		return errors.Wrap(err, "plotting samples")
	}
	p.Add(plotter.NewGrid(), corners, sampled)
	p.Legend.Add("profile", corners)
	p.Legend.Add("samples", sampled)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
		return errors.Wrapf(err, "saving plot to %s", file)
	}
	return nil
}

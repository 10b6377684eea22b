package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/purepursuit/path"
	"go.viam.com/purepursuit/spatialmath"
)

// Segment types a path config can use.
const (
	SegmentTypeLine   = "line"
	SegmentTypeSmooth = "smooth"
)

// PathConfig describes a path as a start point and the segments that follow it.
type PathConfig struct {
	Start    spatialmath.Point `json:"start"`
	Segments []SegmentConfig   `json:"segments,omitempty"`
}

// SegmentConfig is one segment of a path. Line segments join their waypoints with straight
// lines, smooth segments round them off.
type SegmentConfig struct {
	Type      string              `json:"type"`
	Waypoints []spatialmath.Point `json:"waypoints"`
}

// Validate ensures all parts of the path config are valid.
func (pc *PathConfig) Validate(p string) error {
	for i, segment := range pc.Segments {
		segmentPath := fmt.Sprintf("%s.segments.%d", p, i)
		switch segment.Type {
		case SegmentTypeLine, SegmentTypeSmooth:
		case "":
			return utils.NewConfigValidationFieldRequiredError(segmentPath, "type")
		default:
			return utils.NewConfigValidationError(segmentPath, errors.Errorf("unknown segment type %q", segment.Type))
		}
		if len(segment.Waypoints) == 0 {
			return utils.NewConfigValidationFieldRequiredError(segmentPath, "waypoints")
		}
	}
	return nil
}

// BuildPath builds the configured path with the configured constraints.
func (c *Config) BuildPath() (*path.Path, error) {
	if len(c.Path.Segments) == 0 {
		return nil, path.ErrNoWaypoints
	}
	b := path.StartAt(c.Path.Start).WithConstraints(c.Constraints)
	for _, segment := range c.Path.Segments {
		if segment.Type == SegmentTypeSmooth {
			b.SmoothTo(segment.Waypoints...)
			continue
		}
		for _, waypoint := range segment.Waypoints {
			b.LineToPoint(waypoint)
		}
	}
	return b.Build()
}

// Package cli contains all functionality needed to run the purepursuit command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag = "config"
	debugFlag  = "debug"

	profileFlagLength    = "length"
	profileFlagReduction = "reduction"
	profileFlagStep      = "step"
	profileFlagPlot      = "plot"

	poseFlagX       = "x"
	poseFlagY       = "y"
	poseFlagHeading = "heading"

	simulateFlagStep     = "dt"
	simulateFlagMaxTicks = "max-ticks"
	simulateFlagTrace    = "trace"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "purepursuit",
		Usage:           "plan and simulate pure pursuit path following",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "profile",
				Usage:     "print the velocity profile of the configured path, or of a path of a given length",
				UsageText: "purepursuit profile [--length L] [--reduction DISTANCE:SEVERITY]...",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  profileFlagLength,
						Usage: "profile a straight path of this length instead of the configured path",
					},
					&cli.StringSliceFlag{
						Name:  profileFlagReduction,
						Usage: "speed reduction as DISTANCE:SEVERITY, with severity in [0, 1]",
					},
					&cli.Float64Flag{
						Name:  profileFlagStep,
						Value: 10,
						Usage: "distance between sampled velocities",
					},
					&cli.StringFlag{
						Name:  profileFlagPlot,
						Usage: "also save a plot of the profile to `FILE`",
					},
				},
				Action: ProfileAction,
			},
			{
				Name:  "lookahead",
				Usage: "print what the controller commands at a pose on the configured path",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: poseFlagX, Usage: "x of the robot"},
					&cli.Float64Flag{Name: poseFlagY, Usage: "y of the robot"},
					&cli.Float64Flag{Name: poseFlagHeading, Usage: "heading of the robot in degrees"},
				},
				Action: LookaheadAction,
			},
			{
				Name:  "simulate",
				Usage: "follow the configured path with a simulated base and report the tracking error",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  simulateFlagStep,
						Usage: "simulated time per control tick; defaults to the loop period",
					},
					&cli.IntFlag{
						Name:  simulateFlagMaxTicks,
						Value: 100000,
						Usage: "give up after this many ticks",
					},
					&cli.IntFlag{
						Name:  simulateFlagTrace,
						Usage: "print every Nth command; 0 prints none",
					},
				},
				Action: SimulateAction,
			},
		},
	}
}

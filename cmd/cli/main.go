package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"stixdc/app"
	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/run"
	"stixdc/domain/science"
	"stixdc/internal/compression"
	"stixdc/internal/config"
	"stixdc/internal/container"
	"stixdc/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; the process environment is used when it is absent
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "stixdc",
		Short: "STIX science data corrections: decompression, live time, transmission and background",
	}

	rootCmd.AddCommand(
		newDecompressCmd(),
		newEncodeCmd(),
		newLUTCmd(),
		newLiveTimeCmd(),
		newSubtractCmd(),
		newTransmissionCmd(),
		newSynthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDecompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress [scheme] [bytes...]",
		Short: "Decompress telemetry bytes",
		Long: `Decompress integer-compressed bytes under a scheme given by name
(counts, triggers, 035, 044, 053) or in sSkKmM form.

Example: stixdc decompress s0k5m3 24 33 200`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := compression.ParseScheme(args[0])
			if err != nil {
				return err
			}
			for _, a := range args[1:] {
				x, err := strconv.Atoi(a)
				if err != nil || x < 0 || x > 255 {
					return fmt.Errorf("invalid byte %q", a)
				}
				d, _ := compression.Decode(x, sc)
				fmt.Printf("%d\t%.0f\t[%.0f, %.0f]\t%.4g\n", x, d.Value, d.Low, d.High, d.Error)
			}
			return nil
		},
	}
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [scheme] [values...]",
		Short: "Compress integers into telemetry bytes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := compression.ParseScheme(args[0])
			if err != nil {
				return err
			}
			for _, a := range args[1:] {
				v, err := strconv.ParseInt(a, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", a, err)
				}
				x, err := compression.Compress(v, sc)
				if err != nil {
					return err
				}
				fmt.Printf("%d\t%d\n", v, x)
			}
			return nil
		},
	}
}

func newLUTCmd() *cobra.Command {
	var quantOnly bool

	cmd := &cobra.Command{
		Use:   "lut [scheme]",
		Short: "Print the error lookup table of a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := compression.ParseScheme(args[0])
			if err != nil {
				return err
			}
			lut, err := compression.NewErrorLUT(sc, !quantOnly)
			if err != nil {
				return err
			}
			for _, v := range lut.Values() {
				e, _ := lut.Error(v)
				fmt.Printf("%.0f\t%.6g\n", v, e)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quantOnly, "quantization-only", false, "Omit the counting statistics term")
	return cmd
}

func newLiveTimeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "livetime [frame]",
		Short: "Correct a science frame for detector dead time",
		Long: `Correct a pixel-data frame for dead time and report the live-time
ratio per detector. Frames are read from .json files, .xlsx workbooks or
directories of CSV sheets.

Example: stixdc livetime flare.xlsx --format xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(format)
			if err != nil {
				return err
			}
			frame, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := c.Service.LiveTime(cmd.Context(), frame)
			if err != nil {
				return err
			}
			if len(out.Report.Saturated) > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d saturated cells\n", len(out.Report.Saturated))
			}
			reportDone(c, out.Report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Report format: json|xlsx")
	return cmd
}

func newSubtractCmd() *cobra.Command {
	var format, start, end string

	cmd := &cobra.Command{
		Use:   "subtract [signal] [background]",
		Short: "Subtract a dead-time corrected background and extract a spectrum",
		Long: `Subtract the background frame's mean rate from the signal frame and
sum the spectrum over an optional UTC window.

Example: stixdc subtract flare.json bkg.json --start 2022-03-31T17:31:00Z --end 2022-03-31T17:35:00Z`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var window app.TimeWindow
			var err error
			if start != "" || end != "" {
				if window.Start, err = core.ParseUTC(start); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				if window.End, err = core.ParseUTC(end); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}

			c, err := newContainer(format)
			if err != nil {
				return err
			}
			signal, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			bkg, err := openFrame(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			out, err := c.Service.Subtract(cmd.Context(), signal, bkg, window)
			if err != nil {
				return err
			}
			reportDone(c, out.Report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Report format: json|xlsx")
	cmd.Flags().StringVar(&start, "start", "", "Window start (UTC)")
	cmd.Flags().StringVar(&end, "end", "", "Window end (UTC)")
	return cmd
}

func newTransmissionCmd() *cobra.Command {
	var format, framePath string
	var attenuator bool

	cmd := &cobra.Command{
		Use:   "transmission",
		Short: "Compute per-detector transmission over the energy channels",
		Long: `Compute the transmission of every detector's material stack averaged
over the two edges of each energy channel. The nominal channel edges are used
unless --frame supplies the edges of a science frame.

Example: stixdc transmission --attenuator`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(format)
			if err != nil {
				return err
			}
			bins := instrument.NominalEnergyBins()
			if framePath != "" {
				frame, err := openFrame(cmd.Context(), framePath)
				if err != nil {
					return err
				}
				bins = frame.EnergyBins
			}
			report, err := c.Service.Transmission(cmd.Context(), bins, attenuator)
			if err != nil {
				return err
			}
			reportDone(c, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Report format: json|xlsx")
	cmd.Flags().StringVar(&framePath, "frame", "", "Take energy channel edges from this frame")
	cmd.Flags().BoolVar(&attenuator, "attenuator", false, "Insert the aluminium attenuator")
	return cmd
}

func newSynthCmd() *cobra.Command {
	cfg := testkit.DefaultFrameConfig()
	var seed int64

	cmd := &cobra.Command{
		Use:   "synth [output]",
		Short: "Write a synthetic Poisson frame",
		Long: `Write a synthetic science frame for exercising the pipeline. The
output format follows the extension: .json, .xlsx, or a directory of CSV sheets.

Example: stixdc synth bkg.xlsx --count-rate 0.5 --trigger-rate 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Seed = uint64(seed)
			frame, err := testkit.NewFrameGenerator(cfg).Generate()
			if err != nil {
				return err
			}
			w, closer, err := container.FrameWriter(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := w.WriteFrame(cmd.Context(), frame); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d bins to %s\n", frame.NumTimeBins(), args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.TimeBins, "bins", cfg.TimeBins, "Number of time bins")
	cmd.Flags().Float64Var(&cfg.TimeDel, "timedel", cfg.TimeDel, "Integration time per bin (s)")
	cmd.Flags().Float64Var(&cfg.CountRate, "count-rate", cfg.CountRate, "Mean counts per pixel channel per second")
	cmd.Flags().Float64Var(&cfg.TriggerRate, "trigger-rate", cfg.TriggerRate, "Mean triggers per group per second")
	cmd.Flags().BoolVar(&cfg.Compress, "compress", false, "Round values through the counts compression scheme")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	return cmd
}

func newContainer(format string) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return container.New(cfg, format, os.Stdout)
}

func openFrame(ctx context.Context, path string) (*science.Frame, error) {
	startTime := time.Now()
	frame, err := container.FrameReader(path).ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "read %s: %d bins in %v\n", path, frame.NumTimeBins(), time.Since(startTime))
	return frame, nil
}

func reportDone(c *container.Container, report *run.Report) {
	if c.Workbooks == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "run %s written to %s\n", report.RunID, c.Workbooks.Path(report))
}

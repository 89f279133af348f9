package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log"
	"github.com/guptarohit/asciigraph"
	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/config"
	"github.com/kepler-sim/orbitlab/internal/export"
	"github.com/kepler-sim/orbitlab/internal/integrators"
	"github.com/kepler-sim/orbitlab/internal/metrics"
	"github.com/kepler-sim/orbitlab/internal/sim"
	"github.com/kepler-sim/orbitlab/internal/storage"
	"github.com/kepler-sim/orbitlab/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	configFile  string
	preset      string
	dt          float64
	duration    float64
	integrator  string
	minDistance float64
	softening   float64
	tolerance   float64
	sampleEvery int
	noMerge     bool
	quiet       bool
	// live view
	extent float64
	// plot axes
	plotBody string
	// svg export
	svgOut    string
	svgWidth  int
	svgHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orbitlab",
		Short: "gravitational n-body lab with close-encounter merging",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".orbitlab", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot body separations from a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	elementsCmd := &cobra.Command{
		Use:   "elements [run_id]",
		Short: "plot orbital element evolution from a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotElements,
	}
	elementsCmd.Flags().StringVar(&plotBody, "body", "", "restrict to one body id")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write run states as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write the full run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render run trajectories as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default [run_id].svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		RunE:  listScenarioPresets,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same scenario",
		RunE:  compareIntegrators,
	}
	addScenarioFlags(compareCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with live terminal visualization",
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().Float64Var(&extent, "extent", 0, "view half-width in world units (0 = auto)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, elementsCmd, exportCSVCmd,
		exportJSONCmd, exportSVGCmd, presetsCmd, compareCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "scenario preset name")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Float64Var(&minDistance, "min-distance", config.DefaultMinDistance, "close-encounter threshold (0 disables)")
	cmd.Flags().Float64Var(&softening, "softening", 0, "plummer softening length")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "adaptive step tolerance")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record every n-th step")
	cmd.Flags().BoolVar(&noMerge, "no-merge", false, "stop at the first close encounter instead of merging")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress step logging")
}

// loadScenario resolves the scenario in precedence order: preset, then
// config file, then the built-in default, with changed CLI flags applied
// on top.
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config

	switch {
	case preset != "":
		cfg = config.Preset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)",
				preset, strings.Join(config.ListPresets(), ", "))
		}
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		cfg = config.Default()
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("min-distance") {
		cfg.MinDistance = minDistance
	}
	if cmd.Flags().Changed("softening") {
		cfg.Softening = softening
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if noMerge {
		cfg.Merge = false
	}

	return cfg, cfg.Validate()
}

// buildSim instantiates a simulation from a scenario. The first body is
// placed by its explicit state (or at the origin); later bodies fall back
// to orbital-element placement around it.
func buildSim(cfg *config.Config) (*sim.Simulation, error) {
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(cfg.G, integ)
	s.SetStep(cfg.Dt)
	s.SetTolerance(cfg.Tolerance)
	s.SetSoftening(cfg.Softening)
	s.SetMinDistance(cfg.MinDistance)

	for i, bc := range cfg.Bodies {
		switch {
		case bc.HasState():
			b := body.Body{ID: bc.ID, Mass: bc.Mass}
			if bc.Pos != nil {
				b.Pos = body.Vec3(*bc.Pos)
			}
			if bc.Vel != nil {
				b.Vel = body.Vec3(*bc.Vel)
			}
			err = s.Add(b)
		case i == 0:
			err = s.Add(body.Body{ID: bc.ID, Mass: bc.Mass})
		default:
			err = s.AddOrbit(bc.ID, bc.Mass, bc.A, bc.E, bc.Nu)
		}
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// runScenario integrates to the scenario's duration, merging the closest
// pair whenever a close encounter interrupts the integration (unless
// merging is disabled, in which case the first encounter ends the run).
func runScenario(ctx context.Context, s *sim.Simulation, cfg *config.Config,
	rec *storage.Recorder, energy *metrics.EnergyDrift) ([]storage.EncounterEvent, error) {

	var events []storage.EncounterEvent
	for {
		err := s.Integrate(ctx, cfg.Duration)
		if err == nil {
			return events, nil
		}

		var enc *sim.CloseEncounter
		if !errors.As(err, &enc) {
			return events, err
		}
		if !cfg.Merge {
			fmt.Printf("stopped: %v\n", enc)
			return events, nil
		}

		merged, err := s.MergeClosestPair()
		if err != nil {
			return events, err
		}
		events = append(events, storage.EncounterEvent{
			Time:     enc.Time,
			First:    enc.First,
			Second:   enc.Second,
			Distance: enc.Distance,
			Survivor: merged.ID,
			Mass:     merged.Mass,
		})
		if rec != nil {
			rec.Record(s.Bodies(), s.Time())
		}
		if energy != nil {
			// Merging dissipates energy; restart the drift baseline.
			energy.Rebase()
		}
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, err := buildSim(cfg)
	if err != nil {
		return err
	}
	if !quiet {
		s.SetLogger(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)))
	}
	s.MoveToCOM()

	rec := storage.NewRecorder(cfg.SampleEvery)
	energy := metrics.NewEnergyDrift(cfg.G)
	momentum := metrics.NewMomentumDrift()
	s.AddObserver(rec)
	s.AddObserver(energy)
	s.AddObserver(momentum)

	initialBodies := s.N()
	rec.Record(s.Bodies(), s.Time())

	fmt.Printf("running %s...\n", cfg.Name)
	start := time.Now()

	events, err := runScenario(context.Background(), s, cfg, rec, energy)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	rec.Record(s.Bodies(), s.Time())

	meta := storage.RunMetadata{
		Name:          cfg.Name,
		G:             cfg.G,
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		Integrator:    cfg.Integrator,
		MinDistance:   cfg.MinDistance,
		InitialBodies: initialBodies,
		FinalBodies:   s.N(),
		Merges:        len(events),
		Metrics: map[string]float64{
			energy.Name():   energy.Value(),
			momentum.Name(): momentum.Value(),
		},
	}
	runID, err := st.Save(meta, rec.Snapshots(), events)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("bodies: %d -> %d (%d merges)\n", initialBodies, s.N(), len(events))
	for _, ev := range events {
		fmt.Printf("  t=%.4f  %s + %s -> %s (m=%.4g)\n",
			ev.Time, ev.First, ev.Second, ev.Survivor, ev.Mass)
	}
	fmt.Println("\nmetrics:")
	fmt.Printf("  %s: %.3e\n", energy.Name(), energy.Value())
	fmt.Printf("  %s: %.3e\n", momentum.Name(), momentum.Value())

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tDT\tINTEG\tBODIES\tMERGES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.4g\t%s\t%d->%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.InitialBodies,
			run.FinalBodies,
			run.Merges,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(snaps))

	// Distance of each secondary from the primary, one graph per body.
	// Tracks end early for bodies that merged away.
	primaryID := snaps[0].Bodies[0].ID
	var order []string
	dist := make(map[string][]float64)
	for _, snap := range snaps {
		var primary *body.Body
		for i := range snap.Bodies {
			if snap.Bodies[i].ID == primaryID {
				primary = &snap.Bodies[i]
			}
		}
		if primary == nil {
			continue
		}
		for _, b := range snap.Bodies {
			if b.ID == primaryID {
				continue
			}
			if _, ok := dist[b.ID]; !ok {
				order = append(order, b.ID)
			}
			dist[b.ID] = append(dist[b.ID], b.Pos.Sub(primary.Pos).Norm())
		}
	}

	const maxPlots = 6
	for i, id := range order {
		if i >= maxPlots {
			break
		}
		graph := asciigraph.Plot(dist[id],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s: distance from %s", id, primaryID)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	// Closest approach across all pairs, the quantity the encounter
	// threshold watches.
	minSep := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		best := math.Inf(1)
		for i := 0; i < len(snap.Bodies); i++ {
			for j := i + 1; j < len(snap.Bodies); j++ {
				if d := math.Sqrt(body.DistanceSquared(snap.Bodies[i], snap.Bodies[j])); d < best {
					best = d
				}
			}
		}
		if !math.IsInf(best, 1) {
			minSep = append(minSep, best)
		}
	}
	if len(minSep) > 1 {
		graph := asciigraph.Plot(minSep,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("minimum pair separation"),
		)
		fmt.Println(graph)
	}

	return nil
}

func plotElements(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	samples, err := st.LoadElements(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no element data")
	}

	as := make(map[string][]float64)
	es := make(map[string][]float64)
	var order []string
	for _, s := range samples {
		if plotBody != "" && s.ID != plotBody {
			continue
		}
		if _, ok := as[s.ID]; !ok {
			order = append(order, s.ID)
		}
		as[s.ID] = append(as[s.ID], s.A)
		es[s.ID] = append(es[s.ID], s.E)
	}
	if len(order) == 0 {
		return fmt.Errorf("no element data for body %q", plotBody)
	}

	const maxPlots = 4
	for i, id := range order {
		if i >= maxPlots {
			break
		}
		fmt.Println(asciigraph.Plot(as[id],
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s: semi-major axis", id)),
		))
		fmt.Println()
		fmt.Println(asciigraph.Plot(es[id],
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s: eccentricity", id)),
		))
		fmt.Println()
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	f, err := os.Open(filepath.Join(dataDir, runID, "states.csv"))
	if err != nil {
		return fmt.Errorf("run not found: %s", runID)
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return err
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	snaps, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	events, err := st.LoadEncounters(runID)
	if err != nil {
		return err
	}

	svg := export.OrbitsToSVG(snaps, events, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("not enough samples to render")
	}

	out := svgOut
	if out == "" {
		out = runID + ".svg"
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func listScenarioPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTEG\tBODIES\tDURATION\tMERGE")
	for _, name := range config.ListPresets() {
		cfg := config.Preset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%v\n",
			name, cfg.Integrator, len(cfg.Bodies), cfg.Duration, cfg.Merge)
	}
	return w.Flush()
}

type stepCounter struct{ n int }

func (c *stepCounter) OnStep(bodies []body.Body, t float64) { c.n++ }

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}

	fmt.Printf("comparing integrators on %s\n\n", cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tSTEPS\tTIME\tENERGY DRIFT\tMERGES\tBODIES")

	for _, name := range names {
		trial := *cfg
		trial.Integrator = name

		s, err := buildSim(&trial)
		if err != nil {
			return err
		}
		s.MoveToCOM()

		energy := metrics.NewEnergyDrift(trial.G)
		steps := &stepCounter{}
		s.AddObserver(energy)
		s.AddObserver(steps)

		start := time.Now()
		events, err := runScenario(context.Background(), s, &trial, nil, energy)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%s\t%d\t%v\t%.3e\t%d\t%d\n",
			name, steps.n, elapsed.Round(time.Millisecond),
			energy.Value(), len(events), s.N())
	}

	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	s, err := buildSim(cfg)
	if err != nil {
		return err
	}
	s.MoveToCOM()

	half := extent
	if half <= 0 {
		// Fit the initial body set with some margin.
		for _, b := range s.Bodies() {
			if r := b.Pos.Norm(); r*1.5 > half {
				half = r * 1.5
			}
		}
		if half == 0 {
			half = 2
		}
	}

	m := viz.NewModel(s, cfg.Duration, cfg.Merge, half)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

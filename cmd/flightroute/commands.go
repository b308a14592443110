package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/app"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/record"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

func parsePath(s string) []string {
	var path []string
	for _, code := range strings.Split(s, ",") {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			path = append(path, code)
		}
	}
	return path
}

func runEstimate(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	pathFlag := fs.String("path", "", "comma-separated airport codes, origin first")
	passengers := fs.Int("passengers", 0, "number of passengers")
	flight := fs.Int("flight", 1, "flight number")
	_ = fs.Parse(args)

	r, err := route.FromPath(*flight, parsePath(*pathFlag), *passengers)
	if err != nil {
		return err
	}
	est, err := a.Estimator()
	if err != nil {
		return err
	}
	if err := est.Apply(&r); err != nil {
		return err
	}
	if err := r.Validate(est.Policy().Capacity); err != nil {
		return err
	}
	return record.Encode(os.Stdout, []route.Route{r})
}

func runReorder(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("reorder", flag.ExitOnError)
	pathFlag := fs.String("path", "", "comma-separated airport codes, origin first; prints the best ordering")
	in := fs.String("in", "", "records file to reorder")
	out := fs.String("out", "", "output records file")
	strategy := fs.String("strategy", "", "exhaustive, nearest-neighbor or origin-distance (config value when empty)")
	_ = fs.Parse(args)

	if *pathFlag != "" {
		path := parsePath(*pathFlag)
		if len(path) < 2 {
			return xerrors.Errorf(xerrors.ErrInvalidRoute, "need an origin and at least one waypoint")
		}
		opt, err := a.Optimizer(*strategy)
		if err != nil {
			return err
		}
		ordering, err := opt.Reorder(ctx, path[0], path[1:], opt.Strategy())
		if err != nil {
			return err
		}
		label := string(ordering.Strategy)
		if ordering.Strategy.Approximate() {
			label += " (approximate)"
		}
		fmt.Printf("%s\t%.4f nm\t%s\n", strings.Join(ordering.Path, ", "), ordering.Distance, label)
		return nil
	}

	if *in == "" {
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "reorder needs -path or -in")
	}
	p, err := a.Pipeline(*strategy)
	if err != nil {
		return err
	}
	return printResult(p.Run(ctx, pipeline.Job{Input: *in, Output: *out, Reorder: true}))
}

func runOptimize(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	in := fs.String("in", "", "records file")
	out := fs.String("out", "", "output records file")
	reorder := fs.Bool("reorder", false, "reorder stops before merging")
	_ = fs.Parse(args)

	if *in == "" {
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "optimize needs -in")
	}
	p, err := a.Pipeline("")
	if err != nil {
		return err
	}
	return printResult(p.Run(ctx, pipeline.Job{Input: *in, Output: *out, Reorder: *reorder, Merge: true}))
}

func runBatch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	inDir := fs.String("in-dir", "", "process every .txt records file in this directory")
	outDir := fs.String("out-dir", "", "directory for output files (config pipeline.output_dir when empty)")
	_ = fs.Parse(args)

	conf := a.Config()
	if *outDir == "" {
		*outDir = conf.Pipeline.OutputDir
	}
	var jobs []pipeline.Job
	if *inDir != "" {
		var err error
		if jobs, err = pipeline.JobsFromDir(*inDir, *outDir, conf.Pipeline.Reorder, conf.Pipeline.Merge); err != nil {
			return err
		}
	}
	for _, in := range fs.Args() {
		jobs = append(jobs, jobFor(in, *outDir, conf.Pipeline.Reorder, conf.Pipeline.Merge))
	}
	if len(jobs) == 0 {
		return xerrors.Errorf(xerrors.ErrEmptyData, "no input files")
	}

	p, err := a.Pipeline("")
	if err != nil {
		return err
	}
	results, err := pipeline.NewRunner(p, conf.Pipeline.Concurrency).RunAll(ctx, jobs)
	for _, res := range results {
		if res != nil {
			printSummary(res)
		}
	}
	return err
}

func runAirports(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("airports", flag.ExitOnError)
	out := fs.String("out", "", "write the table in the airport file format instead of printing it")
	_ = fs.Parse(args)

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return xerrors.WrapInternal(err, "create airports file")
		}
		if err := airport.Write(f, a.Table); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tPOPULATION\tLAT\tLON")
	for _, ap := range a.Table.Airports() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4f\t%.4f\n", ap.Code, ap.Name, ap.Population, ap.Lat, ap.Lon)
	}
	return tw.Flush()
}

func jobFor(in, outDir string, reorder, merge bool) pipeline.Job {
	job := pipeline.Job{Input: in, Reorder: reorder, Merge: merge}
	if outDir != "" {
		job.Output = filepath.Join(outDir, filepath.Base(in))
	}
	return job
}

func printResult(res *pipeline.Result, err error) error {
	if res != nil {
		printSummary(res)
	}
	return err
}

func printSummary(res *pipeline.Result) {
	fmt.Printf("%s\t%s\tparsed=%d skipped_lines=%d skipped_records=%d reordered=%d merges=%d\n",
		res.RunID, res.Input, res.Parsed, res.SkippedLines, res.SkippedRecords, res.Reordered, len(res.Report.Merges))
	fmt.Printf("  %-6s routes=%d passengers=%d passenger_miles=%.2f net_profit=%s\n",
		"input", res.Before.Routes, res.Before.Passengers, res.Before.PassengerMiles, res.Before.NetProfit.Dollars())
	fmt.Printf("  %-6s routes=%d passengers=%d passenger_miles=%.2f net_profit=%s\n",
		"output", res.After.Routes, res.After.Passengers, res.After.PassengerMiles, res.After.NetProfit.Dollars())
	for _, issue := range res.Issues {
		fmt.Fprintf(os.Stderr, "  skipped %s\n", issue)
	}
}

package main

import (
	"context"
	"flag"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/flightroute/app"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/xerrors"
)

const watchDebounce = 500 * time.Millisecond

// runWatch 先处理目录中已有的文件，之后每当 .txt 文件被写入或创建就重新处理该文件.
// 配置文件变更会热更新日志级别、合并规则与经济参数.
func runWatch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	inDir := fs.String("in-dir", "", "directory of records files to watch")
	outDir := fs.String("out-dir", "", "directory for output files (config pipeline.output_dir when empty)")
	_ = fs.Parse(args)

	if *inDir == "" {
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "watch needs -in-dir")
	}
	conf := a.Config()
	if *outDir == "" {
		*outDir = conf.Pipeline.OutputDir
	}
	if *outDir != "" && sameDir(*inDir, *outDir) {
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "output dir must differ from the watched dir")
	}

	if *configPath != "" {
		a.Watch()
	}
	if conf.Metrics.Enabled {
		stopMetrics := a.Metrics.ExposeHttp(conf.Metrics.Port, conf.Metrics.Path)
		defer stopMetrics()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.WrapInternal(err, "create file watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(*inDir); err != nil {
		return xerrors.WrapInternal(err, "watch input dir")
	}

	changed := make(chan string, 16)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(changed)
		return forwardEvents(ctx, a, watcher, changed)
	})
	eg.Go(func() error {
		return processChanges(ctx, a, *inDir, *outDir, changed)
	})

	a.Logger.InfoContext(ctx, "watching for records", "dir", *inDir, "out_dir", *outDir)
	if err := eg.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func forwardEvents(ctx context.Context, a *app.App, watcher *fsnotify.Watcher, changed chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".txt") || strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			select {
			case changed <- event.Name:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.ErrorContext(ctx, "file watcher error", "error", err)
		}
	}
}

// processChanges 合并 watchDebounce 内对同一文件的多次事件，每批文件处理一次.
func processChanges(ctx context.Context, a *app.App, inDir, outDir string, changed <-chan string) error {
	conf := a.Config()
	initial, err := pipeline.JobsFromDir(inDir, outDir, conf.Pipeline.Reorder, conf.Pipeline.Merge)
	if err != nil {
		return err
	}
	runJobs(ctx, a, initial)

	pending := map[string]bool{}
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case name, ok := <-changed:
			if !ok {
				return nil
			}
			pending[name] = true
			timer.Reset(watchDebounce)
		case <-timer.C:
			conf := a.Config()
			jobs := make([]pipeline.Job, 0, len(pending))
			for name := range pending {
				jobs = append(jobs, jobFor(name, outDir, conf.Pipeline.Reorder, conf.Pipeline.Merge))
			}
			clear(pending)
			runJobs(ctx, a, jobs)
		}
	}
}

// runJobs 失败只记日志，不终止监听.
func runJobs(ctx context.Context, a *app.App, jobs []pipeline.Job) {
	if len(jobs) == 0 {
		return
	}
	p, err := a.Pipeline("")
	if err != nil {
		a.Logger.ErrorContext(ctx, "pipeline not available", "error", err)
		return
	}
	results, err := pipeline.NewRunner(p, a.Config().Pipeline.Concurrency).RunAll(ctx, jobs)
	for _, res := range results {
		if res != nil {
			printSummary(res)
		}
	}
	if err != nil {
		a.Logger.ErrorContext(ctx, "watch run failed", "error", err)
	}
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/flightroute/xerrors"
)

// Runner 以有限并发执行一批 Job，每个 Job 独立成败。
type Runner struct {
	pipeline    *Pipeline
	concurrency int
}

// NewRunner 创建批量执行器，concurrency 小于 1 时按 1 处理。
func NewRunner(p *Pipeline, concurrency int) *Runner {
	return &Runner{pipeline: p, concurrency: max(concurrency, 1)}
}

// RunAll 执行全部 Job。结果与 jobs 下标一一对应，失败的 Job 对应位置仍有部分结果；
// 返回的错误是各 Job 错误的合并。
func (r *Runner) RunAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx)
	for i, job := range jobs {
		p.Go(func(ctx context.Context) error {
			res, err := r.pipeline.Run(ctx, job)
			results[i] = res
			if err != nil {
				errs[i] = xerrors.WrapInternal(err, "run "+job.Input)
			}
			return nil
		})
	}
	_ = p.Wait()

	return results, errors.Join(errs...)
}

// JobsFromDir 为目录下每个 .txt 记录文件生成一个 Job，输出写入 outDir 下同名文件。
// outDir 为空时不写出。
func JobsFromDir(inDir, outDir string, reorder, merge bool) ([]Job, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, err
	}
	var jobs []Job
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		job := Job{Input: filepath.Join(inDir, e.Name()), Reorder: reorder, Merge: merge}
		if outDir != "" {
			job.Output = filepath.Join(outDir, e.Name())
		}
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b Job) int { return strings.Compare(a.Input, b.Input) })
	return jobs, nil
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/xerrors"
)

const (
	recordsContentType = "text/plain; charset=utf-8"
	summaryContentType = "application/json"
	summaryObject      = "summary.json"
)

// Summary 随输出一起归档的运行摘要。
type Summary struct {
	RunID          string    `json:"run_id"`
	Input          string    `json:"input"`
	Parsed         int       `json:"parsed"`
	SkippedLines   int       `json:"skipped_lines"`
	SkippedRecords int       `json:"skipped_records"`
	Reordered      int       `json:"reordered"`
	ReorderSkipped int       `json:"reorder_skipped"`
	Merges         int       `json:"merges"`
	Passes         int       `json:"passes"`
	Converged      bool      `json:"converged"`
	InputTotals    Totals    `json:"input_totals"`
	OutputTotals   Totals    `json:"output_totals"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Totals 一组航线的汇总.
type Totals struct {
	Routes         int     `json:"routes"`
	Passengers     int     `json:"passengers"`
	PassengerMiles float64 `json:"passenger_miles"`
	NetProfit      string  `json:"net_profit"`
}

func totalsOf(t pipeline.Totals) Totals {
	return Totals{
		Routes:         t.Routes,
		Passengers:     t.Passengers,
		PassengerMiles: t.PassengerMiles,
		NetProfit:      t.NetProfit.String(),
	}
}

// SummaryOf 提取运行摘要。
func SummaryOf(res *pipeline.Result) Summary {
	return Summary{
		RunID:          res.RunID,
		Input:          res.Input,
		Parsed:         res.Parsed,
		SkippedLines:   res.SkippedLines,
		SkippedRecords: res.SkippedRecords,
		Reordered:      res.Reordered,
		ReorderSkipped: res.ReorderSkipped,
		Merges:         len(res.Report.Merges),
		Passes:         res.Report.Passes,
		Converged:      res.Report.Converged,
		InputTotals:    totalsOf(res.Before),
		OutputTotals:   totalsOf(res.After),
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
	}
}

// Archiver 把输出文件与摘要上传到 runs/<run-id>/ 下，实现 pipeline.Sink。
type Archiver struct {
	store  Storage
	prefix string
}

// NewArchiver 创建归档下游，prefix 为空时使用 "runs"。
func NewArchiver(store Storage, prefix string) *Archiver {
	if prefix == "" {
		prefix = "runs"
	}
	return &Archiver{store: store, prefix: prefix}
}

func (a *Archiver) Name() string { return "archive" }

// ObjectKey 返回某次运行中某个文件的对象名。
func (a *Archiver) ObjectKey(runID, name string) string {
	return path.Join(a.prefix, runID, name)
}

// Publish 上传输出文件（若有）与运行摘要。
func (a *Archiver) Publish(ctx context.Context, res *pipeline.Result) error {
	if res.Output != "" {
		data, err := os.ReadFile(res.Output)
		if err != nil {
			return xerrors.WrapInternal(err, "read output for archive")
		}
		key := a.ObjectKey(res.RunID, filepath.Base(res.Output))
		if err := a.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), recordsContentType); err != nil {
			return xerrors.WrapInternal(err, "archive output").WithContext("object", key)
		}
	}

	summary, err := json.MarshalIndent(SummaryOf(res), "", "  ")
	if err != nil {
		return xerrors.WrapInternal(err, "marshal summary")
	}
	key := a.ObjectKey(res.RunID, summaryObject)
	if err := a.store.Upload(ctx, key, bytes.NewReader(summary), int64(len(summary)), summaryContentType); err != nil {
		return xerrors.WrapInternal(err, "archive summary").WithContext("object", key)
	}
	return nil
}

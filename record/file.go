package record

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// ReadFile 读取记录文件，跳过的行与块记为警告日志并一并返回。
func ReadFile(ctx context.Context, path string) ([]route.Route, []xerrors.Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, xerrors.WrapInternal(err, "open records file")
	}
	defer f.Close()

	routes, issues, err := Decode(f)
	for _, issue := range issues {
		logging.Warn(ctx, "skipping record", "file", path, "line", issue.Line, "error", issue.Err)
	}
	return routes, issues, err
}

// WriteFile 先写临时文件再重命名，读者不会看到写了一半的文件。
func WriteFile(path string, routes []route.Route) error {
	var buf bytes.Buffer
	if err := Encode(&buf, routes); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.WrapInternal(err, "create output dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return xerrors.WrapInternal(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return xerrors.WrapInternal(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return xerrors.WrapInternal(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return xerrors.WrapInternal(err, "rename output file")
	}
	return nil
}

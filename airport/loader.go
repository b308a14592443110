package airport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/xerrors"
)

// 每行字段：code, name, population, longitude, latitude（经度在前）。
const fieldsPerLine = 5

var validate = validator.New()

// Load 从文本读取机场表。坏行作为 Issue 上报并跳过；只有读取失败才返回 error。
func Load(r io.Reader) (*Table, []xerrors.Issue, error) {
	var (
		airports []Airport
		issues   []xerrors.Issue
		seen     = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		a, err := parseLine(line)
		if err == nil {
			if first, dup := seen[a.Code]; dup {
				err = xerrors.Errorf(xerrors.ErrMalformedRecord, "duplicate airport %s (first on line %d)", a.Code, first)
			}
		}
		if err != nil {
			issues = append(issues, xerrors.Issue{Line: lineNo, Text: raw, Err: err})
			continue
		}
		seen[a.Code] = lineNo
		airports = append(airports, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, issues, xerrors.WrapInternal(err, "read airports")
	}
	if len(airports) == 0 {
		return nil, issues, xerrors.Errorf(xerrors.ErrEmptyData, "no valid airports")
	}

	return NewTable(airports...), issues, nil
}

// LoadFile 读取机场文件，并把跳过的行记为警告日志。
func LoadFile(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.WrapInternal(err, "open airports file")
	}
	defer f.Close()

	table, issues, err := Load(f)
	for _, issue := range issues {
		logging.Warn(ctx, "skipping airport line", "file", path, "line", issue.Line, "error", issue.Err)
	}
	if err != nil {
		return nil, err
	}
	logging.Debug(ctx, "airports loaded", "file", path, "count", table.Len(), "skipped", len(issues))
	return table, nil
}

func parseLine(line string) (Airport, error) {
	parts := strings.Split(line, ",")
	if len(parts) != fieldsPerLine {
		return Airport{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "want %d fields, got %d", fieldsPerLine, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	population, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Airport{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "population %q", parts[2]).WithCause(err)
	}
	lon, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Airport{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "longitude %q", parts[3]).WithCause(err)
	}
	lat, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return Airport{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "latitude %q", parts[4]).WithCause(err)
	}

	a := Airport{
		Code:       strings.ToUpper(parts[0]),
		Name:       parts[1],
		Population: population,
		Lat:        lat,
		Lon:        lon,
	}
	if err := validate.Struct(a); err != nil {
		return Airport{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "invalid airport %s", a.Code).WithCause(err)
	}
	return a, nil
}

// Write 以 Load 可读的格式写出机场表。
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	for _, a := range t.Airports() {
		if err := validate.Struct(a); err != nil {
			return xerrors.Errorf(xerrors.ErrMalformedRecord, "airport %s cannot be written", a.Code).WithCause(err)
		}
		lon := strconv.FormatFloat(a.Lon, 'f', -1, 64)
		lat := strconv.FormatFloat(a.Lat, 'f', -1, 64)
		if _, err := fmt.Fprintf(bw, "%s, %s, %d, %s, %s\n", a.Code, a.Name, a.Population, lon, lat); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Package csvfeed loads historical quote files into order buckets. The feed
// format is one record per line: timestamp,product,kind,price,amount.
package csvfeed

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/pkg/book"
)

const fieldCount = 5

// RowError describes one unloadable feed row. Rows that fail to parse are
// skipped with a warning; they never abort a load.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("csvfeed: line %d: %s", e.Line, e.Reason)
}

// Load reads the feed file and returns its records bucketed by timestamp,
// each bucket in file order. Malformed rows are logged and skipped. Only a
// file that cannot be opened or read fails the load.
func Load(path string, logger *zap.Logger) (map[string][]*book.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfeed: open %s: %w", path, err)
	}
	defer f.Close()

	buckets := make(map[string][]*book.Order)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line, loaded := 0, 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rec, rowErr := parseRecord(text, line)
		if rowErr != nil {
			logger.Warn("skipping bad feed row",
				zap.Int("line", rowErr.Line),
				zap.String("reason", rowErr.Reason))
			continue
		}
		buckets[rec.Timestamp] = append(buckets[rec.Timestamp], rec)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("csvfeed: read %s: %w", path, err)
	}

	logger.Info("feed loaded",
		zap.String("path", path),
		zap.Int("records", loaded),
		zap.Int("timestamps", len(buckets)))
	return buckets, nil
}

func parseRecord(line string, n int) (*book.Order, *RowError) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return nil, &RowError{Line: n, Reason: fmt.Sprintf("want %d fields, got %d", fieldCount, len(fields))}
	}

	kind := book.ParseKind(fields[2])
	if kind == book.Unknown {
		return nil, &RowError{Line: n, Reason: fmt.Sprintf("unknown order kind %q", fields[2])}
	}

	price, amount, err := parseNumbers(fields[3], fields[4])
	if err != nil {
		return nil, &RowError{Line: n, Reason: err.Error()}
	}
	return book.NewOrder(price, amount, fields[0], fields[1], kind), nil
}

// ParseRow builds a standing order from a console entry ("product,price,
// amount") at the given session timestamp.
func ParseRow(input, timestamp string, kind book.Kind) (*book.Order, error) {
	fields := strings.Split(strings.TrimSpace(input), ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("csvfeed: want product,price,amount, got %d fields", len(fields))
	}
	price, amount, err := parseNumbers(fields[1], fields[2])
	if err != nil {
		return nil, fmt.Errorf("csvfeed: %s", err)
	}
	return book.NewOrder(price, amount, timestamp, fields[0], kind), nil
}

func parseNumbers(priceField, amountField string) (price, amount decimal.Decimal, err error) {
	price, err = decimal.NewFromString(strings.TrimSpace(priceField))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("bad price %q", priceField)
	}
	amount, err = decimal.NewFromString(strings.TrimSpace(amountField))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("bad amount %q", amountField)
	}
	return price, amount, nil
}

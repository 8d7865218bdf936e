package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a-poor/cowdb/db"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxImportLine = 1 << 20

var errMalformedLine = errors.New("malformed import line")

type importOptions struct {
	Expected  uint    // expected number of records, sizes the bloom filter
	FalseRate float64 // bloom filter false positive rate
	Batch     int     // commit every Batch records; 0 commits once at the end
}

type importResult struct {
	Records    int `json:"records"`
	Duplicates int `json:"duplicates"` // probable, per the bloom filter
	Commits    int `json:"commits"`
}

func (a *app) importCmd() *cobra.Command {
	opts := importOptions{
		Expected:  10_000,
		FalseRate: 0.01,
	}
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Load tab-separated key/value lines",
		Long: "Load key/value pairs, one per line, separated by the first tab.\n" +
			"Blank lines are skipped. A key seen twice keeps its last value.\n" +
			"Pass - to read from standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return a.withDB(func(d *db.DB) error {
				res, err := importRecords(d, in, opts, a.log)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (%d probable duplicate keys) in %d commits\n",
					res.Records, res.Duplicates, res.Commits)
				return err
			})
		},
	}
	f := cmd.Flags()
	f.UintVar(&opts.Expected, "expected", opts.Expected, "expected number of records")
	f.Float64Var(&opts.FalseRate, "false-rate", opts.FalseRate, "false positive rate of the duplicate filter")
	f.IntVar(&opts.Batch, "batch", 0, "commit every N records (0 commits once)")
	return cmd
}

// importRecords reads tab-separated lines from r into d. Records are
// committed every opts.Batch lines and once more at the end.
func importRecords(d *db.DB, r io.Reader, opts importOptions, log *zap.Logger) (importResult, error) {
	var res importResult
	if opts.Expected == 0 {
		opts.Expected = 1
	}
	if opts.FalseRate <= 0 || opts.FalseRate >= 1 {
		return res, fmt.Errorf("false positive rate must be in (0, 1), got %v", opts.FalseRate)
	}
	seen := bloom.NewWithEstimates(opts.Expected, opts.FalseRate)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	pending := 0
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}
		key, value, ok := strings.Cut(text, "\t")
		if !ok {
			return res, fmt.Errorf("%w %d: no tab separator", errMalformedLine, line)
		}
		if seen.TestAndAdd([]byte(key)) {
			res.Duplicates++
			log.Debug("probable duplicate key", zap.String("key", key), zap.Int("line", line))
		}
		if err := d.Set(key, []byte(value)); err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.Records++
		pending++

		if opts.Batch > 0 && pending >= opts.Batch {
			if err := d.Commit(); err != nil {
				return res, err
			}
			res.Commits++
			pending = 0
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("failed to read input: %w", err)
	}
	if pending > 0 {
		if err := d.Commit(); err != nil {
			return res, err
		}
		res.Commits++
	}
	log.Info("import finished",
		zap.Int("records", res.Records),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("commits", res.Commits),
	)
	return res, nil
}

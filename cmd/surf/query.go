package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wizenheimer/surf"
	"github.com/wizenheimer/surf/internal/config"
	"github.com/wizenheimer/surf/internal/metrics"
)

// batchOptions controls a batch of queries
type batchOptions struct {
	K         int
	MultiOcc  bool
	MatchOnly bool
	Verify    bool
	IDs       bool
	TimeLimit time.Duration
	Workers   int
}

// queryOutcome is the answer to one query line
type queryOutcome struct {
	Line    int
	Length  int
	Matched bool
	Results []surf.Result
	Elapsed time.Duration
	Err     error
}

// batchSummary aggregates a finished batch
type batchSummary struct {
	Queries   int
	QueryLen  int
	Reported  int
	SumWeight uint64
	Failed    int
	TLE       bool
	Elapsed   time.Duration
}

func runQuery(cfg *config.Config, args []string) error {
	fs := newFlagSet("query")
	dir := fs.String("c", cfg.Collection.Dir, "directory the index is stored in")
	queryFile := fs.String("q", "", "file with one query per line")
	k := fs.Int("k", cfg.Query.K, "documents to retrieve per query")
	multiOcc := fs.Bool("m", cfg.Query.MultiOcc, "only retrieve documents containing the pattern more than once")
	matchOnly := fs.Bool("o", cfg.Query.MatchOnly, "only match the pattern; no document retrieval")
	verbose := fs.Bool("v", false, "print every result as query;rank;doc;weight")
	verify := fs.Bool("f", false, "check every result against a full scan (slow)")
	ids := fs.Bool("ids", false, "queries are whitespace separated token ids instead of text")
	timeLimit := fs.Duration("t", cfg.Query.TimeLimit, "stop the batch once a query takes longer (0 disables)")
	workers := fs.Int("j", cfg.Query.Workers, "queries answered in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *queryFile == "" {
		return fmt.Errorf("query: missing query file (-q)")
	}

	idx, err := surf.Open(*dir)
	if err != nil {
		return fmt.Errorf("opening index %s: %w", *dir, err)
	}

	f, err := os.Open(*queryFile)
	if err != nil {
		return fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()
	queries, err := readQueries(f)
	if err != nil {
		return err
	}

	opts := batchOptions{
		K:         *k,
		MultiOcc:  *multiOcc,
		MatchOnly: *matchOnly,
		Verify:    *verify,
		IDs:       *ids,
		TimeLimit: *timeLimit,
		Workers:   *workers,
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if !*verbose {
		fmt.Fprintf(out, "# index_dir = %s\n", *dir)
		fmt.Fprintf(out, "# pattern_file = %s\n", *queryFile)
		fmt.Fprintf(out, "# doc_cnt = %d\n", idx.DocCount())
		fmt.Fprintf(out, "# word_cnt = %d\n", idx.WordCount())
		fmt.Fprintf(out, "# k = %d\n", opts.K)
		fmt.Fprintf(out, "# match_only = %t\n", opts.MatchOnly)
		fmt.Fprintf(out, "# multi_occ = %t\n", opts.MultiOcc)
	}

	outcomes, summary, err := runBatch(context.Background(), idx, queries, opts, metrics.New(nil))
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			slog.Error("correctness check failed", "query", o.Line, "error", o.Err)
		}
		if *verbose {
			for rank, r := range o.Results {
				fmt.Fprintf(out, "%d;%d;%d;%d\n", o.Line, rank+1, r.DocID, r.Weight)
			}
		}
	}
	if !*verbose {
		writeSummary(out, summary)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d queries failed the correctness check", summary.Failed, summary.Queries)
	}
	return nil
}

// readQueries returns the non-empty lines of r
func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// parsePattern turns a query line into token ids. Text is analyzed like the
// documents were; with ids the line holds the ids themselves. ok is false
// when the line cannot match anything.
func parsePattern(idx *surf.Index, line string, ids bool) (pattern []uint32, length int, ok bool) {
	if !ids {
		pattern, ok = idx.Tokens(line)
		return pattern, len(strings.Fields(line)), ok
	}
	fields := strings.Fields(line)
	pattern = make([]uint32, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, len(fields), false
		}
		pattern = append(pattern, uint32(id))
	}
	return pattern, len(fields), len(pattern) > 0
}

// answer runs one query and collects up to k results
func answer(idx *surf.Index, line string, opts batchOptions) queryOutcome {
	start := time.Now()
	var o queryOutcome

	pattern, length, ok := parsePattern(idx, line, opts.IDs)
	o.Length = length
	if ok {
		it := idx.TopK(pattern, opts.MultiOcc, opts.MatchOnly)
		o.Matched = it.Matched()
		for len(o.Results) < opts.K && it.Next() {
			o.Results = append(o.Results, it.Result())
		}
		if opts.Verify && !opts.MatchOnly {
			o.Err = idx.Verify(pattern, o.Results, opts.MultiOcc)
		}
	}
	o.Elapsed = time.Since(start)
	return o
}

// runBatch answers queries with up to opts.Workers goroutines. Outcomes keep
// the order of queries. Once a query exceeds opts.TimeLimit no further queries
// are started; queries already running finish. The time limit is ignored when
// verifying.
func runBatch(ctx context.Context, idx *surf.Index, queries []string, opts batchOptions, m *metrics.Metrics) ([]queryOutcome, batchSummary, error) {
	start := time.Now()
	outcomes := make([]queryOutcome, len(queries))
	started := make([]bool, len(queries))
	var tle atomic.Bool

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, line := range queries {
		if tle.Load() || ctx.Err() != nil {
			break
		}
		started[i] = true
		i, line := i, line
		g.Go(func() error {
			o := answer(idx, line, opts)
			o.Line = i + 1
			outcomes[i] = o
			if m != nil {
				m.ObserveQuery(o.Matched, o.Results, o.Elapsed)
			}
			if opts.TimeLimit > 0 && !opts.Verify && o.Elapsed > opts.TimeLimit {
				tle.Store(true)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, batchSummary{}, err
	}

	summary := batchSummary{TLE: tle.Load(), Elapsed: time.Since(start)}
	done := outcomes[:0]
	for i, o := range outcomes {
		if !started[i] {
			continue
		}
		done = append(done, o)
		summary.Queries++
		summary.QueryLen += o.Length
		summary.Reported += len(o.Results)
		for _, r := range o.Results {
			summary.SumWeight += r.Weight
		}
		if o.Err != nil {
			summary.Failed++
		}
	}
	return done, summary, nil
}

func writeSummary(w io.Writer, s batchSummary) {
	queries := max(s.Queries, 1)
	micros := s.Elapsed.Microseconds()
	perDoc := 0.0
	if s.Reported > 0 {
		perDoc = float64(micros) / float64(s.Reported)
	}
	fmt.Fprintf(w, "# TLE = %t\n", s.TLE)
	fmt.Fprintf(w, "# query_len = %d\n", s.QueryLen/queries)
	fmt.Fprintf(w, "# queries = %d\n", s.Queries)
	fmt.Fprintf(w, "# time_per_query = %d\n", micros/int64(queries))
	fmt.Fprintf(w, "# time_per_doc = %g\n", perDoc)
	fmt.Fprintf(w, "# check_sum = %d\n", s.Reported)
	fmt.Fprintf(w, "# check_sum_fdt = %d\n", s.SumWeight)
}

// fathom-bench measures virtual buffer performance over a generated test
// file: iteration, cached reads, edits, rebase pressure under live
// iterators, and flush back to disk.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/fathom-editor/fathom/internal/engine/persist"
	"github.com/fathom-editor/fathom/internal/engine/vbuf"
)

const (
	readSpan      = 64 * 1024
	smallEditSize = 100
)

type benchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r benchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-42s %12v  (%d ops, %.0f ops/sec) %s",
				r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-42s %12v  (%d ops, %.0f ops/sec)",
			r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec)
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-42s %12v  %s", r.Name, r.Duration.Round(time.Millisecond), r.Extra)
	}
	return fmt.Sprintf("%-42s %12v", r.Name, r.Duration.Round(time.Millisecond))
}

func main() {
	app := &cli.App{
		Name:  "fathom-bench",
		Usage: "benchmark the fathom virtual buffer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "size",
				Usage: "size of the generated test file",
				Value: "256MiB",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "read cache budget",
				Value: "16MiB",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "persistence backend to exercise (memory or file)",
				Value: "file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	if ctx.Bool("verbose") {
		log.SetLevel(log.DebugLevel)
	}

	size, err := humanize.ParseBytes(ctx.String("size"))
	if err != nil {
		return fmt.Errorf("bad --size: %w", err)
	}
	cacheSize, err := humanize.ParseBytes(ctx.String("cache"))
	if err != nil {
		return fmt.Errorf("bad --cache: %w", err)
	}

	fmt.Println("fathom virtual buffer benchmark")
	fmt.Println("===============================")
	fmt.Printf("File size:  %s\n", humanize.IBytes(size))
	fmt.Printf("Cache size: %s\n", humanize.IBytes(cacheSize))
	fmt.Printf("Backend:    %s\n", ctx.String("backend"))
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "fathom-bench-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "bench.txt")

	var results []benchResult

	log.Infof("generating %s test file", humanize.IBytes(size))
	res, err := generateTestFile(testFile, int(size))
	if err != nil {
		return err
	}
	results = append(results, res)

	layer, err := openLayer(ctx.String("backend"), testFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := vbuf.NewMetrics(reg)
	buf := vbuf.New(layer,
		vbuf.WithCacheSize(int(cacheSize)),
		vbuf.WithLogger(log.StandardLogger()),
		vbuf.WithMetrics(metrics),
	)

	benches := []struct {
		name string
		fn   func(*vbuf.VirtualBuffer) benchResult
	}{
		{"Sequential iteration", benchForwardIteration},
		{"Backward iteration", benchBackwardIteration},
		{"Random reads (64KiB, cold)", benchRandomReads},
		{"Random reads (64KiB, warm)", benchRandomReads},
		{"Small inserts (100 B x 1000)", benchSmallInserts},
		{"Small deletes (100 B x 1000)", benchSmallDeletes},
		{"Iterator rebase under edits", benchRebaseStorm},
	}
	for _, b := range benches {
		log.Debugf("running %s", b.name)
		r := b.fn(buf)
		r.Name = b.name
		fmt.Println(r)
		results = append(results, r)
	}

	if fp, ok := layer.(*persist.File); ok {
		r := benchFlush(fp)
		fmt.Println(r)
		results = append(results, r)
		if err := fp.Close(); err != nil {
			return err
		}
	}

	hits := counterValue(reg, "fathom_vbuf_cache_hits_total")
	misses := counterValue(reg, "fathom_vbuf_cache_misses_total")
	fmt.Println()
	fmt.Printf("Cache: %.0f hits, %.0f misses (%.1f%% hit rate)\n",
		hits, misses, 100*hits/(hits+misses))
	fmt.Printf("Final buffer size: %s\n", humanize.IBytes(uint64(buf.Len())))

	return nil
}

func openLayer(backend, path string) (persist.Layer, error) {
	switch backend {
	case "file":
		return persist.OpenFile(path)
	case "memory":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return persist.NewMemoryFromBytes(data), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// generateTestFile writes size bytes of line-shaped text to path.
func generateTestFile(path string, size int) (benchResult, error) {
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return benchResult{}, err
	}
	defer f.Close()

	lineNum := 1
	written := 0
	buf := make([]byte, 0, 1<<20)

	for written < size {
		buf = buf[:0]
		for len(buf) < cap(buf)-128 && written+len(buf) < size {
			buf = append(buf, fmt.Sprintf("%08d: ", lineNum)...)
			for i := 0; i < 60+lineNum%40; i++ {
				buf = append(buf, 'a'+byte((lineNum+i)%26))
			}
			buf = append(buf, '\n')
			lineNum++
		}
		if written+len(buf) > size {
			buf = buf[:size-written]
		}
		n, err := f.Write(buf)
		if err != nil {
			return benchResult{}, err
		}
		written += n
	}

	return benchResult{
		Name:     "Generate test file",
		Duration: time.Since(start),
		Extra:    fmt.Sprintf("%d lines", lineNum-1),
	}, nil
}

func benchForwardIteration(b *vbuf.VirtualBuffer) benchResult {
	it := b.IterAt(0)
	defer it.Close()

	ops := 0
	start := time.Now()
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		ops++
	}
	return benchResult{Duration: time.Since(start), Ops: ops}
}

func benchBackwardIteration(b *vbuf.VirtualBuffer) benchResult {
	it := b.IterAt(b.Len())
	defer it.Close()

	ops := 0
	start := time.Now()
	for {
		if _, ok := it.Prev(); !ok {
			break
		}
		ops++
	}
	return benchResult{Duration: time.Since(start), Ops: ops}
}

func benchRandomReads(b *vbuf.VirtualBuffer) benchResult {
	rng := rand.New(rand.NewSource(42))
	total := b.Len()

	ops := 0
	bytesRead := 0
	start := time.Now()
	for i := 0; i < 1000; i++ {
		offset := rng.Intn(total)
		data, err := b.Read(offset, readSpan)
		if err != nil {
			continue
		}
		bytesRead += len(data)
		ops++
	}
	return benchResult{
		Duration: time.Since(start),
		Ops:      ops,
		Extra:    fmt.Sprintf("%s read", humanize.IBytes(uint64(bytesRead))),
	}
}

func benchSmallInserts(b *vbuf.VirtualBuffer) benchResult {
	data := make([]byte, smallEditSize)
	for i := range data {
		data[i] = 'x'
	}

	ops := 0
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := b.Insert(i*1000, data); err != nil {
			break
		}
		ops++
	}
	return benchResult{Duration: time.Since(start), Ops: ops}
}

func benchSmallDeletes(b *vbuf.VirtualBuffer) benchResult {
	ops := 0
	start := time.Now()
	for i := 0; i < 1000; i++ {
		pos := i * 1000
		if err := b.Delete(pos, pos+smallEditSize); err != nil {
			break
		}
		ops++
	}
	return benchResult{Duration: time.Since(start), Ops: ops}
}

// benchRebaseStorm interleaves edits with reads from live iterators, so
// every iterator read pays for a rebase.
func benchRebaseStorm(b *vbuf.VirtualBuffer) benchResult {
	its := make([]*vbuf.ByteIterator, 8)
	for i := range its {
		its[i] = b.IterAt(i * 1000)
		defer its[i].Close()
	}

	data := []byte("rebase")
	ops := 0
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := b.Insert(i%b.Len(), data); err != nil {
			break
		}
		for _, it := range its {
			it.Next()
			ops++
		}
	}
	return benchResult{
		Duration: time.Since(start),
		Ops:      ops,
		Extra:    fmt.Sprintf("%d retained edits", b.EditLogLen()),
	}
}

func benchFlush(fp *persist.File) benchResult {
	start := time.Now()
	err := fp.Flush()

	r := benchResult{Name: "Flush to disk", Duration: time.Since(start)}
	if err != nil {
		r.Extra = fmt.Sprintf("ERROR: %v", err)
	}
	return r
}

// counterValue reads one counter out of the registry.
func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range fam.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
			}
		}
		return sum
	}
	return 0
}

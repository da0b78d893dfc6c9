// Command clamb interprets a Universal Lambda program: a bit-encoded
// lambda term read from one or more files followed by standard input,
// compiled to a combinator graph and reduced against the remaining
// input bytes to produce output bytes (§1, §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/irori/clamb"
)

const version = "clamb 1.0"

func main() {
	// glog writes INFO lines to files in a temporary directory unless
	// logtostderr is set; the -v1/-v2 diagnostics belong on stderr.
	flag.Set("logtostderr", "true")

	fs := flag.NewFlagSet("clamb", flag.ContinueOnError)
	var (
		help      = fs.Bool("h", false, "print help and exit")
		unbuf     = fs.Bool("u", false, "disable output buffering")
		parseOnly = fs.Bool("p", false, "parse and translate only; print the combinator graph")
		showVer   = fs.Bool("v", false, "print version and exit")
		_         = fs.Bool("v0", false, "quiet (default)")
		v1        = fs.Bool("v1", false, "print reduction/GC/stack stats after evaluation")
		v2        = fs.Bool("v2", false, "log each collection to standard error")
	)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: clamb [options] [input-file ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		glog.Fatalf("clamb: %s", clamb.NewRuntimeError(clamb.ErrUnknownOption, "unknown option: %s", err))
	}

	if *help {
		fs.Usage()
		os.Exit(0)
	}
	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg := clamb.NewRunConfig()
	cfg.Buffered = !*unbuf
	cfg.ParseOnly = *parseOnly
	switch {
	case *v2:
		cfg.Verbosity = clamb.VGC
		// heap.go's per-collection log line is a glog.V(2) call; glog
		// reads its own threshold from the "v" flag it registers on
		// flag.CommandLine in its init(), not from anything on fs.
		flag.Set("v", "2")
	case *v1:
		cfg.Verbosity = clamb.VStats
	}

	if err := run(cfg, fs.Args()); err != nil {
		glog.Fatalf("clamb: %s", err)
	}
}

func run(cfg *clamb.RunConfig, files []string) error {
	bits, err := clamb.NewBitReader(files, os.Stdin)
	if err != nil {
		return err
	}
	defer bits.Close()

	heap := clamb.NewHeap(cfg)
	stack := clamb.NewStack(cfg.StackSize)

	term, err := clamb.NewParser(bits, heap, stack).Parse()
	if err != nil {
		return err
	}
	program, err := clamb.NewTranslator(heap, stack).Translate(term)
	if err != nil {
		return err
	}

	if cfg.ParseOnly {
		fmt.Println(clamb.NewPrinter(heap).Sprint(program))
		return nil
	}

	out, flush := newOutput(os.Stdout, cfg.Buffered)
	defer flush()

	return evalProgram(cfg, heap, stack, bits, program, out)
}

// evalProgram builds the top-level term `WRITE (p (READ NIL))` and
// reduces it to drive the program's output (§4.6 "Top-level
// evaluation"). program is rooted on the stack across the two
// allocations that assemble the rest of the term around it.
func evalProgram(cfg *clamb.RunConfig, heap *clamb.Heap, stack *clamb.Stack, bits *clamb.BitReader, program clamb.Cell, out clamb.ByteWriter) error {
	if err := stack.Push(program); err != nil {
		return err
	}
	readNil, err := heap.Pair(clamb.NewCombinator(clamb.CombRead), clamb.Nil, stack)
	if err != nil {
		stack.Pop()
		return err
	}
	program = stack.Pop()

	applied, err := heap.Pair(program, readNil, stack)
	if err != nil {
		return err
	}
	root, err := heap.Pair(clamb.NewCombinator(clamb.CombWrite), applied, stack)
	if err != nil {
		return err
	}
	heap.AddRoot(clamb.RootOf(&root))

	reducer := clamb.NewReducer(heap, stack, bits, out)

	start := time.Now()
	runErr := reducer.Run(root)
	elapsed := time.Since(start)

	if cfg.Verbosity >= clamb.VStats {
		collections, gcTime := heap.Stats()
		glog.Infof("reductions: %d", reducer.Reductions())
		glog.Infof("eval time (excl. GC): %s", elapsed-gcTime)
		glog.Infof("GC time: %s (%d collections)", gcTime, collections)
		glog.Infof("max stack depth: %d", stack.MaxDepth())
	}
	return runErr
}

// unbufferedWriter adapts an io.Writer lacking WriteByte to
// clamb.ByteWriter for -u.
type unbufferedWriter struct {
	w *os.File
}

func (u unbufferedWriter) WriteByte(c byte) error {
	_, err := u.w.Write([]byte{c})
	return err
}

func newOutput(f *os.File, buffered bool) (out clamb.ByteWriter, flush func()) {
	if !buffered {
		return unbufferedWriter{f}, func() {}
	}
	bw := bufio.NewWriter(f)
	return bw, func() { bw.Flush() }
}

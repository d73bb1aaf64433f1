// Command inlinedag inlines and extracts content-addressed data graphs
// against a pluggable block store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/codec/dagcbor"
	"xdao.co/inlinedag/codec/rawcodec"
	"xdao.co/inlinedag/extractor"
	"xdao.co/inlinedag/inliner"
	"xdao.co/inlinedag/ipld"
	"xdao.co/inlinedag/storage"
	"xdao.co/inlinedag/storage/grpcstore"
	"xdao.co/inlinedag/storage/localfs"
	"xdao.co/inlinedag/storage/memstore"
	"xdao.co/inlinedag/storage/redisstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "inline":
		return cmdInline(args[1:], out, errOut)
	case "extract":
		return cmdExtract(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "stat":
		return cmdStat(args[1:], out, errOut)
	case "diag":
		return cmdDiag(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "inlinedag: inline/extract engine for content-addressed data graphs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  inlinedag inline  [store flags] [--max-depth N] [--max-nodes N] <file.cbor>")
	fmt.Fprintln(w, "  inlinedag extract [store flags] [--policy verify|strict|recompute] <file.cbor>")
	fmt.Fprintln(w, "  inlinedag put     [store flags] [--codec dag-cbor|raw] [--hash sha2-256|sha2-512|blake3] <file>")
	fmt.Fprintln(w, "  inlinedag get     [store flags] <cid>")
	fmt.Fprintln(w, "  inlinedag cid     [--codec dag-cbor|raw] [--hash sha2-256|sha2-512|blake3] <file>")
	fmt.Fprintln(w, "  inlinedag stat    <file.cbor>")
	fmt.Fprintln(w, "  inlinedag diag    <file.cbor>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Store flags:")
	fmt.Fprintln(w, "  --store localfs|redis|grpc|mem   backend (default localfs)")
	fmt.Fprintln(w, "  --dir <path>                      localfs block directory")
	fmt.Fprintln(w, "  --redis-url <url>                 redis connection URL")
	fmt.Fprintln(w, "  --grpc-target <host:port>         CAS gRPC service address")
	fmt.Fprintln(w, "  --verbose                         debug logging")
}

// storeFlags is the shared backend selection accepted by the store-touching
// subcommands.
type storeFlags struct {
	store      string
	dir        string
	redisURL   string
	grpcTarget string
	verbose    bool
}

func (sf *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.store, "store", "localfs", "block store backend: localfs, redis, grpc, mem")
	fs.StringVar(&sf.dir, "dir", ".inlinedag/blocks", "localfs block directory")
	fs.StringVar(&sf.redisURL, "redis-url", "redis://localhost:6379", "redis connection URL")
	fs.StringVar(&sf.grpcTarget, "grpc-target", "localhost:7411", "CAS gRPC service address")
	fs.BoolVar(&sf.verbose, "verbose", false, "debug logging")
}

func (sf *storeFlags) open(logger *log.Logger) (storage.CAS, func() error, error) {
	switch sf.store {
	case "mem":
		return memstore.New(), nil, nil
	case "localfs":
		cas, err := localfs.New(sf.dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened localfs store", "dir", sf.dir)
		return cas, nil, nil
	case "redis":
		cas, err := redisstore.New(redisstore.Options{URL: sf.redisURL})
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened redis store", "url", sf.redisURL)
		return cas, cas.Close, nil
	case "grpc":
		client, err := grpcstore.Dial(sf.grpcTarget, grpcstore.DialOptions{Timeout: 5 * time.Second})
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened grpc store", "target", sf.grpcTarget)
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sf.store)
	}
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdInline(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inline", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	sf.register(fs)
	maxDepth := fs.Int("max-depth", 64, "maximum link nesting")
	maxNodes := fs.Int("max-nodes", 1<<20, "maximum visited nodes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := newLogger(errOut, sf.verbose)

	root, ok := readNode(fs, errOut)
	if !ok {
		return 2
	}
	cas, closeFn, err := sf.open(logger)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	defer closeStore(closeFn, logger)

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	inlined, err := inliner.Inline(ctx, root, cas, inliner.Options{
		Limits: inliner.Limits{MaxDepth: *maxDepth, MaxNodes: *maxNodes},
	})
	if err != nil {
		fmt.Fprintf(errOut, "inline: %v\n", err)
		return 1
	}
	logger.Debug("inlined", "nodes", ipld.Count(inlined), "elapsed", time.Since(start))

	return writeNode(inlined, out, errOut)
}

func cmdExtract(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	sf.register(fs)
	policyName := fs.String("policy", "verify", "integrity policy: verify, strict, recompute")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := newLogger(errOut, sf.verbose)

	var policy extractor.Policy
	switch *policyName {
	case "verify":
		policy = extractor.Verify
	case "strict":
		policy = extractor.Strict
	case "recompute":
		policy = extractor.Recompute
	default:
		fmt.Fprintf(errOut, "unknown policy %q\n", *policyName)
		return 2
	}

	root, ok := readNode(fs, errOut)
	if !ok {
		return 2
	}
	cas, closeFn, err := sf.open(logger)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	defer closeStore(closeFn, logger)

	ctx, cancel := signalContext()
	defer cancel()

	split, err := extractor.Extract(ctx, root, cas, extractor.Options{Policy: policy})
	var integrity *extractor.IntegrityError
	if errors.As(err, &integrity) {
		for _, m := range integrity.Mismatches {
			logger.Warn("integrity mismatch", "original", m.Original, "computed", m.Computed)
		}
	} else if err != nil {
		fmt.Fprintf(errOut, "extract: %v\n", err)
		return 1
	}

	return writeNode(split, out, errOut)
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	sf.register(fs)
	codecName := fs.String("codec", "dag-cbor", "block codec tag")
	hashName := fs.String("hash", "sha2-256", "block multihash tag")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := newLogger(errOut, sf.verbose)

	data, ok := readFileArg(fs, errOut)
	if !ok {
		return 2
	}
	codecTag, hashTag, err := parseTags(*codecName, *hashName)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	id, err := cidutil.NewCID(codecTag, hashTag, data)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}

	cas, closeFn, err := sf.open(logger)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	defer closeStore(closeFn, logger)

	ctx, cancel := signalContext()
	defer cancel()

	if err := cas.Put(ctx, id, data); err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := newLogger(errOut, sf.verbose)

	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "get: exactly one CID argument required")
		return 2
	}
	id, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	cas, closeFn, err := sf.open(logger)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	defer closeStore(closeFn, logger)

	ctx, cancel := signalContext()
	defer cancel()

	data, err := cas.Resolve(ctx, id)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}
	if _, err := out.Write(data); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	codecName := fs.String("codec", "dag-cbor", "block codec tag")
	hashName := fs.String("hash", "sha2-256", "block multihash tag")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, ok := readFileArg(fs, errOut)
	if !ok {
		return 2
	}
	codecTag, hashTag, err := parseTags(*codecName, *hashName)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	id, err := cidutil.NewCID(codecTag, hashTag, data)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdStat(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("stat", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	root, ok := readNode(fs, errOut)
	if !ok {
		return 2
	}
	var total, links, inlinedCount int
	it := ipld.NewPostOrderIter(root)
	for n, next := it.Next(); next; n, next = it.Next() {
		total++
		switch n.Kind() {
		case ipld.KindLink:
			links++
		case ipld.KindInlined:
			inlinedCount++
		}
	}
	fmt.Fprintf(out, "nodes: %d\nlinks: %d\ninlined: %d\n", total, links, inlinedCount)
	return 0
}

func cmdDiag(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, ok := readFileArg(fs, errOut)
	if !ok {
		return 2
	}
	diag, err := dagcbor.Diagnose(data)
	if err != nil {
		fmt.Fprintf(errOut, "diag: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, diag)
	return 0
}

func readFileArg(fs *flag.FlagSet, errOut io.Writer) ([]byte, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "%s: exactly one file argument required\n", fs.Name())
		return nil, false
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", fs.Arg(0), err)
		return nil, false
	}
	return data, true
}

func readNode(fs *flag.FlagSet, errOut io.Writer) (*ipld.Node, bool) {
	data, ok := readFileArg(fs, errOut)
	if !ok {
		return nil, false
	}
	n, err := dagcbor.Codec{}.Decode(data)
	if err != nil {
		fmt.Fprintf(errOut, "decode %s: %v\n", fs.Arg(0), err)
		return nil, false
	}
	return n, true
}

func writeNode(n *ipld.Node, out io.Writer, errOut io.Writer) int {
	data, err := dagcbor.Codec{}.Encode(n)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	if _, err := out.Write(data); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func parseTags(codecName, hashName string) (uint64, uint64, error) {
	var codecTag uint64
	switch strings.ToLower(codecName) {
	case "dag-cbor", "dagcbor":
		codecTag = dagcbor.Tag
	case "raw":
		codecTag = rawcodec.Tag
	default:
		return 0, 0, fmt.Errorf("unknown codec %q", codecName)
	}

	var hashTag uint64
	switch strings.ToLower(hashName) {
	case "sha2-256":
		hashTag = multihash.SHA2_256
	case "sha2-512":
		hashTag = multihash.SHA2_512
	case "blake3":
		hashTag = multihash.BLAKE3
	default:
		return 0, 0, fmt.Errorf("unknown hash %q", hashName)
	}
	return codecTag, hashTag, nil
}

func closeStore(closeFn func() error, logger *log.Logger) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.Warn("close store", "err", err)
	}
}

// Command inlinedag-casd serves a block store over the CAS gRPC service.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"

	"xdao.co/inlinedag/storage"
	"xdao.co/inlinedag/storage/grpcstore"
	"xdao.co/inlinedag/storage/localfs"
	"xdao.co/inlinedag/storage/memstore"
	"xdao.co/inlinedag/storage/redisstore"
)

func main() {
	fs := flag.NewFlagSet("inlinedag-casd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7411", "listen address")
	backend := fs.String("backend", "localfs", "block store backend: localfs, redis, mem")
	dir := fs.String("dir", ".inlinedag/blocks", "localfs block directory")
	redisURL := fs.String("redis-url", "redis://localhost:6379", "redis connection URL")
	verbose := fs.Bool("verbose", false, "debug logging")
	_ = fs.Parse(os.Args[1:])

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "inlinedag-casd",
	})

	cas, closeFn, err := openBackend(*backend, *dir, *redisURL)
	if err != nil {
		logger.Error("open backend", "backend", *backend, "err", err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				logger.Warn("close backend", "err", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Error("listen", "addr", *listen, "err", err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcstore.RegisterCASServer(s, &grpcstore.Server{CAS: cas})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Info("shutting down", "signal", sig)
		s.GracefulStop()
	}()

	logger.Info("listening", "addr", lis.Addr().String(), "backend", *backend)
	if err := s.Serve(lis); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}

func openBackend(backend, dir, redisURL string) (storage.CAS, func() error, error) {
	switch backend {
	case "mem":
		return memstore.New(), nil, nil
	case "localfs":
		cas, err := localfs.New(dir)
		if err != nil {
			return nil, nil, err
		}
		return cas, nil, nil
	case "redis":
		cas, err := redisstore.New(redisstore.Options{URL: redisURL})
		if err != nil {
			return nil, nil, err
		}
		return cas, cas.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command sharedhttp fetches URLs with the process-wide HTTP client.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"

	corehttp "github.com/juju/sharedhttp/core/http"
	"github.com/juju/sharedhttp/internal/httpclient"
	"github.com/juju/sharedhttp/internal/proxy"
)

var logger = loggo.GetLogger("sharedhttp.cmd")

type commandLineArgs struct {
	cacheDir      string
	rawProxy      string
	userAgent     string
	insecure      bool
	caCertFile    string
	reinit        bool
	private       bool
	metrics       bool
	loggingConfig string
	urls          []string
}

func commandLine(args []string, stderr io.Writer) (commandLineArgs, error) {
	flags := gnuflag.NewFlagSet("sharedhttp", gnuflag.ContinueOnError)
	flags.SetOutput(stderr)
	var a commandLineArgs
	flags.StringVar(&a.cacheDir, "cache-dir", "",
		"directory for responses cached by the shared client (in memory when empty)")
	flags.StringVar(&a.rawProxy, "proxy", "",
		"proxy URL (http://, socks5:// or direct://); read from the environment when empty")
	flags.StringVar(&a.userAgent, "user-agent", httpclient.DefaultUserAgent,
		"User-Agent sent with every request")
	flags.BoolVar(&a.insecure, "insecure", false,
		"accept any TLS certificate and host name")
	flags.StringVar(&a.caCertFile, "ca-cert", "",
		"PEM file with extra CA certificates to trust")
	flags.BoolVar(&a.reinit, "reinit", false,
		"rebuild the shared client before fetching")
	flags.BoolVar(&a.private, "private", false,
		"use a private client that shares no cookies or cache")
	flags.BoolVar(&a.metrics, "metrics", false,
		"print request metrics after fetching")
	flags.StringVar(&a.loggingConfig, "logging-config", "<root>=WARNING",
		"logging configuration, e.g. <root>=DEBUG")

	if err := flags.Parse(true, args); err != nil {
		return a, errors.Trace(err)
	}
	a.urls = flags.Args()
	if len(a.urls) == 0 {
		return a, errors.New("no URL specified")
	}
	return a, nil
}

func setupLogging(w io.Writer, config string) error {
	loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(w, logFormatter))
	return loggo.ConfigureLoggers(config)
}

func logFormatter(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, entry.Module, entry.Message)
}

// settingsFromArgs turns the command line into client settings. Calls are
// recorded by collector when it is not nil.
func settingsFromArgs(a commandLineArgs, collector *httpclient.Collector) (*httpclient.Settings, error) {
	cfg := httpclient.Config{
		CacheDirectory:        a.cacheDir,
		UserAgent:             a.userAgent,
		AcceptAllCertificates: a.insecure,
	}
	if collector != nil {
		cfg.Interceptors = []httpclient.Interceptor{collector.Interceptor()}
	}
	if a.caCertFile != "" {
		data, err := os.ReadFile(a.caCertFile)
		if err != nil {
			return nil, errors.Annotate(err, "reading CA certificates")
		}
		cfg.CACertificates = []string{string(data)}
	}

	var err error
	if a.rawProxy != "" {
		cfg.Proxy, err = proxy.ParseURL(a.rawProxy)
	} else {
		cfg.Proxy, err = proxy.DetectFromEnvironment()
	}
	if err != nil {
		return nil, errors.Annotate(err, "configuring proxy")
	}
	return httpclient.NewSettings(cfg)
}

// client returns the client the command fetches with.
func client(manager *httpclient.Manager, a commandLineArgs) (corehttp.HTTPClient, error) {
	if a.private {
		b, err := manager.NewBuilder()
		if err != nil {
			return nil, errors.Trace(err)
		}
		return b.Build(), nil
	}
	if a.reinit {
		if err := manager.Reinit(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return corehttp.ClientGetter(manager)
}

// fetch requests url and writes a status line for the response to w.
func fetch(ctx context.Context, client corehttp.HTTPClient, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Trace(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return errors.Annotatef(err, "reading %s", url)
	}
	fmt.Fprintf(w, "%s %s %s\n", url, resp.Status, humanize.Bytes(uint64(n)))
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a, err := commandLine(args, stderr)
	if err == gnuflag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return 2
	}
	if err := setupLogging(stderr, a.loggingConfig); err != nil {
		fmt.Fprintf(stderr, "ERROR setting up logging: %v\n", err)
		return 2
	}

	var collector *httpclient.Collector
	registry := prometheus.NewRegistry()
	if a.metrics {
		collector = httpclient.NewMetricsCollector()
		registry.MustRegister(collector)
	}
	settings, err := settingsFromArgs(a, collector)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	c, err := client(httpclient.NewManager(settings), a)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	code := 0
	for _, url := range a.urls {
		if err := fetch(ctx, c, url, stdout); err != nil {
			logger.Errorf("fetching %s: %v", url, err)
			code = 1
		}
	}
	if a.metrics {
		if err := printMetrics(stdout, registry); err != nil {
			logger.Errorf("%v", err)
			code = 1
		}
	}
	return code
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

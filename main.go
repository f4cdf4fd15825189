package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adaricorp/mesh-prober/discovery"
	"github.com/adaricorp/mesh-prober/echo"
	"github.com/adaricorp/mesh-prober/metrics"
	"github.com/adaricorp/mesh-prober/probe"
	"github.com/adaricorp/mesh-prober/tester"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"gopkg.in/yaml.v3"
)

const (
	binName = "mesh_prober"

	defaultMeshPort    = 7800
	defaultUDPInterval = 10 * time.Second
	defaultTCPInterval = 10 * time.Second
	defaultDNSInterval = 30 * time.Second
	defaultTimeout     = 5 * time.Second
	defaultUDPPackets  = 10
)

var (
	configFilePath    *string
	httpListenAddress *string
	logger            *slog.Logger
	logLevel          *string
	slogLevel         *slog.LevelVar = new(slog.LevelVar)
)

// Print program usage
func printUsage(fs ff.Flags) {
	fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
	os.Exit(1)
}

// Print program version
func printVersion() {
	fmt.Printf("%s v%s built on %s\n", binName, version.Version, version.BuildDate)
	os.Exit(0)
}

func init() {
	fs := ff.NewFlagSet(binName)
	displayVersion := fs.BoolLong("version", "Print version")
	configFilePath = fs.StringLong(
		"config-file",
		"mesh-prober.yml",
		"Path to configuration file",
	)
	httpListenAddress = fs.StringLong(
		"http-listen-address",
		"localhost:8020",
		"Listen address for admin HTTP server",
	)
	logLevel = fs.StringEnumLong(
		"log-level",
		"Log level: debug, info, warn, error",
		"info",
		"debug",
		"error",
		"warn",
	)

	err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix(strings.ToUpper(binName)),
		ff.WithEnvVarSplit(" "),
	)
	if err != nil {
		printUsage(fs)
	}

	if *displayVersion {
		printVersion()
	}

	switch *logLevel {
	case "debug":
		slogLevel.Set(slog.LevelDebug)
	case "info":
		slogLevel.Set(slog.LevelInfo)
	case "warn":
		slogLevel.Set(slog.LevelWarn)
	case "error":
		slogLevel.Set(slog.LevelError)
	}

	logger = slog.New(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel,
		}),
	)
	slog.SetDefault(logger)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)

	configFile, err := os.ReadFile(*configFilePath)
	if err != nil {
		slog.Error(
			"Couldn't open configuration file",
			"config_file",
			*configFilePath,
			"error",
			err.Error(),
		)
		os.Exit(1)
	}

	config := Config{}
	if err := yaml.Unmarshal(configFile, &config); err != nil {
		slog.Error(
			"Couldn't parse configuration file",
			"config_file",
			*configFilePath,
			"error",
			err.Error(),
		)
		os.Exit(1)
	}

	applyDefaults(&config)

	if err := validate(config); err != nil {
		slog.Error(
			"Invalid configuration",
			"config_file",
			*configFilePath,
			"error",
			err.Error(),
		)
		os.Exit(1)
	}

	self := probe.Agent{Name: config.Name}
	if config.Mesh.Addr != nil {
		self.Addr = config.Mesh.Addr.Addr
	}

	resolvers := []string{}
	for _, resolver := range config.DNS.Resolvers {
		resolvers = append(resolvers, resolver.String())
	}

	registry := prometheus.NewRegistry()
	promSink := metrics.NewPrometheusSink(registry)
	statusSink := metrics.NewStatusSink()
	sink := metrics.MultiSink{promSink, statusSink}

	pool := probe.NewPool(config.Mesh.Port, logger)
	prober := probe.NewProber(self, probe.Config{
		Port:       config.Mesh.Port,
		UDPTimeout: config.UDP.Timeout.Duration,
		UDPPackets: config.UDP.Packets,
		TCPTimeout: config.TCP.Timeout.Duration,
		DNSTimeout: config.DNS.Timeout.Duration,
		Resolvers:  resolvers,
		Hosts:      config.DNS.Hosts,
	}, pool, sink, logger)

	var disc discovery.Discovery
	if config.Discovery.Registry != "" {
		disc = discovery.NewRegistry(
			config.Discovery.Registry,
			config.Discovery.Timeout.Duration,
		)
	} else {
		peers := []probe.Agent{}
		for _, peer := range config.Discovery.Peers {
			peers = append(peers, probe.Agent{Name: peer.Name, Addr: peer.Addr.Addr})
		}
		disc = discovery.NewStatic(peers)
	}

	responder, err := echo.StartResponder(fmt.Sprintf(":%d", config.Mesh.Port))
	if err != nil {
		slog.Error("Couldn't start echo responder", "error", err.Error())
		os.Exit(1)
	}
	slog.Info("Echo responder listening", "addr", responder.LocalAddr())

	meshMux := http.NewServeMux()
	meshMux.HandleFunc("/readiness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	go func() {
		addr := fmt.Sprintf(":%d", config.Mesh.Port)
		if err := http.ListenAndServe(addr, meshMux); err != nil {
			logger.Error("Error starting mesh HTTP server", "error", err.Error())
			os.Exit(1)
		}
	}()

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(statusSink.Statuses()); err != nil {
			logger.Error("Error writing HTTP response", "error", err.Error())
			http.Error(w, "Failed to render data", http.StatusInternalServerError)
		}
	})
	adminMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(*httpListenAddress, adminMux); err != nil {
			logger.Error("Error starting admin HTTP server", "error", err.Error())
			os.Exit(1)
		}
	}()

	t := tester.New(tester.Config{
		UDPInterval: config.UDP.Interval.Duration,
		TCPInterval: config.TCP.Interval.Duration,
		DNSInterval: config.DNS.Interval.Duration,
	}, prober, disc, sink, logger)

	t.Start(ctx)
	slog.Info("Mesh prober started", "name", self.Name, "port", config.Mesh.Port)

	<-exitSignal
	slog.Info("Shutting down")

	t.Stop()
	t.Wait()
	responder.Close()
	pool.Close()
}

func applyDefaults(config *Config) {
	if config.Name == "" {
		if hostname, err := os.Hostname(); err == nil {
			config.Name = hostname
		}
	}

	if config.Mesh.Port == 0 {
		config.Mesh.Port = defaultMeshPort
	}

	if config.UDP.Interval.Duration == 0 {
		config.UDP.Interval = Duration{defaultUDPInterval}
	}
	if config.UDP.Timeout.Duration == 0 {
		config.UDP.Timeout = Duration{defaultTimeout}
	}
	if config.UDP.Packets == 0 {
		config.UDP.Packets = defaultUDPPackets
	}

	if config.TCP.Interval.Duration == 0 {
		config.TCP.Interval = Duration{defaultTCPInterval}
	}
	if config.TCP.Timeout.Duration == 0 {
		config.TCP.Timeout = Duration{defaultTimeout}
	}

	if config.DNS.Interval.Duration == 0 {
		config.DNS.Interval = Duration{defaultDNSInterval}
	}
	if config.DNS.Timeout.Duration == 0 {
		config.DNS.Timeout = Duration{defaultTimeout}
	}
	if len(config.DNS.Resolvers) == 0 {
		config.DNS.Resolvers = []AddrPort{
			{netip.MustParseAddrPort("8.8.8.8:53")},
			{netip.MustParseAddrPort("1.1.1.1:53")},
		}
	}

	if config.Discovery.Timeout.Duration == 0 {
		config.Discovery.Timeout = Duration{defaultTimeout}
	}
}

func validate(config Config) error {
	seen := map[netip.Addr]bool{}
	for _, peer := range config.Discovery.Peers {
		if seen[peer.Addr.Addr] {
			return fmt.Errorf("peer is defined more than once: %s", peer.Addr)
		}
		seen[peer.Addr.Addr] = true
	}

	return nil
}

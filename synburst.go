// synburst sends a fixed number of TCP SYN packets through a raw socket,
// one at a time, and reports how long each send call takes, bucketed by
// second. With -monitor it instead checks that the target keeps accepting
// TCP connections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"synburst/logging"
	"synburst/monitor"
	"synburst/packet"
	"synburst/report"
	"synburst/runner"
	"synburst/stats"
	"synburst/transmit"
)

// Exit codes.
const (
	exitOK        = 0
	exitSocket    = 1
	exitPrivilege = 2
	exitSockopt   = 3
	exitOutput    = 4
	exitRun       = 5
	exitUsage     = 64
)

var (
	sourceAddr = flag.String("source", runner.DefaultSource, "Source IPv4 address written into every packet")
	port       = flag.Int("port", int(packet.DefaultDestPort), "Destination TCP port")
	payloadLen = flag.Int("payload", packet.DefaultPayloadLen, "Payload length in bytes")
	loops      = flag.Int("loops", runner.DefaultLoops, "Number of loops")
	perLoop    = flag.Int("packets-per-loop", runner.DefaultPacketsPerLoop, "Packets sent per loop")
	capacity   = flag.Int("capacity", stats.DefaultCapacity, "Number of one-second statistics buckets")
	seed       = flag.Uint64("seed", 0, "Seed for source ports and IP IDs, 0 seeds from the clock")
	logPath    = flag.String("log", "syns_results.txt", "Text log of every sent packet and the summary")
	csvPath    = flag.String("csv", "syns_results.csv", "CSV file of every sent packet")
	pcapPath   = flag.String("pcap", "", "Optional pcap file capturing every sent packet")
	metrics    = flag.Bool("metrics", false, "Serve Prometheus metrics on -prometheusx.listen-address")
	logJSON    = flag.Bool("log.json", false, "Log JSON entries instead of console lines")

	monitorMode     = flag.Bool("monitor", false, "Check target reachability with TCP connects instead of sending SYN packets")
	monitorCount    = flag.Int("monitor.count", monitor.DefaultCount, "Number of connection attempts")
	monitorInterval = flag.Duration("monitor.interval", monitor.DefaultInterval, "Time between connection attempts")
	monitorTimeout  = flag.Duration("monitor.timeout", monitor.DefaultTimeout, "Connection attempt timeout")
	monitorLog      = flag.String("monitor.log", "pings_results.txt", "Text log of the monitor results")
	monitorCSV      = flag.String("monitor.csv", "pings_results.csv", "CSV file of the monitor results")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [target-ipv4]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from environment")
	logging.Setup(os.Stderr, *logJSON, log.InfoLevel)

	if *monitorMode {
		os.Exit(runMonitor(flag.Args()))
	}
	os.Exit(runSender(flag.Args()))
}

// getTarget returns the optional positional target address.
func getTarget(args []string) (string, error) {
	switch len(args) {
	case 0:
		return runner.DefaultTarget, nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected at most one target address, got %d arguments", len(args))
	}
}

func getConfig(args []string) (runner.Config, error) {
	cfg := runner.DefaultConfig()
	target, err := getTarget(args)
	if err != nil {
		return cfg, err
	}
	if cfg.Destination, err = runner.ParseIPv4(target); err != nil {
		return cfg, err
	}
	if cfg.Source, err = runner.ParseIPv4(*sourceAddr); err != nil {
		return cfg, err
	}
	if *port < 0 || *port > 65535 {
		return cfg, fmt.Errorf("port %d out of range [0, 65535]", *port)
	}
	cfg.DestinationPort = uint16(*port)
	cfg.PayloadLen = *payloadLen
	cfg.Loops = *loops
	cfg.PacketsPerLoop = *perLoop
	cfg.Capacity = *capacity
	cfg.Seed = *seed
	return cfg, cfg.Validate()
}

// exitCode maps setup errors to their exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, transmit.ErrPermission):
		return exitPrivilege
	case errors.Is(err, transmit.ErrHeaderIncluded):
		return exitSockopt
	case errors.Is(err, transmit.ErrSocket):
		return exitSocket
	case errors.Is(err, report.ErrCreate):
		return exitOutput
	default:
		return exitRun
	}
}

func fail(err error, msg string) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	logging.Logger.WithError(err).Error(msg)
	return exitCode(err)
}

func runSender(args []string) int {
	cfg, err := getConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return exitUsage
	}
	if err := transmit.CheckPrivileges(); err != nil {
		return fail(err, "Run with sudo")
	}

	sock, err := transmit.Open(cfg.Destination, cfg.DestinationPort)
	if err != nil {
		return fail(err, "Could not create raw socket")
	}
	defer sock.Close()

	results, err := report.CreateResults(*logPath, *csvPath)
	if err != nil {
		return fail(err, "Could not open output files")
	}
	defer results.Close()

	var sender transmit.Sender = sock
	if *pcapPath != "" {
		rec, err := transmit.NewRecorder(sock, *pcapPath)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", report.ErrCreate, err), "Could not open capture file")
		}
		defer func() {
			if err := rec.Close(); err != nil || rec.Err != nil {
				logging.Logger.WithError(errors.Join(err, rec.Err)).Warn("capture incomplete")
			}
		}()
		sender = rec
	}

	if *metrics {
		srv := prometheusx.MustServeMetrics()
		defer srv.Close()
	}

	logger := logging.Logger.WithField("run", uuid.New().String())
	logger.WithFields(log.Fields{
		"target":   net.IP(cfg.Destination[:]).String(),
		"source":   net.IP(cfg.Source[:]).String(),
		"port":     cfg.DestinationPort,
		"attempts": cfg.Attempts(),
	}).Info("starting")

	result, err := runner.New(cfg, sender, results).WithLogger(logger).Run()
	if err != nil && !errors.Is(err, stats.ErrNoData) {
		return fail(err, "Run aborted")
	}
	if err := results.Summary(result.Summary, result.Elapsed); err != nil {
		return fail(err, "Could not write summary")
	}
	if err := results.Close(); err != nil {
		return fail(err, "Could not close output files")
	}
	fmt.Printf("Done. Total packets sent: %d\n", result.Summary.TotalPackets)
	return exitOK
}

func runMonitor(args []string) int {
	target, err := getTarget(args)
	if err != nil || *port < 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "invalid target or port")
		flag.Usage()
		return exitUsage
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pings, err := report.CreatePings(*monitorLog, *monitorCSV)
	if err != nil {
		return fail(err, "Could not open output files")
	}
	defer pings.Close()

	cfg := monitor.DefaultConfig(net.JoinHostPort(target, strconv.Itoa(*port)))
	cfg.Count = *monitorCount
	cfg.Interval = *monitorInterval
	cfg.Timeout = *monitorTimeout
	logging.Logger.WithField("address", cfg.Address).Info("starting monitor, press Ctrl+C to stop")

	rep, err := monitor.Run(ctx, cfg, &net.Dialer{}, pings)
	if err != nil {
		return fail(err, "Monitor aborted")
	}
	if ctx.Err() != nil {
		logging.Logger.Info("monitoring interrupted, saving results so far")
	}
	if err := pings.Summary(rep); err != nil {
		return fail(err, "Could not write summary")
	}
	if err := pings.Close(); err != nil {
		return fail(err, "Could not close output files")
	}
	fmt.Printf("Results saved to %s and %s\n", *monitorLog, *monitorCSV)
	return exitOK
}

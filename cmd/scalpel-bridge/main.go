// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command scalpel-bridge is the bridge's single static binary: it reads
// one HCL (or JSON) config file, wires up both forwarding directions,
// and runs until SIGINT/SIGTERM requests a cooperative stop. There is
// no separate control plane; restart and crash policy are left to
// whatever process manager supervises it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/scalpel/internal/bridge"
	"grimm.is/scalpel/internal/classifier"
	"grimm.is/scalpel/internal/config"
	scalpelerrors "grimm.is/scalpel/internal/errors"
	"grimm.is/scalpel/internal/engine"
	"grimm.is/scalpel/internal/indicator"
	"grimm.is/scalpel/internal/logging"
	"grimm.is/scalpel/internal/netenv"
	"grimm.is/scalpel/internal/probe"
	"grimm.is/scalpel/internal/qos"
	"grimm.is/scalpel/internal/ring"
	"grimm.is/scalpel/internal/shaper"
	"grimm.is/scalpel/internal/statusapi"
	"grimm.is/scalpel/internal/telemetry"
	"grimm.is/scalpel/internal/txsink"
)

const (
	defaultConfigPath = "/etc/scalpel/bridge.hcl"
	workerPriority    = 50 // SCHED_FIFO priority for both direction workers
	defaultRateMbps   = 500
	rateOfProbeFactor = 0.9
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "path to the bridge's HCL or JSON config file")
	foreground := flag.Bool("foreground", false, "log to stdout instead of the configured log directory")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log, closeLog := setupLogging(cfg, *foreground)
	defer closeLog()

	runID := uuid.NewString()
	log.Info("starting", "run_id", runID)

	// Non-blocking AF_PACKET sends against a peer that has gone away can
	// raise SIGPIPE on some kernels; the bridge already treats send
	// failures as silent drops, so the signal itself must never fire.
	signal.Ignore(syscall.SIGPIPE)

	if err := bootstrap(cfg, log, runID); err != nil {
		log.WithError(err).Error("startup failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// setupLogging builds the process-wide logger per cfg and -foreground,
// returning a cleanup func that closes any opened log file.
func setupLogging(cfg *config.Config, foreground bool) (*logging.Logger, func()) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if !foreground && cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err == nil {
			path := filepath.Join(cfg.LogDir, "bridge.log")
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				out = f
				closeFn = func() { f.Close() }
			}
		}
	}

	if cfg.Syslog.Enabled {
		if w, err := logging.NewSyslogWriter(logging.SyslogConfig{
			Enabled:  true,
			Host:     cfg.Syslog.Host,
			Port:     cfg.Syslog.Port,
			Protocol: cfg.Syslog.Protocol,
			Tag:      cfg.Syslog.Tag,
		}); err == nil {
			out = io.MultiWriter(out, w)
		}
	}

	l := logging.New(logging.Config{Output: out, Level: logging.LevelInfo})
	logging.SetDefault(l)
	return l.WithComponent("main"), closeFn
}

// bootstrap wires every component together and blocks until a stop
// signal arrives.
func bootstrap(cfg *config.Config, log *logging.Logger, runID string) error {
	tel := telemetry.New()
	registry := prometheus.NewRegistry()
	if err := telemetry.RegisterMetrics(registry, tel); err != nil {
		return scalpelerrors.Wrap(err, scalpelerrors.KindInit, "register metrics")
	}

	clA := classifier.New(classifierConfig(cfg), nil)
	clB := classifier.New(classifierConfig(cfg), nil)

	logGatewayInfo(log)

	rateMbps := resolveShaperRate(cfg, clA, tel, log)

	dirA, err := openDirection(cfg.InterfaceA.Name, cfg.InterfaceB.Name, clA, tel, telemetry.DirectionA, rateMbps, cfg.Shaper.CapacityFrames)
	if err != nil {
		return err
	}
	defer dirA.close()

	dirB, err := openDirection(cfg.InterfaceB.Name, cfg.InterfaceA.Name, clB, tel, telemetry.DirectionB, rateMbps, cfg.Shaper.CapacityFrames)
	if err != nil {
		return err
	}
	defer dirB.close()

	workerA := bridge.Worker{Name: "a-to-b", Core: cfg.InterfaceA.Core, Priority: workerPriority, Engine: dirA.engine}
	workerB := bridge.Worker{Name: "b-to-a", Core: cfg.InterfaceB.Core, Priority: workerPriority, Engine: dirB.engine}
	go workerA.Run(log.WithComponent("bridge"))
	go workerB.Run(log.WithComponent("bridge"))

	ind := indicator.SysfsIndicator{}
	ind.Green()
	defer ind.Off()

	watchdogTick, stallThreshold := watchdogDurations(cfg, log)
	watchdog := bridge.NewWatchdogWithTick(tel, log.WithComponent("watchdog"), nil, watchdogTick, stallThreshold, ind)
	go watchdog.Run()
	defer watchdog.Stop()

	if cfg.QoSBackstop.Enabled {
		mgr := qos.NewManager(log.WithComponent("qos"))
		if err := mgr.ApplyConfig(cfg); err != nil {
			log.WithError(err).Warn("qos backstop not applied, continuing without it")
		}
	}

	var statusSrv *statusapi.Server
	if cfg.Metrics.Enabled {
		statusSrv = statusapi.New(cfg.Metrics.Listen, registry, tel, log.WithComponent("statusapi"), runID)
		statusSrv.Start()
	}

	waitForStop(log)

	dirA.engine.Stop()
	dirB.engine.Stop()
	if statusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusSrv.Stop(ctx); err != nil {
			log.WithError(err).Warn("status api shutdown")
		}
	}

	return nil
}

func classifierConfig(cfg *config.Config) classifier.Config {
	c := classifier.Config{
		LargeThreshold:  cfg.Classifier.LargeThreshold,
		PunishTrigger:   cfg.Classifier.PunishTrigger,
		CleanupInterval: cfg.Classifier.CleanupInterval,
		GamePorts:       cfg.Classifier.GamePorts,
	}
	if cfg.Classifier.GamePortRange != nil {
		c.GamePortFrom = cfg.Classifier.GamePortRange.From
		c.GamePortTo = cfg.Classifier.GamePortRange.To
	}
	return c
}

// resolveShaperRate honors an explicit override, otherwise probes this
// CPU's classification throughput and takes rateOfProbeFactor of it, or
// falls back to defaultRateMbps if probing is inconclusive.
func resolveShaperRate(cfg *config.Config, cl *classifier.Classifier, tel *telemetry.Telemetry, log *logging.Logger) float64 {
	if cfg.Shaper.MbpsOverride > 0 {
		return cfg.Shaper.MbpsOverride
	}

	tel.SetProbing(true)
	defer tel.SetProbing(false)

	prober := probe.NewWindowProber(cl)
	ctx, cancel := context.WithTimeout(context.Background(), prober.Window+time.Second)
	defer cancel()

	mbps, err := prober.ProbeInternal(ctx)
	if err != nil {
		log.WithError(err).Warn("internal capacity probe failed, falling back to default shaper rate")
		return defaultRateMbps
	}
	tel.SetInternalLimitMbps(mbps)
	log.Info("internal capacity probe complete", "mbps", mbps)
	return mbps * rateOfProbeFactor
}

// watchdogDurations parses cfg.Watchdog's HCL-decoded duration strings,
// falling back to the watchdog package's own defaults (with a warning)
// on a malformed value rather than failing startup over it.
func watchdogDurations(cfg *config.Config, log *logging.Logger) (tick, stale time.Duration) {
	tick = bridge.WatchdogTick
	if v, err := time.ParseDuration(cfg.Watchdog.TickInterval); err == nil {
		tick = v
	} else {
		log.WithError(err).Warn("invalid watchdog.tick_interval, using default", "value", cfg.Watchdog.TickInterval)
	}

	stale = bridge.StallThreshold
	if v, err := time.ParseDuration(cfg.Watchdog.HeartbeatTimeout); err == nil {
		stale = v
	} else {
		log.WithError(err).Warn("invalid watchdog.heartbeat_timeout, using default", "value", cfg.Watchdog.HeartbeatTimeout)
	}

	return tick, stale
}

// direction bundles one forwarding path's owned resources so bootstrap
// can close them uniformly regardless of which direction fails first.
type direction struct {
	rx     *ring.RxRing
	tx     *txsink.TxSink
	engine *engine.Engine
}

func (d *direction) close() {
	if d.rx != nil {
		d.rx.Close()
	}
	if d.tx != nil {
		d.tx.Close()
	}
}

func openDirection(rxIface, txIface string, cl *classifier.Classifier, tel *telemetry.Telemetry, dir telemetry.Direction, rateMbps float64, capacityFrames int) (*direction, error) {
	rx, err := ring.Open(ring.DefaultConfig(rxIface))
	if err != nil {
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "open rx ring on %s", rxIface)
	}

	tx, err := txsink.Open(txIface)
	if err != nil {
		rx.Close()
		return nil, scalpelerrors.Wrapf(err, scalpelerrors.KindInit, "open tx sink on %s", txIface)
	}

	bucket := shaper.NewTokenBucket(rateMbps, nil)
	queue := shaper.NewBoundedFrameQueue(capacityFrames, ring.DefaultFrameSize)
	sh := shaper.NewShaper(bucket, queue, func() { tel.AddDropped(1) })

	eng := engine.New(rx, tx, sh, cl, tel, dir, nil)

	return &direction{rx: rx, tx: tx, engine: eng}, nil
}

// logGatewayInfo resolves the default gateway's IP and MAC once at
// startup, purely for operator visibility; neither failure here is
// fatal, since nothing on the data path depends on it.
func logGatewayInfo(log *logging.Logger) {
	var resolver netenv.ProcResolver

	gw, err := resolver.GatewayIP()
	if err != nil {
		log.WithError(err).Warn("gateway discovery failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mac, err := resolver.GatewayMAC(ctx, gw)
	if err != nil {
		log.WithError(err).Warn("gateway mac lookup failed", "gateway", gw.String())
		return
	}

	log.Info("gateway discovered", "gateway", gw.String(), "mac", mac.String())
}

// waitForStop blocks until SIGINT or SIGTERM is received.
func waitForStop(log *logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received stop signal", "signal", sig.String())
}

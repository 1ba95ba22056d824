// Command shahd runs the order dispatcher over a set of file-backed
// stores: parses flags and an optional TOML config (see package
// config), claims the data directory (see package instance), opens
// the stores, and serves orders over UDP until interrupted.
package main

import (
	"context"
	stdbinary "encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/00-team/shah/apex"
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/config"
	"github.com/00-team/shah/dispatch"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/instance"
	"github.com/00-team/shah/metrics"
	"github.com/00-team/shah/orderlog"
	"github.com/00-team/shah/worker"
	"github.com/00-team/shah/xlog"
)

var (
	configFlag      = &cli.StringFlag{Name: "config", Usage: "path to a shahd.toml config file"}
	dataDirFlag     = &cli.StringFlag{Name: "data-dir", Usage: "overrides config's data_dir"}
	listenFlag      = &cli.StringFlag{Name: "listen", Usage: "overrides config's listen_addr"}
	metricsFlag     = &cli.StringFlag{Name: "metrics-addr", Usage: "overrides config's metrics_addr"}
	auditDirFlag    = &cli.StringFlag{Name: "audit-dir", Usage: "overrides config's audit_dir"}
	serverIndexFlag = &cli.UintFlag{Name: "server-index", Usage: "overrides config's server_index"}
)

func main() {
	app := &cli.App{
		Name:  "shahd",
		Usage: "runs the shah order dispatcher over its file-backed stores",
		Flags: []cli.Flag{configFlag, dataDirFlag, listenFlag, metricsFlag, auditDirFlag, serverIndexFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.FromEnv()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.LoadTOML(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if v := c.String(dataDirFlag.Name); v != "" {
		cfg.DataDir = v
	}
	if v := c.String(listenFlag.Name); v != "" {
		cfg.ListenAddr = v
	}
	if v := c.String(metricsFlag.Name); v != "" {
		cfg.MetricsAddr = v
	}
	if v := c.String(auditDirFlag.Name); v != "" {
		cfg.AuditDir = v
	}
	if v := c.Uint(serverIndexFlag.Name); v != 0 {
		cfg.ServerIndex = uint32(v)
	}
	return cfg, nil
}

// shahState is the process-wide dispatch state: every store this
// daemon exposes, plus the audit sidecar and a monotonic request id
// counter used to key it.
type shahState struct {
	apex   *apex.Db
	audit  *orderlog.Log
	nextID atomic.Uint64
}

func run(c *cli.Context) error {
	log := xlog.Root().Named("shahd")

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	lock, err := instance.Acquire(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("acquiring data dir: %w", err)
	}
	defer lock.Release()
	log.Info("acquired data directory", "instance", lock.ID(), "data_dir", cfg.DataDir)

	apexFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "apex.tiles"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening apex store: %w", err)
	}
	defer apexFile.Close()

	tiles, err := entity.New[apex.Tile, *apex.Tile](
		apexFile, "apex", 1, 1, cfg.ServerIndex, apex.TileSchema(), entity.Options{},
	)
	if err != nil {
		return fmt.Errorf("initializing apex store: %w", err)
	}
	apexDb := apex.New(tiles)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	var audit *orderlog.Log
	if cfg.AuditDir != "" {
		audit, err = orderlog.Open(cfg.AuditDir)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer audit.Close()
		log.Info("audit sidecar enabled", "dir", cfg.AuditDir)
	}

	state := &shahState{apex: apexDb, audit: audit}

	scopes := []dispatch.Scope[*shahState]{
		{
			Name: "apex",
			Routes: []dispatch.Api[*shahState]{
				{InputSize: 12, Handler: apexGetValueHandler},
				{InputSize: 28, Handler: apexSetHandler},
			},
		},
	}
	d := dispatch.New(state, scopes)

	sched := worker.New(map[string]worker.Workable{"apex": apexDb})
	stop := make(chan struct{})
	workCtx, cancelWork := context.WithCancel(context.Background())
	go sched.Run(workCtx, 2*time.Second)
	go observeLoop(tiles, stop)

	udpAddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolving listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("binding listen addr: %w", err)
	}
	defer conn.Close()
	log.Info("dispatcher listening", "addr", conn.LocalAddr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		close(stop)
		cancelWork()
		conn.Close()
	}()

	if err := d.Serve(conn, stop); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func observeLoop(tiles *entity.Db[apex.Tile, *apex.Tile], stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			metrics.ObserveEntity("apex", tiles)
		}
	}
}

func apexGetValueHandler(state *shahState, body []byte, reply []byte) (int, error) {
	c, err := decodeCoords(body)
	if err != nil {
		return 0, err
	}

	g, err := state.apex.GetValue(c)
	if err != nil {
		recordOrder(state, "apex", 0, body, nil, err)
		return 0, err
	}
	out := binary.Bytes(&g)
	copy(reply, out)
	recordOrder(state, "apex", 0, body, out, nil)
	return len(out), nil
}

func apexSetHandler(state *shahState, body []byte, reply []byte) (int, error) {
	c, err := decodeCoords(body[:12])
	if err != nil {
		return 0, err
	}
	var value gene.Gene
	binary.CopyInto(&value, body[12:28])

	old, err := state.apex.Set(c, value)
	if err != nil {
		recordOrder(state, "apex", 1, body, nil, err)
		return 0, err
	}
	out := binary.Bytes(&old)
	copy(reply, out)
	recordOrder(state, "apex", 1, body, out, nil)
	return len(out), nil
}

func decodeCoords(body []byte) (apex.Coords, error) {
	if len(body) < 12 {
		return apex.Coords{}, errs.NewSystem(errs.BadInputLength)
	}
	z := int(stdbinary.LittleEndian.Uint32(body[0:4]))
	x := int(stdbinary.LittleEndian.Uint32(body[4:8]))
	y := int(stdbinary.LittleEndian.Uint32(body[8:12]))
	return apex.NewCoords(z, x, y)
}

func recordOrder(state *shahState, scope string, route uint8, body, out []byte, callErr error) {
	if state.audit == nil {
		return
	}
	id := state.nextID.Add(1)
	e := orderlog.Entry{Id: id, Route: route, OrderBody: append([]byte(nil), body...)}
	if callErr != nil {
		e.Error = errs.ErrCode(callErr)
	} else {
		e.ReplyBody = append([]byte(nil), out...)
	}
	if err := state.audit.Record(e); err != nil {
		xlog.Root().Named("shahd").Warn("audit record failed", "scope", scope, "err", err)
	}
}

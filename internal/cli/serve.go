package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kanban-tracker/internal/cell"
	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/config"
	"kanban-tracker/internal/connections/rabbitmq"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/events"
	"kanban-tracker/internal/microservices/archive"
	"kanban-tracker/internal/microservices/notificator"
	"kanban-tracker/internal/microservices/operator"
	operatorsvc "kanban-tracker/internal/microservices/operator/service"
	"kanban-tracker/internal/microservices/plclink"
	"kanban-tracker/internal/microservices/scanner"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cell: PLC link, scanners, operator API, archive and events",
		Long: `Start every cell service in one process.

The PLC listener must bind or the command fails. Scanners, the archive and
the RabbitMQ notificator are started when configured.

Example:
  kanban-tracker serve --config deploy/config.example.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, rootOpts.Config)
		},
	}
}

// Serve wires the services described by cfg and runs them until ctx is
// cancelled or one of them fails.
func Serve(ctx context.Context, cfg config.Config) error {
	lg := logger.New("bootstrap")
	hub := events.NewHub()
	engine := cell.New(cell.WithPublisher(hub))

	plc, err := plclink.Listen(plclink.Config{
		Addr:            cfg.PLC.Addr,
		ReadTimeout:     cfg.PLC.ReadTimeout,
		WriteTimeout:    cfg.PLC.WriteTimeout,
		LivenessTimeout: cfg.PLC.LivenessTimeout,
	}, engine)
	if err != nil {
		lg.Error("fatal", err, map[string]any{"service": "plc-link"})
		return err
	}
	defer plc.Close()

	var arch operatorsvc.Archive
	var archiveSvc *archive.Archive
	if cfg.Database.Driver != "" {
		archiveSvc, err = archive.Open(ctx, cfg.Database)
		if err != nil {
			lg.Error("fatal", err, map[string]any{"service": "archive"})
			return err
		}
		defer archiveSvc.Close()
		arch = archiveSvc.Service
	}

	var rmq *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rmq, err = rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			lg.Error("fatal", err, map[string]any{"service": "notificator"})
			return err
		}
		defer rmq.Close()
		if err := rmq.Ping(); err != nil {
			return err
		}
	}

	devices, err := scannerDevices(cfg.Scanners)
	if err != nil {
		return err
	}

	// sinks subscribe before the producers start
	var archiveCh, notifyCh <-chan domain.Event
	if archiveSvc != nil {
		ch, unsubscribe := archive.Subscribe(hub)
		defer unsubscribe()
		archiveCh = ch
	}
	if rmq != nil {
		ch, unsubscribe := notificator.Subscribe(hub)
		defer unsubscribe()
		notifyCh = ch
	}

	g, ctx := errgroup.WithContext(ctx)
	if archiveSvc != nil {
		g.Go(func() error { return archiveSvc.Run(ctx, archiveCh) })
	}
	if rmq != nil {
		g.Go(func() error { return notificator.Start(ctx, rmq, cfg.RabbitMQ.Exchange, "kanban-tracker", notifyCh) })
	}
	g.Go(func() error { return plc.Serve(ctx) })
	g.Go(func() error { return operator.Start(ctx, cfg.Operator.Addr, engine, arch) })
	if len(devices) > 0 {
		g.Go(func() error { return scanner.Start(ctx, devices, engine) })
	}

	lg.Info("service_started", map[string]any{
		"plc_addr":      plc.Addr().String(),
		"operator_addr": cfg.Operator.Addr,
		"archive":       cfg.Database.Driver,
		"rabbitmq":      cfg.RabbitMQ.Enabled,
		"scanners":      len(cfg.Scanners),
	})
	err = g.Wait()
	lg.Info("graceful_shutdown", map[string]any{"dropped_events": hub.Dropped()})
	return err
}

func scannerDevices(scs []config.ScannerConfig) ([]scanner.Device, error) {
	out := make([]scanner.Device, 0, len(scs))
	for _, sc := range scs {
		st, err := scanner.ParseStation(sc.Station)
		if err != nil {
			return nil, err
		}
		out = append(out, scanner.Device{Name: sc.Name, Station: st, Path: sc.Path, ReopenDelay: sc.ReopenDelay})
	}
	return out, nil
}

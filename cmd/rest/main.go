package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"coverage-compare-be/internal/bootstrap"
	"coverage-compare-be/internal/config"
	"coverage-compare-be/internal/server"
	"coverage-compare-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Background Services
	g.Go(func() error { return container.ConsumerService.Consume(gctx) })
	g.Go(func() error { return container.WebSocketHub.Run(gctx) })
	if container.LockAuditService != nil {
		g.Go(func() error {
			if err := container.LockAuditService.Start(gctx); err != nil {
				log.Printf("[WARN] Lock audit disabled: %v", err)
			}
			return nil
		})
	}

	// 5. Server
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

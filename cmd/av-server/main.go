package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/app"
	"artifactvault/pkg/config"
	"artifactvault/pkg/server"
	"artifactvault/pkg/service"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.av/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	if *addr != "" {
		viper.Set("server.addr", *addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init Core Application
	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	defer application.Close()
	slog.Info("ArtifactVault core initialized",
		slog.String("storage", viper.GetString("storage.type")),
		slog.String("database", viper.GetString("database.driver")),
		slog.String("lock", viper.GetString("lock.type")),
	)

	// 3. Setup Network
	listenAddr := viper.GetString("server.addr")
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatalf("❌ Failed to listen on %s: %v", listenAddr, err)
	}

	// 4. Setup gRPC Server
	grpcServer := grpc.NewServer(server.ServerOptions()...)
	avrpc.RegisterArtifactServiceServer(grpcServer, service.NewArtifactService(application))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(avrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	// 5. Start Server (Async)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", slog.String("addr", listenAddr))
		serveErr <- grpcServer.Serve(lis)
	}()

	// 6. Graceful Shutdown
	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
		healthSrv.Shutdown()
		grpcServer.GracefulStop()
	case err := <-serveErr:
		if err != nil {
			slog.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}
	slog.Info("server stopped")
}

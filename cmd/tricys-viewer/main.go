package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tricys-client/internal/bootstrap"
	"tricys-client/internal/config"
	"tricys-client/internal/router"
	"tricys-client/internal/server"
	"tricys-client/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	// 0. Initialize Tracer
	cfg := config.Load()
	shutdownTracer := tracer.InitTracer(cfg)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Panicf("Unable to build container: %v", err)
	}
	defer container.Close()

	// 2. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	color.Cyan("🚀 TRICYS viewer client → %s\n", cfg.API.BaseURL)
	color.White("Logging to %s", container.Logger.FilePath())

	// 3. Session: restore the persisted token, else log in headless
	if container.AuthService.InitAuth(ctx) {
		color.Green("Session restored as %s", container.AuthService.CurrentUser().Username)
	} else if cfg.Headless.Username != "" {
		res := container.AuthService.Login(ctx, cfg.Headless.Username, cfg.Headless.Password)
		if res.Success {
			color.Green("Logged in as %s", res.User.Username)
		} else {
			color.Red("Login failed: %s", res.Message)
		}
	} else {
		color.Yellow("Anonymous session; log in through the bridge")
	}

	// 4. Open the configured project through the same guard the renderer uses
	if cfg.Headless.ProjectID != "" {
		openProject(ctx, container, cfg.Headless.ProjectID)
	}

	// 5. Run Server
	srv := server.New(cfg, container)
	if err := srv.Run(ctx); err != nil {
		log.Printf("Bridge stopped: %v", err)
	}
}

func openProject(ctx context.Context, c *bootstrap.Container, projectID string) {
	dest, err := c.Guard.Navigate(ctx, router.Location{
		Name:  router.RouteMonitor,
		Query: map[string]string{router.ProjectQuery: projectID},
	})
	if err != nil || dest.Name != router.RouteMonitor {
		color.Yellow("Project %s not opened, guard sent us to %s", projectID, dest.Name)
		return
	}

	structure, err := c.Store.LoadData(ctx, projectID)
	if err != nil {
		color.Red("Failed to load project %s: %v", projectID, err)
		return
	}

	color.Green("Project %s loaded: %d components, %d connections", projectID, len(structure.Components), len(structure.Connections))
	if c.Store.HasSimulationData() {
		color.Cyan("Simulation results: t = 0 … %g (step %g)", c.Store.MaxTime(), c.Store.SimulationStep())
	} else {
		color.Yellow("No simulation results yet")
	}
	if c.Store.ReadOnly() {
		color.Yellow("Read-only: the project belongs to another user")
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/home"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage the backing stores",
	Long: `Manage the document store container lifecycle.

DefraDB holds the canonical section documents. It runs in a Docker
container with data persisted to ~/.rpgext/data/. The pgvector index is
an external Postgres instance configured via vecstore.dsn.

Examples:
  rpgext stores up      # Start the DefraDB container
  rpgext stores down    # Stop the container (data preserved)
  rpgext stores status  # Check container and store health
  rpgext stores logs    # View container logs`,
}

var storesUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the document store container",
	Long: `Start the DefraDB container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.

Data is persisted to ~/.rpgext/data/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting DefraDB...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start DefraDB: %w", err)
		}

		if err := mgr.WaitReady(ctx, 30*time.Second); err != nil {
			return fmt.Errorf("DefraDB did not become ready: %w", err)
		}

		// Register collection schemas so imports can run immediately.
		client := docstore.NewClient(mgr.URL())
		if err := docstore.EnsureSchemas(ctx, client); err != nil {
			return fmt.Errorf("failed to register schemas: %w", err)
		}

		fmt.Printf("DefraDB is running at %s\n", mgr.URL())
		return nil
	},
}

var storesDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the document store container",
	Long: `Stop the DefraDB container.

This stops the container but preserves data. Use 'rpgext stores up'
to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping DefraDB...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop DefraDB: %w", err)
		}

		fmt.Println("DefraDB stopped")
		return nil
	},
}

var storesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case docstore.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			client := docstore.NewClient(mgr.URL())
			if err := client.HealthCheck(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case docstore.StatusStopped:
			fmt.Printf("Status: %s (use 'rpgext stores up' to start)\n", status)
		case docstore.StatusNotFound:
			fmt.Printf("Status: %s (use 'rpgext stores up' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var storesLogsTail string

var storesLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show document store container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, storesLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var storesRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the document store container",
	Long: `Remove the DefraDB container.

This stops and removes the container. Data in ~/.rpgext/data/
is NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing DefraDB container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("DefraDB container removed (data preserved)")
		return nil
	},
}

func init() {
	storesCmd.AddCommand(storesUpCmd)
	storesCmd.AddCommand(storesDownCmd)
	storesCmd.AddCommand(storesStatusCmd)
	storesCmd.AddCommand(storesLogsCmd)
	storesCmd.AddCommand(storesRemoveCmd)

	storesLogsCmd.Flags().StringVar(&storesLogsTail, "tail", "100", "Number of lines to show from the end")

	rootCmd.AddCommand(storesCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getDockerManager creates a DockerManager with the configured settings.
func getDockerManager() (*docstore.DockerManager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return docstore.NewDockerManager(docstore.DockerConfig{
		ContainerName: cfg.Docstore.ContainerName,
		Image:         cfg.Docstore.Image,
		HostPort:      cfg.Docstore.Port,
		DataPath:      h.DataPath(),
	})
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cuemby/clusterscope/pkg/api"
	"github.com/cuemby/clusterscope/pkg/events"
	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/scheduler"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the periodic snapshot loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.API.Listen = listen
		}

		fmt.Println("Starting clusterscope...")
		fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
		fmt.Printf("  API Address: %s\n", cfg.API.Listen)
		fmt.Printf("  Clusters: %d\n", len(cfg.Clusters))
		fmt.Println()

		metrics.SetCriticalComponents("storage", "events")
		eng, err := newEngine(cfg)
		if err != nil {
			metrics.UpdateComponent("storage", false, err.Error())
			return fmt.Errorf("failed to start: %v", err)
		}
		metrics.UpdateComponent("storage", true, "")

		// Log lifecycle events
		sub := eng.broker.Subscribe()
		go logEvents(sub)
		metrics.UpdateComponent("events", true, "")

		var sched *scheduler.Scheduler
		if cfg.Snapshot.Interval > 0 {
			sched = scheduler.NewScheduler(eng.coalescer, eng.store, cfg.Snapshot.Interval)
			sched.Start()
			fmt.Printf("✓ Snapshot loop started (every %s)\n", cfg.Snapshot.Interval)
		}

		apiServer := api.NewServer(eng.coalescer, eng.store)
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(cfg.API.Listen); err != nil {
				errCh <- fmt.Errorf("API server error: %v", err)
			}
		}()

		fmt.Println("✓ API server started")
		fmt.Println()
		fmt.Println("Clusterscope is running. Press Ctrl+C to stop, send SIGHUP to reload clusters.")

		// Wait for interrupt signal or API server error, reloading on SIGHUP
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		hupCh := make(chan os.Signal, 1)
		signal.Notify(hupCh, syscall.SIGHUP)

	wait:
		for {
			select {
			case <-hupCh:
				if err := reloadClusters(cmd, eng); err != nil {
					log.Logger.Error().Err(err).Msg("Cluster reload failed")
					continue
				}
				fmt.Println("✓ Clusters reloaded")
			case <-sigCh:
				fmt.Println("\nShutting down...")
				break wait
			case err := <-errCh:
				fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
				break wait
			}
		}
		signal.Stop(hupCh)
		metrics.UpdateComponent("events", false, "shutting down")

		// Shutdown
		if sched != nil {
			sched.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Stop(ctx); err != nil {
			log.Logger.Warn().Err(err).Msg("API server did not stop cleanly")
		}
		eng.broker.Unsubscribe(sub)
		if err := eng.Close(); err != nil {
			return fmt.Errorf("failed to shutdown: %v", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check CLUSTER [all|yarn|hdfs|other-services]",
	Short: "Run a health check without storing a snapshot",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := orchestrator.ScopeAll
		if len(args) == 2 {
			var err error
			if scope, err = orchestrator.ParseScope(args[1]); err != nil {
				return err
			}
		}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resp, err := api.RunCheck(ctx, eng.coalescer, args[0], scope)
		if err != nil {
			return err
		}

		fmt.Printf("Cluster %s (%s): %s\n\n", args[0], resp.Scope, resp.Status)
		printServices(os.Stdout, resp.Services)
		if resp.Hdfs != nil {
			fmt.Printf("\nHDFS: %.2f / %.2f GB used\n", resp.Hdfs.Usage.UsedGB, resp.Hdfs.Usage.TotalGB)
		}
		if resp.Memory != nil {
			fmt.Printf("YARN memory: %d / %d MB allocated\n", resp.Memory.UsedMB, resp.Memory.TotalMB)
		}
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot CLUSTER",
	Short: "Take a snapshot, reusing a fresh one when available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		snap, err := eng.coalescer.Take(ctx, args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no snapshot taken: the health check of %s did not complete", args[0])
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(os.Stdout, snap)
		}
		fmt.Printf("Snapshot %s of %s taken at %s: %s\n\n", snap.ID, snap.ClusterName, snap.TakenAt.Format(time.RFC3339), snap.Status)
		printSnapshotServices(os.Stdout, snap.Services)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history CLUSTER",
	Short: "List stored snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		history, err := eng.coalescer.History(args[0], limit)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("No snapshots found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTAKEN\tSTATUS\tHDFS USED GB\tYARN USED MB")
		for _, s := range history {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n", s.ID, s.TakenAt.Format(time.RFC3339), s.Status, s.HdfsUsage.UsedGB, s.MemoryUsage.UsedMB)
		}
		return w.Flush()
	},
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List the configured clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		clusters, err := eng.store.ListClusters()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tVENDOR\tHOST\tSECURED\tID")
		for _, c := range clusters {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", c.Name, c.Vendor, c.Host, c.Secured, c.ID)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Override the configured API listen address")
	snapshotCmd.Flags().Bool("json", false, "Print the snapshot as JSON")
	historyCmd.Flags().IntP("limit", "n", 0, "Number of snapshots to list (default: configured history limit)")
}

// reloadClusters re-reads the configuration and upserts its clusters
func reloadClusters(cmd *cobra.Command, eng *engine) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return eng.resync(cfg.Clusters)
}

func openEngine(cmd *cobra.Command) (*engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newEngine(cfg)
}

func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		logger.Info().
			Str("event", string(ev.Type)).
			Str("cluster", ev.Cluster).
			Str("message", ev.Message).
			Msg("Event")
	}
}

func printServices(out io.Writer, services []types.ServiceStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tFAILED JOBS\tLOGS")
	for _, s := range services {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Type, s.Status, failedJobs(s.JobResults), s.LogDirectory)
	}
	w.Flush()
}

func printSnapshotServices(out io.Writer, services []types.ServiceSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tFAILED JOBS\tLOGS")
	for _, s := range services {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Type, s.Status, failedJobs(s.JobResults), s.LogDirectory)
	}
	w.Flush()
}

func failedJobs(results []types.JobResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

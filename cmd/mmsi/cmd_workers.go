package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/internal/kernel"
	"github.com/mmsi/orderdesk/pkg/auth"
)

var (
	queueWorkersFlag int
	scheduleOnceFlag bool
)

// mmsi queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued export archive jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := boot(ctx)
		if err != nil {
			return err
		}
		defer k.Infra.Close()

		if config.QueueDriver() != "redis" {
			fmt.Println("QUEUE_DRIVER is not redis; this worker only sees jobs pushed in this process.")
		}
		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		k.Infra.Queue.Work(ctx, workers)
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// mmsi schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := boot(ctx)
		if err != nil {
			return err
		}
		defer k.Infra.Close()

		fmt.Println("Registered scheduled tasks:")
		for _, t := range k.Infra.Scheduler.List() {
			fmt.Println("  •", t)
		}
		if scheduleOnceFlag {
			return k.Infra.Scheduler.RunNow(ctx, kernel.SweepTask)
		}
		fmt.Println("Scheduler started. Press Ctrl+C to stop.")
		k.Infra.Scheduler.Start(ctx)
		return nil
	},
}

// mmsi users:deactivate-inactive
var deactivateCmd = &cobra.Command{
	Use:   "users:deactivate-inactive",
	Short: "Deactivate users with no login within INACTIVITY_MONTHS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := boot(ctx)
		if err != nil {
			return err
		}
		defer k.Infra.Close()

		n, err := k.Services.Users.DeactivateInactive(ctx, auth.Identity{})
		if err != nil {
			return err
		}
		fmt.Printf("%d user(s) deactivated.\n", n)
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
	scheduleRunCmd.Flags().BoolVar(&scheduleOnceFlag, "once", false, "Run the inactivity sweep once and exit")
}

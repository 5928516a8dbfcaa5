package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"screentime/internal/event"
	"screentime/internal/storage"

	sqlitestore "screentime/internal/storage/sqlite"
)

// Report Command Group
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports from the recorded event log",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Ensure dbPath is determined before subcommands run
		rootCmd.PersistentPreRun(cmd, args)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			log.Fatalf("Error: Database file not found at %s. Ensure the screentime daemon has run or specify path with --db.", dbPath)
		} else if err != nil {
			log.Fatalf("Error accessing database file %s: %v", dbPath, err)
		}
	},
}

func openStore(ctx context.Context) storage.Storage {
	store := sqlitestore.NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize storage connection: %v", err)
	}
	return store
}

var reportUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Minutes recorded per app over the past days",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		endTime := time.Now()
		startTime := endTime.AddDate(0, 0, -days)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store := openStore(ctx)
		defer store.Close()

		usage, err := store.UsageByApp(ctx, startTime, endTime)
		if err != nil {
			log.Fatalf("Failed to fetch usage: %v", err)
		}
		if len(usage) == 0 {
			fmt.Println("No usage recorded for the specified period.")
			return
		}

		fmt.Printf("Usage from %s to %s\n", startTime.Format("2006-01-02"), endTime.Format("2006-01-02"))
		total := 0
		for _, u := range usage {
			total += u.Minutes
			fmt.Printf("%s %s  %s/day avg\n",
				cell(u.AppName, 16),
				cell(formatMinutes(u.Minutes), 14),
				formatMinutes(u.Minutes/max(1, days)))
		}
		fmt.Printf("%s %s\n", cell("Total", 16), formatMinutes(total))
	},
}

var reportEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded events, newest last",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		typeNames, _ := cmd.Flags().GetStringSlice("type")
		endTime := time.Now()
		startTime := endTime.AddDate(0, 0, -days)

		types := make([]event.EventType, 0, len(typeNames))
		for _, t := range typeNames {
			types = append(types, event.EventType(t))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store := openStore(ctx)
		defer store.Close()

		events, err := store.GetEvents(ctx, startTime, endTime, types...)
		if err != nil {
			log.Fatalf("Failed to fetch events: %v", err)
		}
		if len(events) == 0 {
			fmt.Println("No events found for the specified period.")
			return
		}
		for _, e := range events {
			detail := e.Notes
			if detail == "" && e.Type == event.EventTypeTick {
				detail = fmt.Sprintf("%s min left", humanize.Ftoa(e.Value))
			}
			fmt.Printf("%s %s %s %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				cell(string(e.Type), 13),
				cell(e.AppName, 16),
				detail)
		}
		fmt.Printf("%s events\n", humanize.Comma(int64(len(events))))
	},
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

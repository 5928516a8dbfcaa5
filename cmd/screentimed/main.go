package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sevlyar/go-daemon"

	"screentime/internal/app"
	"screentime/internal/config"
)

var (
	configPath = flag.String("c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/screentime/config.yaml, /etc/screentime/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	daemonize  = flag.Bool("d", false, "Detach and run in the background")
	pidPath    = flag.String("pid", "screentimed.pid", "PID file used in daemon mode")
)

// setupLogging configures the log output destination.
func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr)
		log.Println("Logging to stderr")
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

func main() {
	flag.Parse()

	// Relative paths in flags and config refer to the launch directory
	launchDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("FATAL: Cannot determine working directory: %v", err)
	}

	if *daemonize {
		// Log, pid and config paths are fixed before the child is forked
		if *logPath == "" {
			*logPath = "screentimed.log"
		}
		absLog, _ := filepath.Abs(*logPath)
		absPid, _ := filepath.Abs(*pidPath)
		*logPath = absLog
		if *configPath != "" {
			absCfg, _ := filepath.Abs(*configPath)
			*configPath = absCfg
		}

		cntxt := &daemon.Context{
			PidFileName: absPid,
			PidFilePerm: 0644,
			WorkDir:     launchDir,
			Umask:       027,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			log.Fatalf("FATAL: Failed to daemonize: %v", err)
		}
		if child != nil {
			fmt.Printf("screentimed started in background (pid %d)\n", child.Pid)
			return
		}
		defer cntxt.Release()
	}

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	cfg.ResolvePaths(launchDir)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}

	// Blocks until SIGINT/SIGTERM
	if err := application.Run(); err != nil {
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	log.Println("Screentime finished successfully.")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"sandvm/internal/config"
	"sandvm/internal/logger"
	"sandvm/internal/runner"
	"sandvm/pkg/color"
)

// Main entry point for the sandvm runner.
func main() {
	var (
		help, verbose, noColor bool
		configFile, name       string
		maxSteps               int
		storePath              string
		options                runner.Runner
	)

	flag.BoolVar(&help, "h", false, "Show help")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&noColor, "n", false, "No color")
	flag.StringVar(&configFile, "config", config.FileName, "Configuration file")
	flag.StringVar(&name, "name", "", "Synthetic program name used in errors")
	flag.IntVar(&maxSteps, "max-steps", 0, "Maximum steps per run (0 = unlimited)")
	flag.StringVar(&storePath, "store", "", "Snapshot database, stores every suspension")
	flag.BoolVar(&options.List, "list", false, "List stored snapshots")
	flag.IntVar(&options.Resume, "resume", 0, "Restore the stored snapshot with this sequence number")
	flag.StringVar(&options.Value, "value", "", "Expression the restored await resolves to")

	flag.Parse()
	args := flag.Args()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(configFile, set["config"])
	if err != nil {
		logger.Init(log.WarnLevel, noColor)
		log.Fatal("Invalid configuration", "error", err)
	}
	if set["name"] {
		cfg.VM.Name = name
	}
	if set["max-steps"] {
		cfg.VM.MaxSteps = maxSteps
	}
	if set["store"] {
		cfg.Store.Path = storePath
	}
	if noColor {
		cfg.Log.Color = false
	}

	level, err := cfg.Level()
	if err != nil {
		logger.Init(log.WarnLevel, noColor)
		log.Fatal("Invalid configuration", "error", err)
	}
	if verbose {
		level = log.DebugLevel
	}
	logger.Init(level, !cfg.Log.Color)

	if help {
		fmt.Printf("Usage: %s [options] <file>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if !cfg.Log.Color {
		color.EnableColor(false)
	}

	if len(args) == 0 && !options.List && options.Resume == 0 {
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}
	if len(args) > 0 {
		options.SourceFile = args[0]
	}
	options.Config = cfg
	options.Verbose = verbose

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := options.Run(ctx); err != nil {
		stop()
		log.Fatal("Run failed", "error", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"managerclass/internal/backend"
	"managerclass/internal/config"
	"managerclass/internal/logger"
	"managerclass/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import, SQL backend only (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open data store", "error", err)
	}
	defer store.Close()

	backupService := service.NewBackupService(store.Store, store.Name, log)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, log, backupService, store, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", "error", err)
		}
	}

	log.Info("exporting data", "output", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatal("export failed", "error", err)
	}

	if fileInfo, err := os.Stat(outputPath); err == nil {
		log.Info("export written", "size_mb", fmt.Sprintf("%.2f", float64(fileInfo.Size())/1024/1024))
	}
}

func handleImport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, store *backend.Backend, inputPath string, clearData bool) {
	// Check if file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("input file does not exist", "input", inputPath)
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return
		}

		log.Info("clearing existing data")
		if err := store.Clear(ctx, log); err != nil {
			log.Fatal("failed to clear data", "error", err)
		}
	}

	log.Info("importing data", "input", inputPath)
	summary, err := backupService.Import(ctx, inputPath)
	if err != nil {
		log.Fatal("import failed", "error", err)
	}

	fmt.Printf("Import complete: %d users (%d merged), %d chapters (%d matched), %d questions (%d matched), %d progress rows, %d attempts, %d question answers, %d skipped\n",
		summary.Users, summary.UsersMerged, summary.Chapters, summary.ChaptersMatched,
		summary.Questions, summary.QuestionsMatched,
		summary.Progress, summary.ChapterHistory, summary.QuestionAttempts, summary.Skipped)
}

func printUsage() {
	fmt.Println("Manager class backup tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [-output <file>]")
	fmt.Println("  backup import -input <file> [-clear]")
	fmt.Println()
	fmt.Println("The data store is selected with DATA_BACKEND (airtable, sql, memory).")
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/prospectly/leaddeck/internal/analytics"
	"github.com/prospectly/leaddeck/internal/card"
	"github.com/prospectly/leaddeck/internal/config"
	"github.com/prospectly/leaddeck/internal/logging"
	"github.com/prospectly/leaddeck/internal/minimized"
	"github.com/prospectly/leaddeck/internal/ui"
)

const Version = "0.3.0"

const storeFileName = "minimized.json"

func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal
// capabilities. Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// LEADDECK_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("LEADDECK_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("leaddeck v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "cards":
			handleCards(args[1:])
			return
		case "restore":
			handleRestore(args[1:])
			return
		}
	}

	runTUI()
}

func runTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("Error: leaddeck requires an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		// Defaults still work; note it and continue.
		fmt.Fprintf(os.Stderr, "Warning: config: %v\n", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		fmt.Printf("Error: failed to resolve data directory: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		LogDir: dataDir,
		Level:  cfg.Logs.Level,
		Format: cfg.Logs.Format,
		Debug:  cfg.Logs.Debug || os.Getenv("LEADDECK_DEBUG") != "",
	})
	defer logging.Shutdown()

	store, err := minimized.Open(filepath.Join(dataDir, storeFileName))
	if err != nil {
		fmt.Printf("Error: failed to open state store: %v\n", err)
		os.Exit(1)
	}
	// Make sure the file exists so the watcher has something to watch.
	if err := store.Flush(); err != nil {
		fmt.Printf("Error: failed to initialize state store: %v\n", err)
		os.Exit(1)
	}
	defer store.Flush()

	watcher, err := minimized.NewWatcher(store.Path())
	if err != nil {
		logging.Logger().Warn("store watcher unavailable", "error", err)
		watcher = nil
	} else {
		store.SetSaveNotifier(watcher.NotifySave)
		watcher.Start()
		defer watcher.Close()
	}

	journal, err := analytics.Open(filepath.Join(dataDir, "events.db"))
	if err != nil {
		logging.Logger().Warn("analytics journal unavailable", "error", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	p := tea.NewProgram(
		ui.NewDashboard(cfg, store, journal, watcher, sampleCards()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// sampleCards is the dashboard composition for this build: the lead
// notification cards shown on launch.
func sampleCards() []ui.CardSpec {
	return []ui.CardSpec{
		{
			Identity: card.Identity{ID: "lead-acme", Icon: "◆", Color: "#57B6F7", Dismissible: true, Badge: 3},
			Title:    "New lead: Acme Corp",
			Body: []string{
				"Sarah Chen, VP Engineering",
				"Visited pricing page 3 times this week",
			},
			Detail: []string{
				"Source: webinar signup",
				"Score: 87 / 100",
				"Suggested action: send the enterprise one-pager",
			},
		},
		{
			Identity: card.Identity{ID: "followup-nimbus", Icon: "●", Color: "#56D08C", Dismissible: true},
			Title:    "Follow-up due: Nimbus Labs",
			Body: []string{
				"Last contact 6 days ago",
				"Proposal sent, no reply yet",
			},
			Detail: []string{
				"Owner: you",
				"Suggested action: short check-in email",
			},
		},
		{
			Identity: card.Identity{ID: "digest-weekly", Icon: "▣", Color: "#EFD983"},
			Title:    "Weekly pipeline digest",
			Body: []string{
				"12 new leads · 4 meetings booked",
				"Reply rate up 8% week over week",
			},
		},
	}
}

// handleCards lists the persisted minimized set.
func handleCards(args []string) {
	fs := flag.NewFlagSet("cards", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Println("Usage: leaddeck cards [options]")
		fmt.Println()
		fmt.Println("List cards currently minimized to the icon bar.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	store := openStoreOrExit()
	entries := store.Snapshot()

	if *jsonOutput {
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			fmt.Printf("Error: failed to format JSON output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(output))
		return
	}

	if len(entries) == 0 {
		fmt.Println("No minimized cards.")
		return
	}
	fmt.Printf("%-24s %s\n", "CARD", "MINIMIZED AT")
	for _, e := range entries {
		fmt.Printf("%-24s %s\n", e.ID, e.MinimizedAt.Format(time.RFC3339))
	}
	fmt.Printf("\nTotal: %d minimized\n", len(entries))
}

// handleRestore clears a card's minimized flag from the CLI. A running
// dashboard picks the change up through its store watcher.
func handleRestore(args []string) {
	if len(args) == 0 || args[0] == "" {
		fmt.Println("Error: card id is required")
		fmt.Println("Usage: leaddeck restore <card-id>")
		os.Exit(1)
	}
	id := args[0]

	store := openStoreOrExit()
	if !store.IsMinimized(id) {
		fmt.Printf("Card is not minimized: %s\n", id)
		os.Exit(1)
	}
	store.Restore(id)
	if err := store.Flush(); err != nil {
		fmt.Printf("Error: failed to save: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Restored card: %s\n", id)
}

func openStoreOrExit() *minimized.Store {
	dataDir, err := config.DataDir()
	if err != nil {
		fmt.Printf("Error: failed to resolve data directory: %v\n", err)
		os.Exit(1)
	}
	store, err := minimized.Open(filepath.Join(dataDir, storeFileName))
	if err != nil {
		fmt.Printf("Error: failed to open state store: %v\n", err)
		os.Exit(1)
	}
	return store
}

func printHelp() {
	fmt.Printf("leaddeck v%s\n", Version)
	fmt.Println("Lead notification dashboard with swipeable cards")
	fmt.Println()
	fmt.Println("Usage: leaddeck [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  (none)            Start the dashboard")
	fmt.Println("  cards             List minimized cards")
	fmt.Println("  restore <id>      Restore a minimized card")
	fmt.Println("  version           Show version")
	fmt.Println("  help              Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  LEADDECK_HOME     Data directory (default: ~/.leaddeck)")
	fmt.Println("  LEADDECK_COLOR    Color mode: truecolor, 256, 16, none")
	fmt.Println("  LEADDECK_DEBUG    Enable debug logging")
	fmt.Println()
	fmt.Println("Mouse (in dashboard):")
	fmt.Println("  drag card right   Dismiss")
	fmt.Println("  drag card left    Minimize into the icon bar")
	fmt.Println("  click icon        Restore")
	fmt.Println("  click card        Open detail")
}

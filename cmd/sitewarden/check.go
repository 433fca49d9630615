package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/sitewarden/internal/config"
	"github.com/goodtune/sitewarden/internal/hostname"
	"github.com/goodtune/sitewarden/internal/policy"
	"github.com/goodtune/sitewarden/internal/storage"
)

var checkCmd = &cobra.Command{
	Use:   "check HOSTNAME",
	Short: "Check the blocked state for a hostname",
	Long:  `Check what decision SiteWarden would make for a page on the given hostname, using the live store.`,
	Example: `  sitewarden -c config.yaml check www.youtube.com
  sitewarden check m.reddit.com`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	host := hostname.Normalize(args[0])
	if host == "" {
		return fmt.Errorf("invalid hostname: %s", args[0])
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create a quiet logger for check mode
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	// Open the live store
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// Initialize Policy Engine
	policyEngine := policy.NewEngine(store, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state := policyEngine.Query(ctx, host)

	printCheckResult(host, state)

	return nil
}

// printCheckResult prints the blocked-state result with colors
func printCheckResult(host string, state policy.BlockedState) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("BLOCKED-STATE CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Hostname:   %s\n", host)
	if state.Reason != "" {
		fmt.Printf("Reason:     %s\n", state.Reason)
	}
	fmt.Println()

	cyan.Print("Decision:   ")
	switch {
	case state.Blocked:
		red.Println("BLOCKED")
		if state.Message != "" {
			fmt.Printf("            → %s\n", state.Message)
		}
	case state.Mode == storage.ModeLimit:
		yellow.Println("LIMITED")
		fmt.Printf("            → %.0f seconds remaining in the current window\n", state.RemainingSeconds)
	default:
		green.Println("ALLOWED")
		fmt.Println("            → No rule restricts this hostname")
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

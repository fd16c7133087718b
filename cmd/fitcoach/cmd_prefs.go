// Package main implements the CLI preference commands for fitcoach.
// Preferences (data directory, default debug logging) live in a JSON file
// outside the chat database, so they apply before the database is opened.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appcfg "fitcoach/cmd/fitcoach/config"
)

var (
	prefsDataDir string
	prefsDebug   string
)

// prefsCmd shows and edits the CLI-level preferences
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "View and edit CLI preferences",
	RunE:  runPrefsShow,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored preferences",
	RunE:  runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update and persist preferences",
	RunE:  runPrefsSet,
}

func init() {
	prefsSetCmd.Flags().StringVar(&prefsDataDir, "data-dir", "", "directory holding the chat database")
	prefsSetCmd.Flags().StringVar(&prefsDebug, "debug", "", "enable debug logging by default (on/off)")

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	resolved, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	path, err := appcfg.ConfigFile()
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("CLI preferences"))
	fmt.Printf("  data dir: %s\n", resolved)
	fmt.Printf("  debug:    %v\n", cfg.Debug)
	fmt.Println(mutedStyle.Render("  stored at " + path))
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = prefsDataDir
	}
	switch prefsDebug {
	case "":
	case "on", "true":
		cfg.Debug = true
	case "off", "false":
		cfg.Debug = false
	default:
		return fmt.Errorf("invalid --debug value %q (use on or off)", prefsDebug)
	}

	if err := appcfg.Save(cfg); err != nil {
		return err
	}
	fmt.Println("Preferences saved.")
	return runPrefsShow(cmd, args)
}

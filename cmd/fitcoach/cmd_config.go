// Package main implements the config commands for fitcoach.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fitcoach/internal/config"
)

var (
	setDrawer   int
	setHistory  int
	setDebounce int
	setAutoSave int
	setIndexing string
)

// configCmd shows and edits the persisted chat limits
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit chat history limits",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current limits",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update one or more limits",
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default limits",
	RunE:  runConfigReset,
}

func init() {
	configSetCmd.Flags().IntVar(&setDrawer, "drawer", 0, "max chats shown in the drawer")
	configSetCmd.Flags().IntVar(&setHistory, "history", 0, "max retained chats")
	configSetCmd.Flags().IntVar(&setDebounce, "debounce-ms", -1, "search debounce in milliseconds")
	configSetCmd.Flags().IntVar(&setAutoSave, "autosave-ms", -1, "auto-save interval in milliseconds")
	configSetCmd.Flags().StringVar(&setIndexing, "indexing", "", "enable fuzzy search indexing (on/off)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

// formatChatConfig renders the limits for terminal output.
func formatChatConfig(cfg config.ChatConfig) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat history limits") + "\n")
	fmt.Fprintf(&b, "  drawer size:        %d\n", cfg.MaxChatsInDrawer)
	fmt.Fprintf(&b, "  history cap:        %d\n", cfg.MaxChatHistory)
	fmt.Fprintf(&b, "  search debounce:    %d ms\n", cfg.SearchDebounceMs)
	fmt.Fprintf(&b, "  auto-save interval: %d ms\n", cfg.AutoSaveIntervalMs)
	fmt.Fprintf(&b, "  fuzzy indexing:     %v\n", cfg.EnableSearchIndexing)
	return b.String()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Print(formatChatConfig(a.cfg.Get()))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var patch config.Patch
	if setDrawer > 0 {
		patch.MaxChatsInDrawer = &setDrawer
	}
	if setHistory > 0 {
		patch.MaxChatHistory = &setHistory
	}
	if setDebounce >= 0 {
		patch.SearchDebounceMs = &setDebounce
	}
	if setAutoSave >= 0 {
		patch.AutoSaveIntervalMs = &setAutoSave
	}
	switch setIndexing {
	case "":
	case "on", "true":
		enabled := true
		patch.EnableSearchIndexing = &enabled
	case "off", "false":
		enabled := false
		patch.EnableSearchIndexing = &enabled
	default:
		return fmt.Errorf("invalid --indexing value %q (use on or off)", setIndexing)
	}

	if err := a.cfg.Update(cmd.Context(), patch); err != nil {
		return err
	}
	fmt.Println("Config updated.")
	fmt.Print(formatChatConfig(a.cfg.Get()))
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Config reset to defaults.")
	return nil
}

// Package main implements the chat history commands for fitcoach.
// This file handles listing, showing, searching, and pruning chats.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fitcoach/internal/chat"
)

var (
	listLimit   int
	searchExact bool
	clearYes    bool
)

// listCmd lists recent chats, most recently saved first
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent chats",
	RunE:  runList,
}

// showCmd prints one chat in full
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// searchCmd searches chats by fuzzy relevance (or exact substring)
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search chats by title and message text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

// deleteCmd removes one chat
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// clearCmd removes every chat
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all chats",
	RunE:  runClear,
}

// currentCmd gets or sets the active chat id
var currentCmd = &cobra.Command{
	Use:   "current [id]",
	Short: "Show or set the active chat",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCurrent,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "max chats to list (default: drawer size)")
	searchCmd.Flags().BoolVar(&searchExact, "exact", false, "exact substring match instead of fuzzy")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.store.GetChats(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No saved chats.")
		return nil
	}

	currentID, _ := a.store.CurrentChatID(cmd.Context())
	for i, s := range sessions {
		marker := " "
		if s.ID == currentID {
			marker = "*"
		}
		fmt.Printf("%2d) %s %s\n", i+1, marker, titleStyle.Render(s.Title))
		fmt.Printf("      %s\n", mutedStyle.Render(fmt.Sprintf("%s · %d messages · %s",
			s.ID, s.Meta.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	session, ok := a.store.GetChat(cmd.Context(), args[0])
	if !ok {
		fmt.Println("Chat not found.")
		return nil
	}

	fmt.Println(titleStyle.Render(session.Title))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("created %s · updated %s",
		session.CreatedAt.Local().Format("2006-01-02 15:04"),
		session.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	fmt.Println()
	for _, m := range session.Messages {
		fmt.Printf("[%s] %s\n", m.Role, m.Text)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	var results []*chat.Session
	if searchExact {
		results, err = a.store.SearchChats(cmd.Context(), query)
		if err != nil {
			return err
		}
	} else {
		results = a.index.Search(cmd.Context(), query)
	}

	if len(results) == 0 {
		fmt.Println("No matching chats.")
		return nil
	}
	for i, s := range results {
		fmt.Printf("%2d) %s\n", i+1, titleStyle.Render(s.Title))
		fmt.Printf("      %s\n", mutedStyle.Render(fmt.Sprintf("%s · %s", s.ID, s.Meta.LastMessagePreview)))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteChat(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !clearYes {
		fmt.Print("Delete ALL chats? This cannot be undone. [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := a.store.ClearAllChats(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("All chats deleted.")
	return nil
}

func runCurrent(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		id := args[0]
		if id == "none" {
			id = ""
		}
		if err := a.store.SetCurrentChatID(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println("Current chat updated.")
		return nil
	}

	id, ok := a.store.CurrentChatID(cmd.Context())
	if !ok {
		fmt.Println("No active chat.")
		return nil
	}
	if session, found := a.store.GetChat(cmd.Context(), id); found {
		fmt.Printf("%s  %s\n", id, titleStyle.Render(session.Title))
	} else {
		fmt.Println(id)
	}
	return nil
}

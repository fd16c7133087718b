// Package main implements the response cache commands for fitcoach.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd manages the cached assistant responses
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the response cache",
	RunE:  runCacheStats,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached responses",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Cached responses: %d\n", a.cache.Size())
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := bootApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cache.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Response cache cleared.")
	return nil
}

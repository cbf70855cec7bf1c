package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deadvisor-dev/deadvisor/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the per-translation-unit result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache entry count and size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached translation-unit result",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	fmt.Printf("Entries:    %d\n", stats.Entries)
	fmt.Printf("Total size: %d bytes\n", stats.TotalSize)
	if stats.Entries > 0 {
		fmt.Printf("Oldest:     %s ago\n", stats.OldestAge.Round(1e9))
		fmt.Printf("Newest:     %s ago\n", stats.NewestAge.Round(1e9))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}

	if err := c.Clear(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}

	color.Green("cache cleared: %s", cfg.Cache.Dir)
	return nil
}

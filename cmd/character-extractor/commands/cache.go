package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/menta2k/character-extractor/pkg/cache"
)

// NewCacheCmd creates the cache command group
func NewCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached character results",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			table := newTable(cmd.OutOrStdout(), "Key", "Expires", "Attributes")
			count := 0
			err = c.Each(func(e cache.Entry) error {
				expires := "never"
				if !e.ExpiresAt.IsZero() {
					expires = e.ExpiresAt.Format(time.RFC3339)
				}
				table.Append([]string{shortKey(e.Key), expires, formatAttributes(e.Attributes)})
				count++
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read cache: %w", err)
			}
			if count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	})

	return cmd
}

func (a *App) openCache() (*cache.BadgerCache, error) {
	if a.Config.Cache.Dir == "" {
		return nil, errors.New("cache.dir is not set, an in-memory cache cannot be inspected")
	}
	return cache.Open(a.Config.Cache.Dir, time.Duration(a.Config.Cache.TTLHours)*time.Hour, a.Logger)
}

// formatAttributes renders attributes as sorted name=value pairs
func formatAttributes(attrs map[string]string) string {
	names := lo.Keys(attrs)
	sort.Strings(names)
	return strings.Join(lo.Map(names, func(n string, _ int) string {
		return n + "=" + attrs[n]
	}), ", ")
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}

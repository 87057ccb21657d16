package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/feed"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the feed cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cacheKeyCommand())

	return cmd
}

// feedCache returns the configured cache, or nil when caching is disabled.
func (c *CLI) feedCache() (*cache.Cache, error) {
	l, err := c.newLoader()
	if err != nil {
		return nil, err
	}
	if !l.Cache().Enabled() {
		printInfo("Cache is disabled")
		return nil, nil
	}
	return l.Cache(), nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached feed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.feedCache()
			if err != nil || fc == nil {
				return err
			}

			count, err := fc.Clear()
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.feedCache()
			if err != nil || fc == nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
			return nil
		},
	}
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached feed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.feedCache()
			if err != nil || fc == nil {
				return err
			}

			entries, err := fc.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("Cache is empty")
				return nil
			}

			var total int64
			for _, e := range entries {
				status := styleStale.Render(iconStale)
				if e.Fresh {
					status = styleFresh.Render(iconFresh)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %8s  %-16s %s\n",
					StyleDim.Render(shortKey(e.Key)),
					humanize.Bytes(uint64(e.Size)),
					humanize.Time(e.ModTime),
					status)
				total += e.Size
			}
			printDetail("%d entries, %s, expiry %q", len(entries), humanize.Bytes(uint64(total)), fc.Expiry())
			return nil
		},
	}
}

// cacheKeyCommand creates the "cache key" subcommand.
func (c *CLI) cacheKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key <url|name>",
		Short: "Print the cache file a feed is stored in",
		Long: `Print the cache file a feed is stored in.

The key covers the URL and the credentials, so --user and --pass change it.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeFeedNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, opts, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			fc, err := c.feedCache()
			if err != nil || fc == nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fc.Path(feed.NewRequest(url, opts...)))
			return nil
		},
	}
}

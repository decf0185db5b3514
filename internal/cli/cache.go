package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/cache"
	"github.com/matzehuels/neptune-utils/pkg/config"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata and status cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend := c.config().Cache.Backend

			ch, err := cache.Open(ctx, c.config().Cache)
			if err != nil {
				return err
			}
			defer ch.Close()

			clearer, ok := ch.(cache.Clearer)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "the %s cache cannot be cleared", backend)
			}
			if err := clearer.Clear(ctx); err != nil {
				return err
			}
			printSuccess("Cleared the %s cache", backend)
			if fc, ok := ch.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.Out, dir)
			return err
		},
	}
}

// cacheDir returns the configured file cache directory or the default.
func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	dir, err := config.CacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache directory")
	}
	return dir, nil
}

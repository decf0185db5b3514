package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/buildinfo"
	"github.com/matzehuels/neptune-utils/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "neptune-utils"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Out receives command results. Logs go to the logger's writer.
	Out io.Writer

	flags globalFlags
	cfg   *config.Config
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	endpoint   string
	port       int
	region     string
	iam        bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "neptune-utils works with Amazon Neptune graphs",
		Long:         `neptune-utils queries, loads, exports and describes Amazon Neptune property graphs over Gremlin and the bulk loader API.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default ~/.config/neptune-utils/config.toml)")
	pf.StringVar(&c.flags.endpoint, "endpoint", "", "Neptune cluster endpoint host name")
	pf.IntVar(&c.flags.port, "port", 0, "Neptune port (default 8182)")
	pf.StringVar(&c.flags.region, "region", "", "AWS region for IAM signing")
	pf.BoolVar(&c.flags.iam, "iam", false, "sign requests with SigV4")

	// Register all subcommands
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.gremlinCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrSnakeDoc/portal/internal/client"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/version"
)

// cli carries the state shared by every command.
type cli struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	in     io.Reader
	reader *bufio.Reader

	cfgFile string
	client  *client.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Service portal command-line client",
		Long: `portalctl manages the service portal from the terminal.

It reads the dashboard, edits custom services, status overrides and the
hidden / admin-only sets, and checks service reachability. Server state is
cached locally and used when the API cannot be reached.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out, c.errOut, c.in = cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin()
			return c.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.config/portalctl/config.yaml)")
	flags.String("api", "http://localhost:3001", "portal API base URL")
	flags.String("cache-dir", "", "local cache directory (default is the user cache dir)")
	flags.Duration("timeout", client.DefaultTimeout, "API request timeout")
	flags.BoolP("verbose", "v", false, "log sync failures")
	for _, name := range []string{"api", "cache-dir", "timeout", "verbose"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		c.newServicesCmd(),
		c.newCategoriesCmd(),
		c.newStatusCmd(),
		c.newSetCmd("hidden", "Services hidden from the dashboard", func() *client.IDSet { return c.client.Hidden }),
		c.newSetCmd("admin-only", "Services shown to admins only", func() *client.IDSet { return c.client.AdminOnly }),
		c.newCustomCmd(),
		c.newHealthCmd(),
		c.newCheckCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newPasswdCmd(),
		c.newFavCmd(),
	)
	return root
}

// init resolves configuration (flags, PORTALCTL_* env, config file) and
// builds the API client.
func (c *cli) init() error {
	c.v.SetEnvPrefix("PORTALCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(filepath.Join(home, ".config", "portalctl"))
		if err := c.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	level := "error"
	if c.v.GetBool("verbose") {
		level = "debug"
	}

	var err error
	c.client, err = client.New(client.Options{
		BaseURL:  c.v.GetString("api"),
		CacheDir: c.v.GetString("cache-dir"),
		Timeout:  c.v.GetDuration("timeout"),
		Logger:   logger.New(level, true, logger.FileOptions{}),
	})
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

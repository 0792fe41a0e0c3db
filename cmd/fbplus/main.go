/*
Runs the fbplus thread reader backend. Defaults to listening on
127.0.0.1:3000.

Example:

	go run . serve --addr 127.0.0.1:3000
	go run . fetch "https://www.flashback.org/t1234567" --pages 2
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/awfulava/fbplus"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "fbplus",
	Short: "Reads forum threads as one continuous page",
	Long: `fbplus fetches forum threads, normalizes their legacy-encoded markup into
posts and serves them page by page for an infinite scrolling reader.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve threads over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := fbplus.LoadConfig(v)
		if err != nil {
			return err
		}
		logger, err := fbplus.NewLogger(config.Log, os.Stderr)
		if err != nil {
			return err
		}
		client, err := fbplus.NewClientFromConfig(config)
		if err != nil {
			return err
		}

		gin.SetMode(gin.ReleaseMode)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := fbplus.NewServer(client, logger, config.Server.RequestTimeout)
		return server.ListenAndServe(ctx, config.Server.Addr)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <thread url>",
	Short: "Fetch a thread and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := fbplus.LoadConfig(v)
		if err != nil {
			return err
		}
		client, err := fbplus.NewClientFromConfig(config)
		if err != nil {
			return err
		}

		start, err := cmd.Flags().GetInt("start")
		if err != nil {
			return err
		}
		pages, err := cmd.Flags().GetInt("pages")
		if err != nil {
			return err
		}
		asHTML, err := cmd.Flags().GetBool("html")
		if err != nil {
			return err
		}

		thread, err := client.FetchThread(cmd.Context(), args[0], start, pages)
		if err != nil {
			return err
		}

		if asHTML {
			return fbplus.RenderThread(cmd.OutOrStdout(), thread, client.Origin(), client.Location())
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(thread)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./fbplus.yaml or $HOME/.config/fbplus/fbplus.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("origin", fbplus.DefaultOrigin, "forum origin")

	serveCmd.Flags().String("addr", "127.0.0.1:3000", "address to listen on")

	fetchCmd.Flags().Int("start", 0, "zero-based first page")
	fetchCmd.Flags().Int("pages", 0, "maximum number of pages (0 for all)")
	fetchCmd.Flags().Bool("html", false, "print rendered HTML instead of JSON")

	rootCmd.AddCommand(serveCmd, fetchCmd)
}

// bindFlags ties the config keys that can be set from the command line to
// their flags.
func bindFlags() error {
	return errors.Join(
		v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")),
		v.BindPFlag("source.origin", rootCmd.PersistentFlags().Lookup("origin")),
		v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")),
	)
}

// initConfig points viper at the config file and loads .env if present.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("unable to load .env: %v", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}
	v.SetConfigName("fbplus")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "fbplus"))
	}
}

func main() {
	if err := bindFlags(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

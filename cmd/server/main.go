package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gridrush/internal/room"
	"gridrush/internal/server"
	"gridrush/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "gridrush",
	Short: "Authoritative session server for the grid territory game",
	RunE:  run,
}

var (
	flagAddr   string
	flagDBPath string
	flagDebug  bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", defaultAddr(), "listen address (env PORT sets the default)")
	flags.StringVar(&flagDBPath, "db-path", envOr("DB_PATH", "gridrush.db"), "sqlite path for the match history log, empty to disable")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func defaultAddr() string {
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return ":8080"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute gridrush command")
	}
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var store *storage.Store
	if flagDBPath != "" {
		var err error
		store, err = storage.New(flagDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	srv := server.New(room.DefaultConfig(), store)

	log.Info().Str("addr", flagAddr).Msg("listening")
	return http.ListenAndServe(flagAddr, srv)
}

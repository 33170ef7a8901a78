package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/maciejszaman/enavti/config"
	"github.com/maciejszaman/enavti/feed"
	"github.com/maciejszaman/enavti/game"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ENAVTI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "enavti",
		Short:         "Realtime multiplayer trivia game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: ENAVTI_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3001, "port to listen on (env: ENAVTI_PORT)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "origins allowed to connect (env: ENAVTI_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.QuestionsFile, "questions", "feed/questions.json", "path to the question file (env: ENAVTI_QUESTIONS)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: ENAVTI_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	return cmd
}

func newLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func createServer(allowedOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "OK") })

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
		}))
	} else {
		r.Use(cors.Default())
	}

	return r
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg.Verbose)

	questions, err := feed.Load(cfg.QuestionsFile)
	if err != nil {
		return err
	}

	registry := game.NewRegistry(questions, game.NewTickerGen(), logger)
	registryStarted := make(chan struct{})
	go registry.Run(registryStarted)
	<-registryStarted

	r := createServer(cfg.AllowedOrigins)
	game.NewHandler(registry, logger).RegisterRoutes(r)

	logger.Info().Str("addr", cfg.Addr()).Msg("enavti server listening")
	return r.Run(cfg.Addr())
}

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

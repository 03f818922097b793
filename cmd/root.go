// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries what every subcommand shares. It is filled in by the root's PersistentPreRunE.
type app struct {
	v      *viper.Viper
	logger zerolog.Logger
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		stop()
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}
	var configFile string
	cmd := &cobra.Command{
		Use:   "github-package-stats",
		Short: "A CLI tool to aggregate GitHub Packages statistics.",
		Long: `github-package-stats aggregates the packages of a GitHub organization
(npm, maven, rubygems, docker, container, nuget) and reports package and
version counts grouped by package type or by owning repository.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(a.v, configFile); err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetString("log-level"), verbose)
			return nil
		},
	}
	// Add a persistent flag for verbose output, available to all commands.
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	_ = a.v.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newPackagesCommand(a))
	return cmd
}

func initConfig(v *viper.Viper, configFile string) error {
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read config file").
			WithCause(err)
	}
	return nil
}

func newLogger(out io.Writer, level string, verbose bool) zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	if verbose {
		return logger.Level(zerolog.DebugLevel)
	}
	switch level {
	case "debug":
		return logger.Level(zerolog.DebugLevel)
	case "warn":
		return logger.Level(zerolog.WarnLevel)
	case "error":
		return logger.Level(zerolog.ErrorLevel)
	default:
		return logger.Level(zerolog.InfoLevel)
	}
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument:
		return 2
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		if cause := errors.Unwrap(err); cause != nil {
			return fmt.Sprintf("%s: %v", builder.Msg, cause)
		}
		return builder.Msg
	}
	return err.Error()
}

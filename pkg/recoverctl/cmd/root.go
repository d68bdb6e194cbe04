package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/system"
)

const (
	configPathEnv = "RECOVERCTL_CONFIG_PATH"
	debugEnv      = "RECOVERCTL_DEBUG"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath string
	debug      bool
	cfg        *config.Config
	log        *zap.SugaredLogger
	writer     io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "recoverctl",
		Short: "Batch account email recovery",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = os.Getenv(configPathEnv)
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv(debugEnv), "true")
			}

			// Version needs neither logger nor config
			if cmd.Name() == "version" {
				return nil
			}

			log, err := system.NewLogger(rt.debug)
			if err != nil {
				return err
			}
			rt.log = log

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			loaded.Defaults()
			if err := loaded.Validate(); err != nil {
				return err
			}
			rt.cfg = &loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug level logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewRunCommand(),
		NewValidateCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

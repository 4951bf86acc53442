package main

import (
	"fmt"
	"os"

	"github.com/anonto42/storydesk/backend/pkg/config"
	"github.com/anonto42/storydesk/backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "storydesk",
	Short:         "StoryDesk is the content dashboard API for stories and episodes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configFile string

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package commands implements avotecli, which drives a commission stored in
// a local data directory.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.anonvote.io/avote/config"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/service"
)

var (
	dataDir  string
	password string
	debug    bool
)

// when running avotecli in a test harness which has its own logger setup,
// SetupLogPackage should be false so that avotecli won't override the test
// harness's logger settings
var SetupLogPackage bool
var Stdout io.Writer
var Stderr io.Writer
var Stdin *os.File

var (
	keysPrint   = color.New(color.FgCyan, color.Bold)
	valuesPrint = color.New(color.FgMagenta)
	infoPrint   = color.New(color.FgGreen)
	warnPrint   = color.New(color.FgHiYellow, color.Bold)
)

func init() {
	Stdout = os.Stdout
	Stderr = os.Stderr
	Stdin = os.Stdin
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	SetupLogPackage = true
	home, _ := os.UserHomeDir()
	RootCmd.PersistentFlags().StringVarP(&dataDir, "dataDir", "d", filepath.Join(home, ".avote"),
		"directory where the daemon data and config are stored")
	RootCmd.PersistentFlags().StringVar(&password, "password", "",
		"supply the password as an argument instead of prompting")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "prints additional information")

	RootCmd.AddCommand(electionCmd)
	RootCmd.AddCommand(voterCmd)
	RootCmd.AddCommand(voteCmd)
	RootCmd.AddCommand(tallyCmd)
	RootCmd.AddCommand(resultsCmd)
	RootCmd.AddCommand(resetCmd)
	electionCmd.AddCommand(electionCreateCmd)
	electionCmd.AddCommand(electionListCmd)
	electionCmd.AddCommand(electionShowCmd)
	electionCmd.AddCommand(electionStatusCmd)
	voterCmd.AddCommand(voterRegisterCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(Stderr, err)
		os.Exit(1)
	}
}

var RootCmd = &cobra.Command{
	Use:   "avotecli",
	Short: "avotecli runs elections against the commission stored in a data directory",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if SetupLogPackage {
			if debug {
				log.Init("debug", "stderr")
			} else {
				log.Init("error", "stderr")
			}
		}
	},
	SilenceUsage: true,
}

// loadConfig reads the daemon config file from dataDir. The keyed hash
// secret must already exist, since every hash the commission stored depends
// on it.
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	v := viper.New()
	v.SetConfigName(config.DefaultConfigName)
	v.SetConfigType("yml")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix(config.DefaultEnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config in %s (start avoted once to create it): %w", dataDir, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	cfg.DataDir = dataDir
	if cfg.HashSecret == "" {
		return nil, fmt.Errorf("config in %s has no hashSecret", dataDir)
	}
	return cfg, nil
}

// withNode opens the stores for the duration of fn.
func withNode(fn func(node *service.Node) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	node, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer node.Close()
	return fn(node)
}

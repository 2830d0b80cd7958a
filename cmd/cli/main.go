package main

import (
	"fmt"
	"os"

	"github.com/salesdash/internal/api/client"
	"github.com/salesdash/internal/cli/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dashctl",
	Short: "dashctl - sales dashboard client",
	Long: `dashctl is a command-line client for the sales dashboard API.
It shows aggregates, downloads exports and manages scheduled email reports.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(func() { commands.InitConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.dashctl.yaml)")
	rootCmd.PersistentFlags().String("server", client.DefaultBaseURL, "dashboard API base URL")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewRegisterCommand())
	rootCmd.AddCommand(commands.NewScheduleCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Package commands implements the nfs3d CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version and Commit are set by main from build-time ldflags.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "nfs3d",
	Short:         "An NFSv3 server backed by a pluggable virtual filesystem",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./nfs3d.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nfs3d version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("nfs3d %s (%s)\n", Version, Commit)
		return nil
	},
}

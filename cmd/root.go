package cmd

import (
	"fmt"
	"os"

	"TuneLib/config"
	"TuneLib/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tunelib_server",
	Short: "TuneLib 音乐曲库、喜欢和歌单服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(config.Load())
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

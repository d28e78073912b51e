package cmd

import (
	"TuneLib/config"
	"TuneLib/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动TuneLib服务器",
	Long:  `启动TuneLib的HTTP服务器，提供曲库、喜欢的歌曲、歌单API以及资料库变更推送`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(config.Load())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

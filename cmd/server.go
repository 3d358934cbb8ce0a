package cmd

import (
	"EchoQ/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动EchoQ服务器",
	Long:  `启动EchoQ播放队列引擎的HTTP服务器，提供队列API和通知推送`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

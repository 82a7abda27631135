/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xlatorbot",
	Short: "Telegram bot that translates messages carrying a language hint",
	Long: `xlatorbot watches the chats it is a member of and translates messages.

Start a message with a language name, for example "Italian: good morning" or
"Spanish - see you tomorrow", and the bot replies in the same thread with the
translation. Messages without a recognized hint are translated to English.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

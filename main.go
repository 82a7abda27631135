/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "xlatorbot/cmd"

func main() {
	cmd.Execute()
}

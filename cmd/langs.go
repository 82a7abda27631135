package cmd

import (
	"fmt"
	"strings"

	"xlatorbot/pkg/config"
	"xlatorbot/pkg/hint"

	"github.com/spf13/cobra"
)

var langsCode string

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List the language hints the bot recognizes",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		langs, err := hint.LoadMap(cfg.Hints.File)
		if err != nil {
			fmt.Printf("failed to load language hints: %v\n", err)
			return
		}

		rows := langRows(langs, langsCode)
		if len(rows) == 0 {
			fmt.Printf("no hints map to %q\n", langsCode)
			return
		}

		fmt.Println(renderTable([]string{"HINT", "CODE"}, rows))
		fmt.Printf("%d of %d hints, default language %s\n", len(rows), langs.Len(), cfg.Hints.DefaultLanguage)
	},
}

func init() {
	rootCmd.AddCommand(langsCmd)
	langsCmd.Flags().StringVar(&langsCode, "code", "", "only list hints for this language code")
}

func langRows(langs hint.Map, code string) [][]string {
	code = strings.TrimSpace(code)

	rows := make([][]string, 0, langs.Len())
	for _, token := range langs.Tokens() {
		mapped, _ := langs.Lookup(token)
		if code != "" && !strings.EqualFold(mapped, code) {
			continue
		}
		rows = append(rows, []string{token, mapped})
	}

	return rows
}

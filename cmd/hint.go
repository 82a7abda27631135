package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"xlatorbot/pkg/config"
	"xlatorbot/pkg/hint"
	"xlatorbot/pkg/markup"
	"xlatorbot/pkg/translate"

	"github.com/spf13/cobra"
)

var (
	hintText      string
	hintTranslate bool
)

// hintCmd represents the hint command
var hintCmd = &cobra.Command{
	Use:   "hint [text]",
	Short: "Show how a message's language hint is read",
	Long:  "Parses one message, or every line typed interactively, with the configured language map and prints the target language and remaining text. With --translate the text is also sent to the translation API.",
	Run: func(cmd *cobra.Command, args []string) {
		text := resolveText(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		parser, err := newParser(cfg.Hints)
		if err != nil {
			fmt.Printf("failed to load language hints: %v\n", err)
			return
		}

		var translator translate.Translator
		if hintTranslate {
			client, err := translate.New(cfg.Translate)
			if err != nil {
				fmt.Printf("failed to initialize translator: %v\n", err)
				return
			}
			translator = client
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if text != "" {
			describeHint(ctx, os.Stdout, parser, translator, text)
			return
		}

		runInteractive(ctx, os.Stdin, os.Stdout, parser, translator)
	},
}

func init() {
	rootCmd.AddCommand(hintCmd)
	hintCmd.Flags().StringVarP(&hintText, "text", "t", "", "message text to parse")
	hintCmd.Flags().BoolVar(&hintTranslate, "translate", false, "also translate the remaining text")
}

func resolveText(args []string) string {
	if value := strings.TrimSpace(hintText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

// newParser builds the hint parser described by cfg. An empty file selects the
// built-in language map.
func newParser(cfg config.HintsConfig) (*hint.Parser, error) {
	langs, err := hint.LoadMap(cfg.File)
	if err != nil {
		return nil, err
	}

	policy := hint.DefaultPolicy()
	policy.Separators = cfg.Separators
	if lang := strings.TrimSpace(cfg.DefaultLanguage); lang != "" {
		policy.DefaultLang = lang
	}
	if len(cfg.Ranges) > 0 {
		policy.Ranges = make([]hint.RuneRange, 0, len(cfg.Ranges))
		for _, raw := range cfg.Ranges {
			r, err := hint.ParseRange(raw)
			if err != nil {
				return nil, fmt.Errorf("hint range %q: %w", raw, err)
			}
			policy.Ranges = append(policy.Ranges, r)
		}
	}

	return hint.NewParser(langs, policy)
}

// describeHint prints what the bot would do with text. The text is treated as
// plain chat text, so markup is stripped exactly as for incoming messages.
func describeHint(ctx context.Context, w io.Writer, parser *hint.Parser, translator translate.Translator, text string) {
	result := parser.Parse(markup.ToText(text))

	if result.Matched {
		fmt.Fprintf(w, "lang: %s (hint %q)\n", result.Lang, result.Token)
	} else {
		fmt.Fprintf(w, "lang: %s (default)\n", result.Lang)
	}
	fmt.Fprintf(w, "text: %s\n", result.Text)

	if translator == nil {
		return
	}
	if strings.TrimSpace(result.Text) == "" {
		fmt.Fprintln(w, "nothing to translate")
		return
	}

	translated, err := translator.Translate(ctx, result.Text, result.Lang)
	if err != nil {
		fmt.Fprintf(w, "translation failed: %v\n", err)
		return
	}
	for _, line := range replyLines(translated) {
		fmt.Fprintf(w, "🌐 %s\n", line)
	}
}

func runInteractive(ctx context.Context, in io.Reader, out io.Writer, parser *hint.Parser, translator translate.Translator) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "💬 ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(out, "input error: %v\n", err)
			}
			return
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isExitCommand(text) {
			return
		}

		describeHint(ctx, out, parser, translator, text)
		fmt.Fprintln(out)
	}
}

func replyLines(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}

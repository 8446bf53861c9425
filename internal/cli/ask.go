package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reviewrag/internal/domain"
	"reviewrag/internal/service"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		k          int
		asJSON     bool
		showPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed reviews",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("%w: empty question", domain.ErrConfiguration)
			}
			svc, err := service.Open(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			ans, askErr := svc.AskK(cmd.Context(), question, k)
			if ans == nil {
				return askErr
			}
			if asJSON {
				if err := writeJSON(cmd, ans); err != nil {
					return err
				}
				return askErr
			}
			if showPrompt && ans.Prompt != "" {
				cmd.Println("PROMPT:")
				cmd.Println(ans.Prompt)
				cmd.Println()
			}
			cmd.Print(service.FormatAnswer(ans))
			return askErr
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of chunks to retrieve (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "print the prompt sent to the generator")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

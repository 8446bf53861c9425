package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"reviewrag/internal/service"
	"reviewrag/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Ask questions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.Open(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			subtitle := fmt.Sprintf("%d review chunks indexed", svc.Len())
			m := tui.New(cmd.Context(), svc, subtitle)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

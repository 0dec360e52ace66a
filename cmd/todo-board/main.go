package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-list/internal/board"
	"github.com/Tomlord1122/todo-list/internal/client"
)

func main() {
	var serverURL string

	cmd := &cobra.Command{
		Use:           "todo-board",
		Short:         "Browse and edit todos in a full-screen terminal board",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), serverURL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", client.DefaultServer, "todo-list server URL")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, serverURL string) error {
	c, err := client.New(serverURL, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(board.New(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(board.Model); ok {
		m.Close()
	}
	return err
}

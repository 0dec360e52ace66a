// Package cli implements the todo command line client.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-list/internal/client"
	"github.com/Tomlord1122/todo-list/internal/domain"
)

const (
	exitSuccess = 0
	exitError   = 1

	// defaultDueIn is added to the current time when insert gets no due date.
	defaultDueIn = 72 * time.Hour

	dateExample = "2025-11-20T23:59:59Z"
)

// now is replaced in tests.
var now = time.Now

type app struct {
	server string
	client *client.Client
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the todo command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "todo",
		Short: "Manage todos on a todo-list server",
		Long: `todo talks to a todo-list server over HTTP.

Dates are ISO 8601, for example ` + dateExample + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(a.server, nil)
			if err != nil {
				return err
			}
			a.client = c
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.server, "server", client.DefaultServer, "todo-list server URL")

	root.AddCommand(
		a.listCmd(),
		a.viewCmd(),
		a.insertCmd(),
		a.updateCmd(),
		a.setCompletedCmd("complete", true),
		a.setCompletedCmd("incomplete", false),
		a.deleteCmd(),
	)
	return root
}

// Execute runs the command line in args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fail(stderr, "Error: "+err.Error())
		return exitError
	}
	return exitSuccess
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, titleStyle.Render("=== All Todos ==="))
			for _, e := range list {
				status := pendingStyle.Render("false")
				if e.Item.Completed {
					status = successStyle.Render("true")
				}
				fmt.Fprintf(a.stdout, "%s %s - %s | Due: %s | Completed: %s\n",
					accentStyle.Render(fmt.Sprintf("[%d]", e.ID)),
					e.Item.Title,
					e.Item.Description,
					e.Item.DueDate.Format(time.RFC3339),
					status,
				)
			}
			return nil
		},
	}
}

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.client.View(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				a.notFound(id)
				return nil
			}
			fmt.Fprintln(a.stdout, titleStyle.Render(fmt.Sprintf("Todo %d", id)))
			fmt.Fprintf(a.stdout, "  Title:       %s\n", item.Title)
			fmt.Fprintf(a.stdout, "  Description: %s\n", item.Description)
			fmt.Fprintf(a.stdout, "  Due:         %s\n", item.DueDate.Format(time.RFC3339))
			fmt.Fprintf(a.stdout, "  Created:     %s\n", item.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(a.stdout, "  Completed:   %t\n", item.Completed)
			return nil
		},
	}
}

func (a *app) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "insert <title> <description> [due_date]",
		Short:   "Add a todo; the due date defaults to three days from now",
		Example: `  todo insert "Buy groceries" "Milk, eggs" "` + dateExample + `"`,
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			created := now().UTC()
			due := created.Add(defaultDueIn)
			if len(args) > 2 {
				d, err := parseDate(args[2])
				if err != nil {
					return err
				}
				due = d
			}

			id, known, err := a.client.Insert(cmd.Context(), domain.TodoItem{
				Title:       args[0],
				Description: args[1],
				DueDate:     due,
				CreatedAt:   created,
			})
			if err != nil {
				return fmt.Errorf("inserting: %w", err)
			}
			if !known {
				ok(a.stdout, "Inserted successfully")
				return nil
			}
			ok(a.stdout, fmt.Sprintf("Inserted successfully with id %d", id))
			return nil
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update <id> <title> <description> <due_date> [completed]",
		Short:   "Replace a todo, creating it if absent",
		Example: `  todo update 1 "Do laundry" "Fold clothes" "2025-11-21T23:59:59Z" true`,
		Args:    cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			due, err := parseDate(args[3])
			if err != nil {
				return err
			}
			completed := false
			if len(args) > 4 {
				// anything unparsable counts as not completed
				completed, _ = strconv.ParseBool(args[4])
			}

			err = a.client.Update(cmd.Context(), id, domain.TodoItem{
				Title:       args[1],
				Description: args[2],
				DueDate:     due,
				CreatedAt:   now().UTC(),
				Completed:   completed,
			})
			if err != nil {
				return fmt.Errorf("updating: %w", err)
			}
			ok(a.stdout, fmt.Sprintf("Updated todo %d successfully", id))
			return nil
		},
	}
}

func (a *app) setCompletedCmd(name string, completed bool) *cobra.Command {
	short := "Mark a todo as done"
	if !completed {
		short = "Mark a todo as not done"
	}
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.client.View(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				a.notFound(id)
				return nil
			}
			item.Completed = completed
			if err := a.client.Update(cmd.Context(), id, *item); err != nil {
				return err
			}
			ok(a.stdout, fmt.Sprintf("%s successfully: todo %d", strings.ToUpper(name), id))
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("deleting: %w", err)
			}
			ok(a.stdout, fmt.Sprintf("Deleted todo %d successfully", id))
			return nil
		},
	}
}

func (a *app) notFound(id uint32) {
	fmt.Fprintln(a.stdout, mutedStyle.Render(fmt.Sprintf("No todo found with id %d", id)))
}

func parseID(s string) (uint32, error) {
	id, err := domain.ParseID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a non-negative integer", s)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due_date %q. Example: %s", s, dateExample)
	}
	return t.UTC(), nil
}

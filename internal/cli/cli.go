// Package cli — команды commentsctl для модерации из терминала.
// Команды работают с тем же хранилищем, что и HTTP-сервис.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/site-comments/internal/app"
	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/service"
)

// Opener открывает сервис по пути к конфигурации; close освобождает ресурсы.
type Opener func(ctx context.Context, configPath string) (svc *service.Service, close func() error, err error)

// OpenApp — Opener по умолчанию: конфигурация через config.Load и сборка через app.New.
func OpenApp(ctx context.Context, configPath string) (*service.Service, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	// Уведомления из CLI не отправляются.
	cfg.Notify.ModeratorContact = ""

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(ctx, *cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}

	return a.Service, func() error { return a.Close(context.Background()) }, nil
}

type runner struct {
	open       Opener
	configPath string
	moderator  string
	timeout    time.Duration
}

// withService открывает сервис на время выполнения fn.
func (r *runner) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), r.timeout)
	defer cancel()

	svc, closeFn, err := r.open(ctx, r.configPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = closeFn() }()

	return fn(ctx, svc)
}

// NewRootCmd собирает дерево команд commentsctl.
func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "commentsctl",
		Short:         "Moderate site comments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&r.configPath, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVar(&r.moderator, "moderator", "", "moderator name recorded in moderatedBy")
	root.PersistentFlags().DurationVar(&r.timeout, "timeout", 30*time.Second, "operation timeout")

	root.AddCommand(
		r.statsCmd(),
		r.listCmd(),
		r.showCmd(),
		r.approveCmd(),
		r.rejectCmd(),
		r.deleteCmd(),
	)

	return root
}

func (r *runner) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show comment counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				st, err := svc.Stats(ctx)
				if err != nil {
					return fmt.Errorf("failed to get stats: %w", err)
				}

				cmd.Printf("total:    %d\n", st.Total)
				cmd.Printf("pending:  %d\n", st.Pending)
				cmd.Printf("approved: %d\n", st.Approved)
				cmd.Printf("flagged:  %d\n", st.Flagged)
				return nil
			})
		},
	}
}

func (r *runner) listCmd() *cobra.Command {
	var page, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List comments for moderation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := models.ParseStatusFilter(status)
			if err != nil {
				return err
			}

			return r.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				items, err := svc.ListAdmin(ctx, models.Filter{PageID: page, Status: f})
				if err != nil {
					return fmt.Errorf("failed to list comments: %w", err)
				}

				if len(items) == 0 {
					cmd.Println("No comments found")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tFLAGGED\tPAGE\tNAME\tCREATED")
				for _, c := range items {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
						c.ID, c.Status, c.Flagged, c.PageID, c.Name, c.CreatedAt.Format(time.RFC3339))
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				cmd.Printf("Total: %d comments\n", len(items))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&page, "page", "p", "", "filter by page id")
	cmd.Flags().StringVarP(&status, "status", "s", "", "all|approved|pending|rejected|flagged (empty means all)")

	return cmd
}

func (r *runner) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [comment-id]",
		Short: "Show a single comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				c, err := svc.CommentByID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get comment: %w", err)
				}

				printComment(cmd, c)
				return nil
			})
		},
	}
}

func (r *runner) approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [comment-id]",
		Short: "Approve a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.moderate(cmd, args[0], service.Approve{})
		},
	}
}

func (r *runner) rejectCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject [comment-id]",
		Short: "Reject a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.moderate(cmd, args[0], service.Reject{Reason: reason})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "rejection reason")

	return cmd
}

func (r *runner) moderate(cmd *cobra.Command, id string, action service.Action) error {
	return r.withService(cmd, func(ctx context.Context, svc *service.Service) error {
		c, err := svc.Moderate(ctx, id, action, r.moderator)
		if err != nil {
			return fmt.Errorf("failed to %s comment: %w", action.Name(), err)
		}

		cmd.Printf("Comment %s is %s\n", c.ID, c.Status)
		return nil
	})
}

func (r *runner) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [comment-id]",
		Short: "Delete a comment permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				ok, err := svc.Delete(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to delete comment: %w", err)
				}

				if !ok {
					return fmt.Errorf("comment %s: %w", args[0], service.ErrNotFound)
				}

				cmd.Printf("Comment %s deleted\n", args[0])
				return nil
			})
		},
	}
}

func printComment(cmd *cobra.Command, c *models.Comment) {
	cmd.Printf("ID:      %s\n", c.ID)
	cmd.Printf("Status:  %s\n", c.Status)
	cmd.Printf("Flagged: %t\n", c.Flagged)
	cmd.Printf("Page:    %s (%s)\n", c.PageID, c.PageTitle)
	cmd.Printf("Name:    %s\n", c.Name)
	if c.Email != "" {
		cmd.Printf("Email:   %s\n", c.Email)
	}
	cmd.Printf("Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	if c.ModeratedBy != "" {
		cmd.Printf("Moderated by: %s\n", c.ModeratedBy)
	}
	if c.RejectionReason != "" {
		cmd.Printf("Reason:  %s\n", c.RejectionReason)
	}
	cmd.Println()
	cmd.Println(c.Message)
}

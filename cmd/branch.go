package cmd

import (
	"context"
	"fmt"

	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/domain"

	"github.com/spf13/cobra"
)

func init() {
	branchCmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage document branches",
	}

	listCmd := &cobra.Command{
		Use:   "list <document>",
		Short: "List branches in creation order, the active one marked with *",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				branches, err := a.BranchService.ListBranches(ctx, args[0])
				if err != nil {
					return err
				}
				printBranches(cmd.OutOrStdout(), branches)
				return nil
			})
		},
	}

	var from int64
	createCmd := &cobra.Command{
		Use:   "create <document> <name>",
		Short: "Create a branch from a revision, the active head by default",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromRevision *int64
			if cmd.Flags().Changed("from") {
				fromRevision = &from
			}
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				b, err := a.BranchService.CreateBranch(ctx, args[0], args[1], fromRevision)
				if err != nil {
					return err
				}
				printBranches(cmd.OutOrStdout(), []*domain.Branch{b})
				return nil
			})
		},
	}
	createCmd.Flags().Int64Var(&from, "from", 0, "fork point revision number")

	switchCmd := &cobra.Command{
		Use:   "switch <document> <name>",
		Short: "Make a branch the active one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				b, err := a.BranchService.SwitchBranch(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to branch '%s'\n", b.Name)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <document> <name>",
		Short: "Delete a branch that has no revisions of its own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				if err := a.BranchService.DeleteBranch(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted branch '%s'\n", args[1])
				return nil
			})
		},
	}

	activeCmd := &cobra.Command{
		Use:   "active <document>",
		Short: "Print the active branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				b, err := a.BranchService.GetActiveBranch(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), b.Name)
				return nil
			})
		},
	}

	branchCmd.AddCommand(listCmd, createCmd, switchCmd, deleteCmd, activeCmd)
	rootCmd.AddCommand(branchCmd)
}

package cmd

import (
	"context"
	"fmt"

	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/service"
	"github.com/haierkeys/prompt-history/pkg/convert"

	"github.com/spf13/cobra"
)

func parseRevisionArgs(args []string) ([]int64, error) {
	numbers := make([]int64, 0, len(args))
	for _, arg := range args {
		n, err := convert.StrTo(arg).Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid revision number %q", arg)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func init() {
	diffCmd := &cobra.Command{
		Use:   "diff <document> <from> <to>",
		Short: "Show the line diff and metadata changes between two revisions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := parseRevisionArgs(args[1:])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				d, err := a.DiffService.ComputeDiff(ctx, args[0], numbers[0], numbers[1])
				if err != nil {
					return err
				}
				printDiff(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}

	var rollbackOpts service.RollbackOptions
	rollbackCmd := &cobra.Command{
		Use:   "rollback <document> <revision>",
		Short: "Append a revision restoring the content of a past one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := parseRevisionArgs(args[1:])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				r, err := a.RollbackService.Rollback(ctx, args[0], numbers[0], rollbackOpts)
				if err != nil {
					return err
				}
				printRevision(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
	rollbackCmd.Flags().StringVarP(&rollbackOpts.Branch, "branch", "b", "", "branch receiving the revision, the active branch when empty")
	rollbackCmd.Flags().StringVarP(&rollbackOpts.ChangeReason, "reason", "r", "", "change reason")

	var mergeReason string
	mergeCmd := &cobra.Command{
		Use:   "merge <document> <source> <target>",
		Short: "Fast-forward merge the source branch head into the target branch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				r, err := a.MergeService.MergeBranch(ctx, args[0], args[1], args[2], mergeReason)
				if err != nil {
					return err
				}
				printRevision(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
	mergeCmd.Flags().StringVarP(&mergeReason, "reason", "r", "", "change reason")

	compareCmd := &cobra.Command{
		Use:   "compare <document> <a> <b>",
		Short: "Count revisions each branch has that the other lacks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				c, err := a.MergeService.CompareBranches(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %d ahead, %d behind %s\n", args[1], c.Ahead, c.Behind, args[2])
				if c.CanMerge {
					fmt.Fprintf(cmd.OutOrStdout(), "%s can be merged into %s\n", args[1], args[2])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s has diverged from %s\n", args[1], args[2])
				}
				return nil
			})
		},
	}

	rootCmd.AddCommand(diffCmd, rollbackCmd, mergeCmd, compareCmd)
}

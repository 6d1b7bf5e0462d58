package cmd

import (
	"context"
	"fmt"

	"github.com/haierkeys/prompt-history/global"
	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/domain"

	"github.com/spf13/cobra"
)

func init() {
	revisionCmd := &cobra.Command{
		Use:   "revision",
		Short: "Create and inspect revisions",
	}

	var (
		branch, content, file, metadata, reason string
	)
	createCmd := &cobra.Command{
		Use:   "create <document>",
		Short: "Append a revision to a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(cmd, content, file)
			if err != nil {
				return err
			}
			meta, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				r, err := a.RevisionService.CreateRevision(ctx, args[0], branch, body, meta, reason)
				if err != nil {
					return err
				}
				printRevision(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
	createCmd.Flags().StringVarP(&branch, "branch", "b", "", "target branch, the active branch when empty")
	createCmd.Flags().StringVar(&content, "content", "", "revision content")
	createCmd.Flags().StringVarP(&file, "file", "f", "", "read content from file, - for stdin")
	createCmd.Flags().StringVar(&metadata, "metadata", "", "metadata as a JSON object")
	createCmd.Flags().StringVarP(&reason, "reason", "r", "", "change reason")

	var dump bool
	showCmd := &cobra.Command{
		Use:   "show <document> <revision>",
		Short: "Show one revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := parseRevisionArgs(args[1:])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				r, err := a.RevisionService.GetRevision(ctx, args[0], numbers[0])
				if err != nil {
					return err
				}
				if dump {
					global.Dump(r)
					return nil
				}
				printRevision(cmd.OutOrStdout(), r)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s", r.Content)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&dump, "dump", false, "dump the raw revision structure")

	var headBranch string
	headCmd := &cobra.Command{
		Use:   "head <document>",
		Short: "Show the head revision of a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				r, err := a.RevisionService.GetHead(ctx, args[0], headBranch)
				if err != nil {
					return err
				}
				printRevision(cmd.OutOrStdout(), r)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s", r.Content)
				return nil
			})
		},
	}
	headCmd.Flags().StringVarP(&headBranch, "branch", "b", "", "branch, the active branch when empty")

	var (
		logBranch string
		limit     int
		offset    int
	)
	logCmd := &cobra.Command{
		Use:   "log <document>",
		Short: "List revisions, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *internalApp.App) error {
				revisions, total, err := a.RevisionService.ListRevisions(ctx, args[0], domain.ListOptions{
					Branch: logBranch,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				printLog(cmd.OutOrStdout(), revisions)
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d revision(s)\n", len(revisions), total)
				return nil
			})
		},
	}
	logCmd.Flags().StringVarP(&logBranch, "branch", "b", "", "only this branch, every branch when empty")
	logCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of revisions")
	logCmd.Flags().IntVar(&offset, "offset", 0, "number of revisions to skip")

	revisionCmd.AddCommand(createCmd, showCmd, headCmd, logCmd)
	rootCmd.AddCommand(revisionCmd)
}

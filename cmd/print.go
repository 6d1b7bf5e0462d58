package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/diff"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	colorHeader  = color.New(color.FgYellow)
	colorHunk    = color.New(color.FgCyan)
	colorAdd     = color.New(color.FgGreen)
	colorRemove  = color.New(color.FgRed)
	colorCurrent = color.New(color.FgGreen, color.Bold)
)

// relativeTime 相对时间，超过一周显示日期
func relativeTime(t time.Time) string {
	if time.Since(t) > 7*24*time.Hour {
		return t.Format(time.DateTime)
	}
	return humanize.Time(t)
}

func printRevision(w io.Writer, r *domain.Revision) {
	colorHeader.Fprintf(w, "revision %d", r.RevisionNumber)
	fmt.Fprintf(w, " (%s)\n", r.Branch)
	if r.ParentRevisionNumber != nil {
		fmt.Fprintf(w, "Parent:  %d\n", *r.ParentRevisionNumber)
	}
	fmt.Fprintf(w, "Date:    %s\n", relativeTime(r.CreatedAt))
	if r.ChangeReason != "" {
		fmt.Fprintf(w, "Reason:  %s\n", r.ChangeReason)
	}
	if len(r.Metadata) > 0 {
		keys := make([]string, 0, len(r.Metadata))
		for k := range r.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "Meta:    %s=%v\n", k, r.Metadata[k])
		}
	}
}

// printLog 一行一个修订
func printLog(w io.Writer, revisions []*domain.Revision) {
	for _, r := range revisions {
		reason := r.ChangeReason
		if reason == "" {
			reason = "-"
		}
		colorHeader.Fprintf(w, "%-6d", r.RevisionNumber)
		fmt.Fprintf(w, " %-16s %-16s %s (%s)\n", r.Branch, relativeTime(r.CreatedAt), reason, humanize.Bytes(uint64(len(r.Content))))
	}
}

func printBranches(w io.Writer, branches []*domain.Branch) {
	for _, b := range branches {
		origin := "-"
		if b.OriginRevisionNumber != nil {
			origin = fmt.Sprintf("%d", *b.OriginRevisionNumber)
		}
		if b.IsActive {
			colorCurrent.Fprintf(w, "* %s", b.Name)
		} else {
			fmt.Fprintf(w, "  %s", b.Name)
		}
		fmt.Fprintf(w, "\torigin %s\t%s\n", origin, relativeTime(b.CreatedAt))
	}
}

// printDiff 彩色统一差异输出
func printDiff(w io.Writer, d *domain.Diff) {
	colorHeader.Fprintf(w, "--- revision %d\n+++ revision %d\n", d.FromRevision, d.ToRevision)
	for _, h := range d.Hunks {
		colorHunk.Fprintln(w, h.Header())
		for _, l := range h.Lines {
			line := l.Tag.Prefix() + l.Text
			switch l.Tag {
			case diff.TagAdd:
				colorAdd.Fprintln(w, line)
			case diff.TagRemove:
				colorRemove.Fprintln(w, line)
			default:
				fmt.Fprintln(w, line)
			}
			if l.NoNewline {
				fmt.Fprintln(w, diff.NoNewlineMarker)
			}
		}
	}
	for _, c := range d.MetadataChanges {
		parts := []string{"metadata", c.Op, c.Path}
		if c.From != "" {
			parts = append(parts, "from "+c.From)
		}
		if c.Value != nil {
			parts = append(parts, fmt.Sprintf("%v", c.Value))
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "%d insertion(s)(+), %d deletion(s)(-)\n", d.Stats.Added, d.Stats.Removed)
}

// Package diff computes line-based unified diffs between two texts
// Package diff 计算两段文本之间基于行的统一格式差异
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext default number of context lines around a change
// DefaultContext 变更前后默认保留的上下文行数
const DefaultContext = 3

// ErrTooManyLines returned when the texts hold more distinct lines than can be encoded
// ErrTooManyLines 当文本中不同行的数量超出可编码范围时返回
var ErrTooManyLines = errors.New("too many distinct lines to diff")

// Tag line tag in a hunk
// Tag 差异块中行的标记
type Tag string

const (
	TagContext Tag = "context"
	TagAdd     Tag = "add"
	TagRemove  Tag = "remove"
)

// Prefix returns the unified diff prefix of the tag
// Prefix 返回标记对应的统一差异前缀
func (t Tag) Prefix() string {
	switch t {
	case TagAdd:
		return "+"
	case TagRemove:
		return "-"
	default:
		return " "
	}
}

// NoNewlineMarker unified diff marker following a line without a trailing newline
// NoNewlineMarker 统一差异格式中跟在无末尾换行的行之后的标记
const NoNewlineMarker = `\ No newline at end of file`

// Line one line of a diff
// Line 差异中的一行
type Line struct {
	Tag  Tag    `json:"tag"`
	Text string `json:"text"`
	// NoNewline the last line of its text, not terminated by a newline
	// NoNewline 文本的最后一行且没有换行结尾
	NoNewline bool `json:"noNewline,omitempty"`
}

// Hunk a contiguous region of change with surrounding context
// Starts are 1-based; an empty range points at the line before it
// Hunk 一段连续变更及其上下文
// 起始行号从 1 开始；空范围指向其前一行
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldLines int    `json:"oldLines"`
	NewStart int    `json:"newStart"`
	NewLines int    `json:"newLines"`
	Lines    []Line `json:"lines"`
}

// Header returns the unified diff hunk header
// Header 返回统一差异格式的块头
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// Stats line counts over the whole edit script
// Stats 整个编辑脚本的行统计
type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Result output of Compute
// Result Compute 的输出
type Result struct {
	Hunks []Hunk `json:"hunks"`
	Stats Stats  `json:"stats"`
}

// SplitLines splits text into lines; a trailing newline does not produce an empty last line
// SplitLines 将文本按行切分，末尾换行不会产生空的最后一行
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineKeys splits text into encoder keys
// An unterminated last line keeps a "\n" suffix, so "a" and "a\n" differ
// lineKeys 将文本切分为编码键，未以换行结尾的最后一行保留 "\n" 后缀，使 "a" 与 "a\n" 不同
func lineKeys(s string) []string {
	keys := SplitLines(s)
	if len(keys) > 0 && !strings.HasSuffix(s, "\n") {
		keys[len(keys)-1] += "\n"
	}
	return keys
}

func keyLine(tag Tag, key string) Line {
	text, noNewline := strings.CutSuffix(key, "\n")
	return Line{Tag: tag, Text: text, NoNewline: noNewline}
}

// lineEncoder maps each distinct line to a rune so the diff runs over lines instead of characters
// lineEncoder 将每个不同的行映射为一个 rune，使差异计算以行为单位
type lineEncoder struct {
	index map[string]rune
	lines []string
	next  rune
}

func newLineEncoder() *lineEncoder {
	// lines[0] is unused, runes start at 1
	return &lineEncoder{index: make(map[string]rune), lines: []string{""}, next: 1}
}

func (e *lineEncoder) encode(lines []string) ([]rune, error) {
	out := make([]rune, len(lines))
	for i, line := range lines {
		r, ok := e.index[line]
		if !ok {
			// Surrogates do not survive a string round trip
			if e.next >= 0xD800 && e.next <= 0xDFFF {
				e.next = 0xE000
			}
			if e.next > 0x10FFFF {
				return nil, ErrTooManyLines
			}
			r = e.next
			e.next++
			e.index[line] = r
			e.lines = append(e.lines, line)
		}
		out[i] = r
	}
	return out, nil
}

func (e *lineEncoder) decode(r rune) string {
	return e.lines[e.lineIndex(r)]
}

func (e *lineEncoder) lineIndex(r rune) int {
	if r >= 0xE000 {
		return int(r) - (0xE000 - 0xD800)
	}
	return int(r)
}

// Lines returns the complete minimal edit script turning a into b
// Lines 返回将 a 转换为 b 的完整最小编辑脚本
func Lines(a, b string) ([]Line, error) {
	enc := newLineEncoder()
	ra, err := enc.encode(lineKeys(a))
	if err != nil {
		return nil, err
	}
	rb, err := enc.encode(lineKeys(b))
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	// No deadline disables the half-match shortcut, keeping the script minimal
	// 不设超时会关闭 half-match 捷径，保证编辑脚本最小
	dmp.DiffTimeout = 0

	diffs := dmp.DiffMainRunes(ra, rb, false)

	script := make([]Line, 0, len(ra)+len(rb))
	for _, d := range diffs {
		tag := TagContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			tag = TagAdd
		case diffmatchpatch.DiffDelete:
			tag = TagRemove
		}
		for _, r := range []rune(d.Text) {
			script = append(script, keyLine(tag, enc.decode(r)))
		}
	}
	return script, nil
}

// Compute diffs a against b and groups the result into hunks with the given context
// A negative context falls back to DefaultContext
// Compute 计算 a 与 b 的差异，并按给定上下文行数分组为差异块
// context 为负数时使用 DefaultContext
func Compute(a, b string, context int) (*Result, error) {
	if context < 0 {
		context = DefaultContext
	}

	script, err := Lines(a, b)
	if err != nil {
		return nil, err
	}

	result := &Result{Hunks: []Hunk{}}
	for _, l := range script {
		switch l.Tag {
		case TagAdd:
			result.Stats.Added++
		case TagRemove:
			result.Stats.Removed++
		default:
			result.Stats.Unchanged++
		}
	}
	result.Hunks = buildHunks(script, context)
	return result, nil
}

func buildHunks(script []Line, context int) []Hunk {
	// oldPos[i] / newPos[i] lines consumed on each side before script[i]
	oldPos := make([]int, len(script)+1)
	newPos := make([]int, len(script)+1)
	var changes []int
	for i, l := range script {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if l.Tag != TagAdd {
			oldPos[i+1]++
		}
		if l.Tag != TagRemove {
			newPos[i+1]++
		}
		if l.Tag != TagContext {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return []Hunk{}
	}

	var hunks []Hunk
	start := changes[0]
	end := changes[0]
	flush := func() {
		from := max(0, start-context)
		to := min(len(script), end+1+context)
		h := Hunk{Lines: append([]Line(nil), script[from:to]...)}
		h.OldLines = oldPos[to] - oldPos[from]
		h.NewLines = newPos[to] - newPos[from]
		h.OldStart = oldPos[from]
		if h.OldLines > 0 {
			h.OldStart++
		}
		h.NewStart = newPos[from]
		if h.NewLines > 0 {
			h.NewStart++
		}
		hunks = append(hunks, h)
	}

	for _, c := range changes[1:] {
		// Context on both sides would touch or overlap, keep one hunk
		if c-end-1 <= 2*context {
			end = c
			continue
		}
		flush()
		start, end = c, c
	}
	flush()
	return hunks
}

// Render formats hunks as unified diff text without file headers
// Render 将差异块格式化为统一差异文本（不含文件头）
func Render(hunks []Hunk) string {
	var sb strings.Builder
	for _, h := range hunks {
		sb.WriteString(h.Header())
		sb.WriteByte('\n')
		for _, l := range h.Lines {
			sb.WriteString(l.Tag.Prefix())
			sb.WriteString(l.Text)
			sb.WriteByte('\n')
			if l.NoNewline {
				sb.WriteString(NoNewlineMarker)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

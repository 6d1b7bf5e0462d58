package domain

import "github.com/haierkeys/prompt-history/pkg/diff"

// Diff 两个修订之间的差异
type Diff struct {
	DocumentID      string
	FromRevision    int64
	ToRevision      int64
	Hunks           []diff.Hunk
	Stats           diff.Stats
	MetadataChanges []MetadataChange
}

// MetadataChange 元数据的一条 JSON Patch 操作
type MetadataChange struct {
	Op    string
	Path  string
	From  string
	Value any
}

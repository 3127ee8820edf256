// Package diff parses the per-file patch text returned by the GitHub API into
// structured fragments for display.
package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/sprite-ai/easygit/internal/model"
)

// File represents a single file in a commit with its parsed fragments.
type File struct {
	OldName      string
	NewName      string
	Status       model.FileStatus
	Fragments    []*gitdiff.TextFragment
	AddedLines   int
	DeletedLines int

	// NoPatch is set when the API sent no patch text, e.g. for binary files
	// or diffs too large to inline.
	NoPatch bool
}

// Name returns the display name for the file.
func (f *File) Name() string {
	if f.Status == model.StatusRenamed && f.OldName != "" && f.OldName != f.NewName {
		return fmt.Sprintf("%s → %s", f.OldName, f.NewName)
	}
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

// DiffSet holds the parsed patches of a commit.
type DiffSet struct {
	Files []*File
}

// Stats returns aggregate statistics.
func (ds *DiffSet) Stats() (files, added, deleted int) {
	files = len(ds.Files)
	for _, f := range ds.Files {
		added += f.AddedLines
		deleted += f.DeletedLines
	}
	return
}

// Stats sums the additions and deletions the API reported for files.
func Stats(files []model.CommitFile) (added, deleted int) {
	for _, f := range files {
		added += f.Additions
		deleted += f.Deletions
	}
	return
}

// ParsePatch parses the hunks of one commit file. The API sends hunks without
// the file header, so a synthetic one is prepended before parsing.
func ParsePatch(cf model.CommitFile) (*File, error) {
	df := &File{
		OldName: cf.PreviousFilename,
		NewName: cf.Filename,
		Status:  cf.Status,
	}
	if df.OldName == "" {
		df.OldName = cf.Filename
	}
	if strings.TrimSpace(cf.Patch) == "" {
		df.NoPatch = true
		return df, nil
	}

	parsed, _, err := gitdiff.Parse(strings.NewReader(syntheticHeader(df) + ensureNewline(cf.Patch)))
	if err != nil {
		return nil, fmt.Errorf("parsing patch for %s: %w", cf.Filename, err)
	}
	if len(parsed) == 0 {
		df.NoPatch = true
		return df, nil
	}

	for _, frag := range parsed[0].TextFragments {
		df.Fragments = append(df.Fragments, frag)
		for _, line := range frag.Lines {
			switch line.Op {
			case gitdiff.OpAdd:
				df.AddedLines++
			case gitdiff.OpDelete:
				df.DeletedLines++
			}
		}
	}
	return df, nil
}

// ParseFiles parses every file of a commit. Files whose patch cannot be
// parsed are kept with NoPatch set rather than failing the whole set.
func ParseFiles(files []model.CommitFile) *DiffSet {
	ds := &DiffSet{}
	for _, cf := range files {
		df, err := ParsePatch(cf)
		if err != nil {
			df = &File{OldName: cf.PreviousFilename, NewName: cf.Filename, Status: cf.Status, NoPatch: true}
		}
		ds.Files = append(ds.Files, df)
	}
	return ds
}

func syntheticHeader(f *File) string {
	oldPath, newPath := "a/"+f.OldName, "b/"+f.NewName
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git %s %s\n", oldPath, newPath)
	switch f.Status {
	case model.StatusAdded:
		b.WriteString("new file mode 100644\n")
		oldPath = "/dev/null"
	case model.StatusRemoved:
		b.WriteString("deleted file mode 100644\n")
		newPath = "/dev/null"
	case model.StatusRenamed:
		if f.OldName != f.NewName {
			fmt.Fprintf(&b, "rename from %s\nrename to %s\n", f.OldName, f.NewName)
		}
	}
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldPath, newPath)
	return b.String()
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

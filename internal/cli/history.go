package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/diff"
	"github.com/sprite-ai/easygit/internal/model"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your repositories",
	Args:  cobra.NoArgs,
	RunE:  runRepos,
}

var commitsCmd = &cobra.Command{
	Use:   "commits <owner/repo>",
	Short: "List recent commits of a branch",
	Long: `List up to 100 recent commits of a repository branch, newest first.
The default branch is used unless --branch is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommits,
}

var showCmd = &cobra.Command{
	Use:   "show <owner/repo> <sha>",
	Short: "Show the files changed by a commit",
	Long: `Show a commit's message and the files it changed. With --patch the
per-file diff text is printed as well.`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	for _, c := range []*cobra.Command{reposCmd, commitsCmd, showCmd} {
		c.Flags().StringP("format", "f", "text", "output format: text, json, markdown")
	}
	commitsCmd.Flags().StringP("branch", "b", "", "branch to list (default: the repository's default branch)")
	showCmd.Flags().BoolP("patch", "p", false, "print the patch of every file")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json", "markdown":
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or markdown)", format)
}

func runRepos(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	repos, err := e.gateway.ListRepositories(ctx, sess.Token)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		type jsonRepo struct {
			ID            int64  `json:"id"`
			FullName      string `json:"full_name"`
			Private       bool   `json:"private"`
			DefaultBranch string `json:"default_branch"`
			Description   string `json:"description,omitempty"`
		}
		list := make([]jsonRepo, 0, len(repos))
		for _, r := range repos {
			list = append(list, jsonRepo{r.ID, r.FullName, r.Private, r.DefaultBranch, r.Description})
		}
		return writeJSON(out, list)
	case "markdown":
		fmt.Fprintln(out, "| Repository | Branch | Visibility |")
		fmt.Fprintln(out, "|------------|--------|------------|")
		for _, r := range repos {
			fmt.Fprintf(out, "| `%s` | %s | %s |\n", r.FullName, r.DefaultBranch, visibility(r))
		}
	default:
		if len(repos) == 0 {
			fmt.Fprintln(out, "No repositories.")
			return nil
		}
		for _, r := range repos {
			fmt.Fprintf(out, "%-40s %-12s %s\n", r.FullName, r.DefaultBranch, visibility(r))
		}
	}
	return nil
}

func runCommits(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session(cmd.Context())
	if err != nil {
		return err
	}
	repo, err := e.findRepo(cmd.Context(), sess, args[0])
	if err != nil {
		return err
	}
	branch, _ := cmd.Flags().GetString("branch")
	if branch == "" {
		branch = repo.DefaultBranch
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	commits, err := e.gateway.ListCommits(ctx, sess.Token, repo.Owner(), repo.Name, branch)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		type jsonCommit struct {
			SHA     string    `json:"sha"`
			Message string    `json:"message"`
			Author  string    `json:"author"`
			Date    time.Time `json:"date"`
			URL     string    `json:"html_url,omitempty"`
		}
		list := make([]jsonCommit, 0, len(commits))
		for _, c := range commits {
			list = append(list, jsonCommit{c.SHA, c.ShortMessage, authorOf(c), c.AuthorDate, c.HTMLURL})
		}
		return writeJSON(out, list)
	case "markdown":
		fmt.Fprintf(out, "## %s (%s)\n\n", repo.FullName, branch)
		fmt.Fprintln(out, "| SHA | Message | Author | Date |")
		fmt.Fprintln(out, "|-----|---------|--------|------|")
		for _, c := range commits {
			fmt.Fprintf(out, "| `%s` | %s | %s | %s |\n", c.ShortSHA(), escapePipes(c.ShortMessage), authorOf(c), c.AuthorDate.Format("2006-01-02"))
		}
	default:
		fmt.Fprintf(out, "%s (%s), %d commit(s)\n\n", repo.FullName, branch, len(commits))
		for _, c := range commits {
			fmt.Fprintf(out, "  %s %s  %s · %s\n", c.ShortSHA(), c.ShortMessage, authorOf(c), c.AuthorDate.Format("2006-01-02"))
		}
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session(cmd.Context())
	if err != nil {
		return err
	}
	repo, err := e.findRepo(cmd.Context(), sess, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	detail, err := e.gateway.GetCommitDetail(ctx, sess.Token, repo.Owner(), repo.Name, args[1])
	if err != nil {
		return err
	}
	withPatch, _ := cmd.Flags().GetBool("patch")

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		type jsonFile struct {
			Filename         string `json:"filename"`
			PreviousFilename string `json:"previous_filename,omitempty"`
			Status           string `json:"status"`
			Additions        int    `json:"additions"`
			Deletions        int    `json:"deletions"`
			Patch            string `json:"patch,omitempty"`
		}
		type jsonDetail struct {
			SHA     string     `json:"sha"`
			Message string     `json:"message"`
			Author  string     `json:"author"`
			Date    time.Time  `json:"date"`
			Files   []jsonFile `json:"files"`
		}
		d := jsonDetail{
			SHA:     detail.SHA,
			Message: detail.Message,
			Author:  detail.AuthorName,
			Date:    detail.AuthorDate,
			Files:   make([]jsonFile, 0, len(detail.Files)),
		}
		for _, f := range detail.Files {
			jf := jsonFile{f.Filename, f.PreviousFilename, f.Status.String(), f.Additions, f.Deletions, ""}
			if withPatch {
				jf.Patch = f.Patch
			}
			d.Files = append(d.Files, jf)
		}
		return writeJSON(out, d)
	case "markdown":
		added, deleted := diff.Stats(detail.Files)
		fmt.Fprintf(out, "## `%s` %s\n\n", model.ShortSHA(detail.SHA), model.FirstLine(detail.Message))
		fmt.Fprintf(out, "**%d file(s)** changed, **+%d** insertions, **-%d** deletions\n\n", len(detail.Files), added, deleted)
		fmt.Fprintln(out, "| Status | File | + | - |")
		fmt.Fprintln(out, "|--------|------|---|---|")
		for _, f := range detail.Files {
			fmt.Fprintf(out, "| %s | `%s` | %d | %d |\n", f.Status, f.Filename, f.Additions, f.Deletions)
		}
		if withPatch {
			for _, f := range detail.Files {
				if f.Patch == "" {
					continue
				}
				fmt.Fprintf(out, "\n### %s\n\n```diff\n%s\n```\n", f.Filename, strings.TrimRight(f.Patch, "\n"))
			}
		}
	default:
		fmt.Fprintf(out, "commit %s\nAuthor: %s\nDate:   %s\n\n", detail.SHA, detail.AuthorName, detail.AuthorDate.Format(time.RFC1123Z))
		for _, line := range strings.Split(strings.TrimRight(detail.Message, "\n"), "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
		printStat(out, diff.ParseFiles(detail.Files))
		if withPatch {
			for _, f := range detail.Files {
				if f.Patch == "" {
					continue
				}
				fmt.Fprintf(out, "\n--- %s\n%s\n", f.Filename, strings.TrimRight(f.Patch, "\n"))
			}
		}
	}
	return nil
}

func printStat(out io.Writer, ds *diff.DiffSet) {
	files, added, deleted := ds.Stats()
	fmt.Fprintf(out, "%d file(s) changed, %d insertions(+), %d deletions(-)\n\n", files, added, deleted)
	for _, f := range ds.Files {
		note := ""
		if f.NoPatch {
			note = "  (no textual diff)"
		}
		fmt.Fprintf(out, "  %s %-50s +%-4d -%d%s\n", statusLetter(f.Status), f.Name(), f.AddedLines, f.DeletedLines, note)
	}
}

func statusLetter(s model.FileStatus) string {
	switch s {
	case model.StatusAdded:
		return "A"
	case model.StatusRemoved:
		return "D"
	case model.StatusRenamed:
		return "R"
	case model.StatusCopied:
		return "C"
	default:
		return "M"
	}
}

func visibility(r model.Repository) string {
	if r.Private {
		return "private"
	}
	return "public"
}

func authorOf(c model.CommitSummary) string {
	if c.AuthorLogin != "" {
		return c.AuthorLogin
	}
	return c.AuthorName
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

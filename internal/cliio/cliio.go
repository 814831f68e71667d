package cliio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// SafetyAction is a user decision at a safety prompt.
type SafetyAction string

const (
	ActionSkip     SafetyAction = "s"
	ActionContinue SafetyAction = "c"
	ActionQuit     SafetyAction = "q"
)

// PromptYesNo writes prompt and reads a yes/no response from input.
func PromptYesNo(out io.Writer, in io.Reader, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	choice := strings.ToLower(strings.TrimSpace(line))
	return choice == "y" || choice == "yes", nil
}

// PromptSafetyAction presents detected safety issues for a repository
// and reads a skip/continue/quit decision, re-asking on invalid input.
// EOF on input resolves to skip, the safe default for non-interactive
// callers that reached the prompt anyway.
func PromptSafetyAction(out io.Writer, in io.Reader, repoName string, issues []string) (SafetyAction, error) {
	_, _ = fmt.Fprintf(out, "\n%s has unsaved work:\n", repoName)
	for _, issue := range issues {
		_, _ = fmt.Fprintf(out, "  - %s\n", issue)
	}
	_, _ = fmt.Fprintln(out, "\n  s) skip this repository")
	_, _ = fmt.Fprintln(out, "  c) continue anyway (local work may be lost)")
	_, _ = fmt.Fprintln(out, "  q) quit")

	reader := bufio.NewReader(in)
	for {
		_, _ = fmt.Fprint(out, "choice [s/c/q]: ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return ActionSkip, nil
		}
		if err != nil {
			return ActionSkip, err
		}
		switch SafetyAction(strings.ToLower(strings.TrimSpace(line))) {
		case ActionSkip:
			return ActionSkip, nil
		case ActionContinue:
			return ActionContinue, nil
		case ActionQuit:
			return ActionQuit, nil
		}
		_, _ = fmt.Fprintln(out, "please enter s, c, or q")
	}
}

// WriteTable renders a simple tab-separated table with optional headers.
func WriteTable(out io.Writer, noHeaders bool, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if !noHeaders {
		if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Package model defines the core data types used throughout reposync.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Repo describes one remote repository as returned by the hosting API.
type Repo struct {
	// Name is the repository name, unique within the owner's namespace.
	Name string `json:"name" yaml:"name"`
	// FullName is "owner/name".
	FullName string `json:"full_name" yaml:"full_name"`
	// CloneURLHTTPS is the HTTPS clone URL.
	CloneURLHTTPS string `json:"clone_url" yaml:"clone_url"`
	// CloneURLSSH is the SSH clone URL. May be empty.
	CloneURLSSH string `json:"ssh_url" yaml:"ssh_url"`
	// DefaultBranch is the remote default branch.
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	// Private indicates a private repository.
	Private bool `json:"private" yaml:"private"`
	// Archived indicates an archived repository.
	Archived bool `json:"archived" yaml:"archived"`
	// Fork indicates the repository is a fork.
	Fork bool `json:"fork" yaml:"fork"`
}

// Validate checks that the descriptor is safe to use. Name is later
// joined onto a filesystem destination, so traversal sequences and
// separators are rejected outright.
func (r Repo) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("repository has no usable name")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("repository name %q contains path separators or traversal sequences", r.Name)
	}
	if strings.TrimSpace(r.CloneURLHTTPS) == "" && strings.TrimSpace(r.CloneURLSSH) == "" {
		return fmt.Errorf("repository %q has no clone URL", r.Name)
	}
	return nil
}

// Safety issue vocabulary. The checker reports only these strings.
const (
	IssueUncommitted = "uncommitted changes present"
	IssueUnpushed    = "unpushed commits present"
	IssueStash       = "stash entries present"
)

// SafetyReport is the result of inspecting a local clone before a
// potentially destructive operation.
type SafetyReport struct {
	// Issues is the list of detected safety issues, drawn from the
	// fixed vocabulary above.
	Issues []string `json:"issues" yaml:"issues"`
}

// HasBlockingIssues reports whether any issue was detected.
func (s SafetyReport) HasBlockingIssues() bool { return len(s.Issues) > 0 }

// RepoError records one repository-level or run-level failure.
type RepoError struct {
	// Name is the repository name, or empty for run-level failures.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Err is the underlying failure.
	Err error `json:"-" yaml:"-"`
}

func (e RepoError) Error() string {
	if e.Name == "" {
		return e.Err.Error()
	}
	return e.Name + ": " + e.Err.Error()
}

func (e RepoError) Unwrap() error { return e.Err }

// SyncOutcome is the aggregate result of one sync run.
type SyncOutcome struct {
	// Success is true iff the run itself completed. Per-repo failures
	// do not flip it to false.
	Success bool `json:"success" yaml:"success"`
	// Synced lists repositories that completed successfully, in
	// processing order.
	Synced []string `json:"synced" yaml:"synced"`
	// Errors holds one record per repository-level or run-level failure.
	Errors []RepoError `json:"errors" yaml:"errors"`
	// Timestamp is set at construction.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewSyncOutcome returns an empty outcome stamped with the current time.
func NewSyncOutcome() *SyncOutcome {
	return &SyncOutcome{Timestamp: time.Now()}
}

// AddError appends a failure record for the named repository. An empty
// name marks a run-level failure.
func (o *SyncOutcome) AddError(name string, err error) {
	o.Errors = append(o.Errors, RepoError{Name: name, Err: err})
}

// Fail marks the outcome as a run-level failure with err as the sole error.
func (o *SyncOutcome) Fail(err error) *SyncOutcome {
	o.Success = false
	o.Errors = append(o.Errors, RepoError{Err: err})
	return o
}

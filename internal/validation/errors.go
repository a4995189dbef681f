// Package validation turns loosely typed transaction input into validated drafts.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// IssueKind classifies why a field was rejected.
type IssueKind string

// Issue kinds.
const (
	KindInvalidAmount IssueKind = "InvalidAmount"
	KindInvalidDate   IssueKind = "InvalidDate"
	KindMissingField  IssueKind = "MissingField"
	KindInvalidEnum   IssueKind = "InvalidEnum"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Field   string
	Kind    IssueKind
	Message string
}

// String renders the issue as "field: message".
func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// Error reports every issue found in one record.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", common.ErrValidationFailed, strings.Join(e.Messages(), "; "))
}

// Is makes the error match common.ErrValidationFailed.
func (e *Error) Is(target error) bool {
	return target == common.ErrValidationFailed
}

// Messages returns the issues as "field: message" lines in field order.
func (e *Error) Messages() []string {
	out := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		out[i] = issue.String()
	}
	return out
}

// HasField reports whether any issue concerns field.
func (e *Error) HasField(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}

// BatchError reports validation failures for items of a batch, keyed by
// 1-based position.
type BatchError struct {
	Failures map[int]*Error
}

func (e *BatchError) Error() string {
	idx := e.Indexes()
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("item %d: %s", i, strings.Join(e.Failures[i].Messages(), "; ")))
	}
	return fmt.Sprintf("%v: %d of batch rejected (%s)", common.ErrValidationFailed, len(idx), strings.Join(parts, ", "))
}

// Is makes the error match common.ErrValidationFailed.
func (e *BatchError) Is(target error) bool {
	return target == common.ErrValidationFailed
}

// Indexes returns the failing positions in ascending order.
func (e *BatchError) Indexes() []int {
	idx := make([]int, 0, len(e.Failures))
	for i := range e.Failures {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// collector accumulates issues in the order fields are checked.
type collector struct {
	issues []Issue
}

func (c *collector) add(field string, kind IssueKind, msg string) {
	c.issues = append(c.issues, Issue{Field: field, Kind: kind, Message: msg})
}

func (c *collector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &Error{Issues: c.issues}
}

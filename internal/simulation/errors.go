package simulation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ValidationError lists every input field that failed its checks. No simulation runs while
// any field is invalid.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := lo.Keys(e.Fields)
	slices.Sort(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		return k + " " + e.Fields[k]
	})
	return "invalid input: " + strings.Join(parts, "; ")
}

// mergeValidation folds the fields of extra into err. err may be nil or a non-validation
// error, in which case extra is returned unchanged.
func mergeValidation(err, extra error) error {
	var base, more *ValidationError
	if !errors.As(err, &base) || !errors.As(extra, &more) {
		return extra
	}
	return &ValidationError{Fields: lo.Assign(base.Fields, more.Fields)}
}

// ComputationError aborts a run whose intermediate state is inconsistent. The whole ledger is
// discarded.
type ComputationError struct {
	Year int    `json:"year"`
	Msg  string `json:"error"`
	Err  error  `json:"-"`
}

func (e *ComputationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("simulation failed in %d: %s: %v", e.Year, e.Msg, e.Err)
	}
	return fmt.Sprintf("simulation failed in %d: %s", e.Year, e.Msg)
}

func (e *ComputationError) Unwrap() error { return e.Err }

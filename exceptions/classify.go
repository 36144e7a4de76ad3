package exceptions

import (
	"errors"
	"sync"

	"github.com/glimte/courier-go/contracts"
)

// Rule inspects a failed request and its raw failure. It returns nil to
// defer to the next rule.
type Rule func(req *contracts.Request, reason error) *Exception

var (
	rulesMu   sync.RWMutex
	userRules []Rule
)

var codeRules = []Rule{
	cancelRule,
	codeRule(CodeConnRefused, KindConnect),
	codeRule(CodeConnReset, KindSocket),
	codeRule(CodeConnAborted, KindTimeout),
	codeRule(CodeTimedOut, KindTimeout),
}

// RegisterRule adds a process-wide rule evaluated after the built-in code
// rules and before the generic I/O fallback. Rules must be registered
// before any client starts issuing requests.
func RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	rulesMu.Lock()
	defer rulesMu.Unlock()
	userRules = append(userRules, rule)
}

// ResetRules drops every rule added with RegisterRule
func ResetRules() {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	userRules = nil
}

// Classify maps a raw failure to an *Exception. It returns nil when reason
// is nil. The first rule producing an exception wins.
func Classify(req *contracts.Request, reason error) *Exception {
	var exc *Exception
	if errors.As(reason, &exc) {
		return exc
	}
	if reason == nil {
		return nil
	}

	for _, rule := range codeRules {
		if exc := rule(req, reason); exc != nil {
			return exc
		}
	}

	rulesMu.RLock()
	extra := userRules
	rulesMu.RUnlock()
	for _, rule := range extra {
		if exc := rule(req, reason); exc != nil {
			return exc
		}
	}

	return newException(KindIO, req, reason, CodeOf(reason))
}

func cancelRule(req *contracts.Request, reason error) *Exception {
	if req == nil || !req.IsCancel() || CodeOf(reason) != "" {
		return nil
	}
	exc := newException(KindCancel, req, reason, "")
	if cause := req.CancelCause(); cause != nil {
		exc.Message = cause.Error()
	}
	return exc
}

func codeRule(code string, kind Kind) Rule {
	return func(req *contracts.Request, reason error) *Exception {
		if CodeOf(reason) != code {
			return nil
		}
		return newException(kind, req, reason, code)
	}
}

func newException(kind Kind, req *contracts.Request, reason error, code string) *Exception {
	exc := &Exception{
		Kind:    kind,
		Message: reason.Error(),
		Code:    code,
		Cause:   reason,
	}
	if req != nil {
		exc.RequestID = req.ID
		exc.Route = req.Route()
	}
	return exc
}

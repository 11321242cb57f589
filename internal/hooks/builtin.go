package hooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
)

// NewSyntaxCheckHook returns the critical, blocking brace/paren balance
// check that runs before conversion and validation. Unbalanced input is
// not worth handing to an agent.
func NewSyntaxCheckHook() *Hook {
	return &Hook{
		ID:         "syntax-check",
		Name:       "Syntax balance check",
		Tier:       TierCritical,
		Operations: []string{OpPreConversion, OpPreValidation},
		Enabled:    true,
		Blocking:   true,
		Timeout:    5 * time.Second,
		Run: func(ctx context.Context, input Input) Result {
			if err := checkBalance(input.Content); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			return Result{Success: true}
		},
	}
}

// checkBalance verifies (), [] and {} nest correctly, skipping string
// and char literals and line comments.
func checkBalance(content string) error {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	line := 1
	inString, inChar, inComment := false, false, false
	var prev byte
	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '\n' {
			line++
			inComment = false
			prev = c
			continue
		}
		switch {
		case inComment:
		case inString:
			if c == '"' && prev != '\\' {
				inString = false
			}
		case inChar:
			if c == '\'' && prev != '\\' {
				inChar = false
			}
		case c == '/' && i+1 < len(content) && content[i+1] == '/':
			inComment = true
		case c == '"':
			inString = true
		case c == '\'':
			inChar = true
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return fmt.Errorf("unbalanced %q at line %d", string(c), line)
			}
			stack = stack[:len(stack)-1]
		}
		prev = c
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q at end of input", string(stack[len(stack)-1]))
	}
	return nil
}

// NewFormattingHook returns the non-blocking whitespace normalizer that
// runs after conversion: trims trailing whitespace, collapses runs of
// blank lines, and ensures a final newline.
func NewFormattingHook() *Hook {
	return &Hook{
		ID:         "formatting",
		Name:       "Whitespace normalization",
		Tier:       TierNormal,
		Operations: []string{OpPostConversion},
		Enabled:    true,
		Blocking:   false,
		Timeout:    5 * time.Second,
		Run: func(ctx context.Context, input Input) Result {
			formatted := normalizeWhitespace(input.Content)
			return Result{
				Success:  true,
				Modified: formatted != input.Content,
				Output:   formatted,
			}
		},
	}
}

// normalizeWhitespace trims trailing spaces, collapses 2+ consecutive
// blank lines into one, and guarantees a trailing newline.
func normalizeWhitespace(content string) string {
	if content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	var out []string
	blanks := 0
	for _, l := range lines {
		trimmed := strings.TrimRight(l, " \t")
		if trimmed == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, trimmed)
	}
	result := strings.Join(out, "\n")
	result = strings.TrimRight(result, "\n") + "\n"
	return result
}

// sourcePatterns are the C# idioms the pattern-learning hook counts.
// They map to conversion strategies the converter recalls later.
var sourcePatterns = map[string]string{
	"linq":     ".Select(",
	"async":    "async ",
	"using":    "using (",
	"foreach":  "foreach (",
	"event":    "event ",
	"property": "{ get;",
	"delegate": "delegate",
}

// NewPatternLearningHook returns the low-priority hook that counts
// known source idioms in the input and records them through the store,
// so agents can consult prior pattern frequency.
func NewPatternLearningHook(store persistence.Store) *Hook {
	return &Hook{
		ID:         "pattern-learning",
		Name:       "Source pattern learning",
		Tier:       TierLow,
		Operations: []string{OpPreConversion},
		Enabled:    true,
		Blocking:   false,
		Timeout:    10 * time.Second,
		Run: func(ctx context.Context, input Input) Result {
			var warnings []string
			for name, marker := range sourcePatterns {
				count := strings.Count(input.Content, marker)
				if count == 0 {
					continue
				}
				key := fmt.Sprintf("pattern:%s:%s", name, input.File)
				importance := 0.3 + float64(count)*0.05
				if importance > 1 {
					importance = 1
				}
				if err := store.Store(ctx, key, fmt.Sprintf("%d", count), importance); err != nil {
					warnings = append(warnings, fmt.Sprintf("failed to record pattern %s: %v", name, err))
				}
			}
			return Result{Success: true, Warnings: warnings}
		},
	}
}

// residueMarkers are source-language constructs that must not survive
// conversion into the Rust output.
var residueMarkers = []string{
	"using System",
	"namespace ",
	"public class ",
	"Console.WriteLine",
	"System.Collections",
}

// NewConversionValidationHook returns the blocking output check that
// runs after conversion: the result must be non-empty and free of
// leftover source-language constructs.
func NewConversionValidationHook() *Hook {
	return &Hook{
		ID:         "conversion-validation",
		Name:       "Converted output validation",
		Tier:       TierHigh,
		Operations: []string{OpPostConversion, OpPostValidation},
		Enabled:    true,
		Blocking:   true,
		Timeout:    5 * time.Second,
		Run: func(ctx context.Context, input Input) Result {
			if strings.TrimSpace(input.Content) == "" {
				return Result{Success: false, Error: "conversion produced empty output"}
			}
			for _, marker := range residueMarkers {
				if strings.Contains(input.Content, marker) {
					return Result{
						Success: false,
						Error:   fmt.Sprintf("unconverted source construct %q remains in output", marker),
					}
				}
			}

			var warnings []string
			if strings.Contains(input.Content, "unsafe ") {
				warnings = append(warnings, "output contains unsafe blocks")
			}
			if strings.Contains(input.Content, "unwrap()") {
				warnings = append(warnings, "output calls unwrap(), consider explicit error handling")
			}
			return Result{Success: true, Warnings: warnings}
		},
	}
}

// DefaultHooks returns the built-in hook set in one slice, ready to
// register on a fresh pipeline.
func DefaultHooks(store persistence.Store) []*Hook {
	return []*Hook{
		NewSyntaxCheckHook(),
		NewConversionValidationHook(),
		NewFormattingHook(),
		NewPatternLearningHook(store),
	}
}

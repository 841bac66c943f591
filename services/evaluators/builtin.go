package evaluators

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Builtins returns the evaluators registered by default in the gateway.
func Builtins() []*Named {
	return []*Named{
		NewNamed(ScoreFunc(responseLength), "length", "Number of characters in the response"),
		NewNamed(ScoreFunc(echoesInput), "echoes_input", "1 when the response contains the input verbatim, else 0"),
		NewNamed(ScoreFunc(nonEmpty), "non_empty", "1 when the response has non-whitespace text, else 0"),
	}
}

// ContainsText scores 1 when the response contains substr, ignoring case.
func ContainsText(substr string) *Named {
	needle := strings.ToLower(substr)
	return NewNamed(ScoreFunc(func(_ string, response any) float64 {
		return boolScore(strings.Contains(strings.ToLower(text(response)), needle))
	}), "contains_"+substr, fmt.Sprintf("1 when the response mentions %q, else 0", substr))
}

func responseLength(_ string, response any) float64 {
	return float64(utf8.RuneCountInString(text(response)))
}

func echoesInput(input string, response any) float64 {
	return boolScore(input != "" && strings.Contains(text(response), input))
}

func nonEmpty(_ string, response any) float64 {
	return boolScore(strings.TrimSpace(text(response)) != "")
}

func text(response any) string {
	switch v := response.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

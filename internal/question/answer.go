package question

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// AnswerKind discriminates the variants of Answer.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerText
	AnswerBool
	AnswerList
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerBool:
		return "bool"
	case AnswerList:
		return "list"
	default:
		return "none"
	}
}

// Answer is a submitted answer: a string, a boolean, or an ordered list of strings.
type Answer struct {
	Kind AnswerKind
	Text string
	Bool bool
	List []string
}

// TextAnswer builds a string answer.
func TextAnswer(s string) Answer { return Answer{Kind: AnswerText, Text: s} }

// BoolAnswer builds a boolean answer.
func BoolAnswer(b bool) Answer { return Answer{Kind: AnswerBool, Bool: b} }

// ListAnswer builds a list answer.
func ListAnswer(items ...string) Answer { return Answer{Kind: AnswerList, List: items} }

// String renders the answer for logs and reports.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerText:
		return a.Text
	case AnswerBool:
		return strconv.FormatBool(a.Bool)
	case AnswerList:
		return strings.Join(a.List, ", ")
	default:
		return ""
	}
}

// UnmarshalJSON picks the variant from the JSON token kind. Numbers are kept as text.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = BoolAnswer(b)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("list answer must contain strings: %w", err)
		}
		*a = ListAnswer(items...)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported answer value: %s", string(data))
		}
		*a = TextAnswer(n.String())
	}
	return nil
}

// MarshalJSON encodes the active variant.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerText:
		return json.Marshal(a.Text)
	case AnswerBool:
		return json.Marshal(a.Bool)
	case AnswerList:
		if a.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.List)
	default:
		return []byte("null"), nil
	}
}

// Evaluate checks a submitted answer against the question's type.
func Evaluate(q Question, a Answer) (bool, error) {
	switch q.Type {
	case MultipleChoice:
		return evaluateChoice(q, a)
	case TrueFalse:
		return evaluateTrueFalse(q, a)
	default:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return false, fmt.Errorf("question %s has no correct answer", q.ID)
		}
		var given string
		switch a.Kind {
		case AnswerText:
			given = a.Text
		case AnswerList:
			given = strings.Join(a.List, " ")
		case AnswerBool:
			given = strconv.FormatBool(a.Bool)
		default:
			return false, nil
		}
		return fold(given) == fold(q.CorrectAnswer), nil
	}
}

func evaluateChoice(q Question, a Answer) (bool, error) {
	correct := make(map[string]bool)
	for _, o := range q.Options {
		if o.IsCorrect {
			correct[norm.NFC.String(strings.TrimSpace(o.Text))] = true
		}
	}
	if len(correct) == 0 {
		return false, fmt.Errorf("question %s has no correct option", q.ID)
	}

	switch a.Kind {
	case AnswerText:
		return correct[norm.NFC.String(strings.TrimSpace(a.Text))] && len(correct) == 1, nil
	case AnswerList:
		seen := make(map[string]bool)
		for _, item := range a.List {
			key := norm.NFC.String(strings.TrimSpace(item))
			if !correct[key] {
				return false, nil
			}
			seen[key] = true
		}
		return len(seen) == len(correct), nil
	default:
		return false, nil
	}
}

func evaluateTrueFalse(q Question, a Answer) (bool, error) {
	want := strings.TrimSpace(q.CorrectAnswer)
	if want == "" {
		return false, fmt.Errorf("question %s has no correct answer", q.ID)
	}
	switch a.Kind {
	case AnswerBool:
		b, err := strconv.ParseBool(strings.ToLower(want))
		if err != nil {
			return false, fmt.Errorf("question %s: correct answer %q is not a boolean", q.ID, want)
		}
		return a.Bool == b, nil
	case AnswerText:
		return fold(a.Text) == fold(want), nil
	default:
		return false, nil
	}
}

// fold trims, normalizes and case-folds s for comparison.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Fingerprint identifies a question by its normalized content. Two questions
// with the same text, type, subject and topic share a fingerprint.
func Fingerprint(q Question) string {
	parts := []string{fold(q.Text), string(q.Type), fold(q.Subject), fold(q.Topic)}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

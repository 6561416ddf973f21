package generator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

const maxKeyTerms = 10

var (
	termPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	titleCaser  = cases.Title(language.English)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {},
}

// KeyTerms returns up to ten distinct lower-cased words of three or more
// letters, in order of first appearance, skipping stop words.
func KeyTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxKeyTerms {
			break
		}
	}
	return terms
}

// Offline builds count template questions from the key terms of text,
// alternating multiple choice (intermediate) and true/false (beginner).
func Offline(text string, count int, subject string) []question.Question {
	terms := KeyTerms(text)
	source := excerpt(text)
	now := time.Now()

	out := make([]question.Question, 0, count)
	for i := range count {
		term := "concept"
		if len(terms) > 0 {
			term = terms[i%len(terms)]
		}
		topic := titleCaser.String(term)

		q := question.Question{
			ID:          question.NewID(),
			Subject:     subject,
			Topic:       topic,
			SourceText:  source,
			AIGenerated: true,
			CreatedAt:   now,
		}
		if i%2 == 0 {
			q.Type = question.MultipleChoice
			q.Difficulty = question.Intermediate
			q.Text = fmt.Sprintf("What is the significance of %s in the context of %s?", term, subject)
			q.Options = []question.Option{
				{Text: fmt.Sprintf("It is fundamental to understanding %s", subject), IsCorrect: true},
				{Text: fmt.Sprintf("It has no relevance to %s", subject)},
				{Text: fmt.Sprintf("It only applies in advanced %s", subject)},
				{Text: fmt.Sprintf("It is outdated in modern %s", subject)},
			}
			q.Explanation = fmt.Sprintf("The term %s is significant in %s according to the source material.", term, subject)
		} else {
			q.Type = question.TrueFalse
			q.Difficulty = question.Beginner
			q.Text = fmt.Sprintf("%s is a fundamental concept in %s.", topic, subject)
			q.CorrectAnswer = "true"
			q.Explanation = fmt.Sprintf("The source material presents %s as relevant to %s.", term, subject)
		}
		out = append(out, q)
	}
	return out
}

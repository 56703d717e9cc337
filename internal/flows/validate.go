package flows

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ziadkadry99/convobot/internal/corpus"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Boolean answers accept a closed token set; anything else re-prompts.
var affirmativeTokens = map[string]bool{"yes": true, "y": true, "true": true}
var negativeTokens = map[string]bool{"no": true, "n": true, "false": true}

// Accepted layouts for datetime answers, most specific first.
var datetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

// validateAnswer checks an answer against a field spec. It returns the
// normalized value to store, or a corrective message telling the user what
// the field expects. Validation never fails the turn.
func validateAnswer(field corpus.FieldSpec, answer string) (value string, problem string) {
	answer = strings.TrimSpace(answer)

	if answer == "" {
		if field.IsRequired() {
			return "", "This question is required."
		}
		return "", ""
	}

	switch field.Type {
	case corpus.FieldText:
		if field.Pattern != "" {
			re, err := regexp.Compile(field.Pattern)
			if err == nil && !re.MatchString(answer) {
				return "", "I didn't quite catch that."
			}
		}
		return answer, ""

	case corpus.FieldEmail:
		if !emailPattern.MatchString(answer) {
			return "", "That doesn't look like an email address."
		}
		return strings.ToLower(answer), ""

	case corpus.FieldNumber:
		n, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return "", "Please enter a valid number."
		}
		if field.Min != nil && n < *field.Min {
			return "", fmt.Sprintf("Please enter a number of at least %v.", *field.Min)
		}
		if field.Max != nil && n > *field.Max {
			return "", fmt.Sprintf("Please enter a number of at most %v.", *field.Max)
		}
		return answer, ""

	case corpus.FieldBoolean:
		token := strings.ToLower(answer)
		if affirmativeTokens[token] {
			return "true", ""
		}
		if negativeTokens[token] {
			return "false", ""
		}
		return "", "Please answer with 'yes' or 'no'."

	case corpus.FieldSingleChoice:
		for _, opt := range field.Options {
			if strings.EqualFold(answer, opt) {
				return opt, ""
			}
		}
		return "", "Please choose one of: " + strings.Join(field.Options, ", ") + "."

	case corpus.FieldMultipleChoice:
		var chosen []string
		for _, part := range strings.Split(answer, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			matched := ""
			for _, opt := range field.Options {
				if strings.EqualFold(part, opt) {
					matched = opt
					break
				}
			}
			if matched == "" {
				return "", "One or more choices are not valid. Please choose from: " + strings.Join(field.Options, ", ") + "."
			}
			chosen = append(chosen, matched)
		}
		if len(chosen) == 0 {
			return "", "Please choose from: " + strings.Join(field.Options, ", ") + "."
		}
		return strings.Join(chosen, ", "), ""

	case corpus.FieldDateTime:
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, answer); err == nil {
				return t.Format(time.RFC3339), ""
			}
		}
		return "", "Please enter a date and time like 2024-01-31T15:04:05."
	}

	// Corpus validation guarantees a known type; treat anything else as text.
	return answer, ""
}

package builtins

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/stencil/pkg/schema"
)

// dateToken is one element of a date pattern: either a run of a pattern
// letter or literal text.
type dateToken struct {
	letter  rune
	count   int
	literal string
}

const datePatternLetters = "GyYuMLdDEaHkKhmsSzZXx"

func tokenizeDatePattern(pattern string) ([]dateToken, error) {
	var tokens []dateToken
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, dateToken{literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				lit.WriteRune('\'')
				i++
				continue
			}
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			if end == len(runes) {
				return nil, dateFormatError(pattern, "unterminated quote")
			}
			lit.WriteString(string(runes[i+1 : end]))
			i = end
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			if !strings.ContainsRune(datePatternLetters, r) {
				return nil, dateFormatError(pattern, fmt.Sprintf("unknown pattern letter %q", r))
			}
			flush()
			n := 1
			for i+1 < len(runes) && runes[i+1] == r {
				n++
				i++
			}
			tokens = append(tokens, dateToken{letter: r, count: n})
		default:
			lit.WriteRune(r)
		}
	}
	flush()
	return tokens, nil
}

// formatDate renders t with a tokenized pattern.
func formatDate(t time.Time, tokens []dateToken) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.letter == 0 {
			b.WriteString(tok.literal)
			continue
		}
		b.WriteString(formatField(t, tok.letter, tok.count))
	}
	return b.String()
}

func formatField(t time.Time, letter rune, n int) string {
	switch letter {
	case 'G':
		if t.Year() <= 0 {
			return "BC"
		}
		return "AD"
	case 'y', 'Y', 'u':
		if n == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), n)
	case 'M', 'L':
		switch {
		case n >= 4:
			return t.Month().String()
		case n == 3:
			return t.Month().String()[:3]
		default:
			return pad(int(t.Month()), n)
		}
	case 'd':
		return pad(t.Day(), n)
	case 'D':
		return pad(t.YearDay(), n)
	case 'E':
		if n >= 4 {
			return t.Weekday().String()
		}
		return t.Weekday().String()[:3]
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case 'H':
		return pad(t.Hour(), n)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, n)
	case 'K':
		return pad(t.Hour()%12, n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'S':
		frac := fmt.Sprintf("%09d", t.Nanosecond())
		if n <= 9 {
			return frac[:n]
		}
		return frac + strings.Repeat("0", n-9)
	case 'z':
		name, _ := t.Zone()
		return name
	case 'Z':
		switch {
		case n == 4:
			return "GMT" + offset(t, true, false)
		case n >= 5:
			return offset(t, true, true)
		default:
			return offset(t, false, false)
		}
	case 'X', 'x':
		_, secs := t.Zone()
		if letter == 'X' && secs == 0 {
			return "Z"
		}
		switch n {
		case 1:
			if secs%3600 == 0 {
				return offset(t, false, false)[:3]
			}
			return offset(t, false, false)
		case 2:
			return offset(t, false, false)
		default:
			return offset(t, true, false)
		}
	}
	return ""
}

// offset renders the zone offset as +HHMM or +HH:MM. With utcZero a zero
// offset renders as Z.
func offset(t time.Time, colon, utcZero bool) string {
	_, secs := t.Zone()
	if utcZero && secs == 0 {
		return "Z"
	}
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	if colon {
		return fmt.Sprintf("%c%02d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + pad(-n, width)
	}
	if len(s) < width {
		return strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// parseLayout translates a tokenized pattern into a layout understood by
// time.Parse.
func parseLayout(pattern string, tokens []dateToken) (string, error) {
	var b strings.Builder
	for i, tok := range tokens {
		if tok.letter == 0 {
			if !layoutSafe(tok.literal) {
				return "", dateFormatError(pattern, fmt.Sprintf("literal %q cannot be used for parsing", tok.literal))
			}
			b.WriteString(tok.literal)
			continue
		}
		elem, err := layoutElement(tok)
		if err != nil {
			return "", dateFormatError(pattern, err.Error())
		}
		if tok.letter == 'S' {
			// Fractions need a preceding '.' or ',' in Go layouts.
			if i == 0 || tokens[i-1].letter != 0 || !strings.HasSuffix(tokens[i-1].literal, ".") {
				return "", dateFormatError(pattern, "fraction of second must follow '.'")
			}
		}
		b.WriteString(elem)
	}
	return b.String(), nil
}

func layoutElement(tok dateToken) (string, error) {
	n := tok.count
	switch tok.letter {
	case 'y', 'Y', 'u':
		if n == 2 {
			return "06", nil
		}
		return "2006", nil
	case 'M', 'L':
		switch {
		case n >= 4:
			return "January", nil
		case n == 3:
			return "Jan", nil
		case n == 2:
			return "01", nil
		default:
			return "1", nil
		}
	case 'd':
		if n >= 2 {
			return "02", nil
		}
		return "2", nil
	case 'D':
		return "002", nil
	case 'E':
		if n >= 4 {
			return "Monday", nil
		}
		return "Mon", nil
	case 'a':
		return "PM", nil
	case 'H':
		return "15", nil
	case 'h':
		if n >= 2 {
			return "03", nil
		}
		return "3", nil
	case 'm':
		if n >= 2 {
			return "04", nil
		}
		return "4", nil
	case 's':
		if n >= 2 {
			return "05", nil
		}
		return "5", nil
	case 'S':
		return strings.Repeat("0", min(n, 9)), nil
	case 'z':
		return "MST", nil
	case 'Z':
		if n >= 5 {
			return "Z07:00", nil
		}
		return "-0700", nil
	case 'X':
		switch n {
		case 1:
			return "Z07", nil
		case 2:
			return "Z0700", nil
		default:
			return "Z07:00", nil
		}
	case 'x':
		switch n {
		case 1:
			return "-07", nil
		case 2:
			return "-0700", nil
		default:
			return "-07:00", nil
		}
	}
	return "", fmt.Errorf("pattern letter %q is not supported for parsing", tok.letter)
}

// layoutSafe reports whether literal text can be placed in a Go layout
// without being mistaken for a layout element.
func layoutSafe(lit string) bool {
	if strings.ContainsAny(lit, "0123456789") {
		return false
	}
	for _, elem := range []string{"Jan", "Mon", "MST", "PM", "pm", "Z07"} {
		if strings.Contains(lit, elem) {
			return false
		}
	}
	return true
}

func dateFormatError(pattern, reason string) error {
	return schema.NewErrorf(schema.ErrCodeFormat, "invalid date pattern %q: %s", pattern, reason).
		WithDetails(map[string]any{"pattern": pattern})
}

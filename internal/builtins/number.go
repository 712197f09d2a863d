package builtins

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerNumbers(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"abs", nil, absFilter, "absolute value, keeping integers integral"},
		filterDef{"numberformat", binding.Params("format"), numberformatFilter,
			"formats a number for the render locale, optionally with a decimal pattern such as #,##0.00"},
	)
}

func absFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	switch target.Kind() {
	case value.KindNull:
		return value.Text(""), nil
	case value.KindInt:
		i, _ := target.AsInt()
		if i == math.MinInt64 {
			return value.Null(), schema.NewErrorf(schema.ErrCodeRange, "abs of %d overflows", i)
		}
		if i < 0 {
			i = -i
		}
		return value.Int(i), nil
	case value.KindFloat:
		f, _ := target.AsFloat()
		return value.Float(math.Abs(f)), nil
	default:
		return value.Null(), typeError("abs", target)
	}
}

func numberformatFilter(env registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	if !target.IsNumber() {
		return value.Null(), typeError("numberformat", target)
	}

	format := args.Get("format")
	if format.IsNull() {
		p := message.NewPrinter(env.Locale())
		if i, ok := target.AsInt(); ok {
			return value.Text(p.Sprint(number.Decimal(i))), nil
		}
		f, _ := target.AsFloat()
		return value.Text(p.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))), nil
	}

	pattern, err := parseDecimalPattern(format.String())
	if err != nil {
		return value.Null(), err
	}
	return value.Text(pattern.format(target, symbolsFor(env.Locale()))), nil
}

// decimalSymbols are the locale's grouping and decimal separators.
type decimalSymbols struct {
	group   string
	decimal string
}

// symbolsFor derives the separators from the locale's own rendering of a
// sample number.
func symbolsFor(tag language.Tag) decimalSymbols {
	sample := []rune(message.NewPrinter(tag).Sprint(
		number.Decimal(1234567.5, number.MinFractionDigits(1), number.MaxFractionDigits(1))))
	syms := decimalSymbols{group: ",", decimal: "."}
	if len(sample) < 2 {
		return syms
	}
	syms.decimal = string(sample[len(sample)-2])
	for _, r := range sample[:len(sample)-2] {
		if !unicode.IsDigit(r) {
			syms.group = string(r)
			break
		}
	}
	return syms
}

// decimalPattern is the supported subset of decimal format patterns: a
// literal prefix and suffix (quotes allowed), '#' and '0' digits, ','
// grouping, '.' decimal point, '%' percent and an optional ';' negative
// subpattern.
type decimalPattern struct {
	posPrefix, posSuffix string
	negPrefix, negSuffix string
	hasNegative          bool

	minInt   int
	minFrac  int
	maxFrac  int
	grouping int
	percent  bool
}

func parseDecimalPattern(p string) (*decimalPattern, error) {
	parts, err := splitSubpatterns(p)
	if err != nil {
		return nil, err
	}
	dp := &decimalPattern{}
	if err := dp.parsePositive(parts[0]); err != nil {
		return nil, err
	}
	if len(parts) == 2 {
		prefix, _, suffix, err := splitAffixes(parts[1])
		if err != nil {
			return nil, err
		}
		dp.negPrefix, dp.negSuffix, dp.hasNegative = prefix, suffix, true
	}
	return dp, nil
}

func splitSubpatterns(p string) ([]string, error) {
	inQuote := false
	for i, r := range p {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return []string{p[:i], p[i+1:]}, nil
		}
	}
	if inQuote {
		return nil, formatError(p, "unterminated quote")
	}
	return []string{p}, nil
}

// splitAffixes separates a subpattern into prefix, number part and suffix.
// Quoted text is literal and a doubled quote stands for one quote.
func splitAffixes(sub string) (prefix, numeric, suffix string, err error) {
	var parts [3]strings.Builder
	phase := 0
	runes := []rune(sub)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				parts[phase].WriteRune('\'')
				i++
				continue
			}
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			if end == len(runes) {
				return "", "", "", formatError(sub, "unterminated quote")
			}
			if phase == 1 {
				phase = 2
			}
			parts[phase].WriteString(string(runes[i+1 : end]))
			i = end
			continue
		}
		numericRune := strings.ContainsRune("#0,.", r)
		switch {
		case phase == 0 && numericRune:
			phase = 1
		case phase == 1 && !numericRune:
			phase = 2
		case phase == 2 && numericRune:
			return "", "", "", formatError(sub, "digits after suffix")
		}
		parts[phase].WriteRune(r)
	}
	return parts[0].String(), parts[1].String(), parts[2].String(), nil
}

func (dp *decimalPattern) parsePositive(sub string) error {
	prefix, numeric, suffix, err := splitAffixes(sub)
	if err != nil {
		return err
	}
	if numeric == "" {
		return formatError(sub, "no digits in pattern")
	}
	dp.posPrefix, dp.posSuffix = prefix, suffix
	dp.percent = strings.ContainsRune(prefix+suffix, '%')

	intPart, fracPart, hasPoint := strings.Cut(numeric, ".")
	if hasPoint && strings.ContainsAny(fracPart, ".,") {
		return formatError(sub, "misplaced separator")
	}
	lastGroup := -1
	for i, r := range intPart {
		switch r {
		case '0':
			dp.minInt++
		case ',':
			lastGroup = i
		}
	}
	if lastGroup >= 0 {
		dp.grouping = len(intPart) - lastGroup - 1
	}
	for _, r := range fracPart {
		if r == '0' {
			if dp.minFrac < dp.maxFrac {
				return formatError(sub, "'0' after '#' in fraction")
			}
			dp.minFrac++
		}
		dp.maxFrac++
	}
	return nil
}

func (dp *decimalPattern) format(v value.Value, syms decimalSymbols) string {
	var intDigits, fracDigits string
	var negative bool

	if i, ok := v.AsInt(); ok && !dp.percent {
		negative = i < 0
		u := uint64(i)
		if negative {
			u = -u
		}
		intDigits = strconv.FormatUint(u, 10)
		fracDigits = strings.Repeat("0", dp.minFrac)
	} else {
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value.FormatFloat(f)
		}
		if dp.percent {
			f *= 100
		}
		negative = math.Signbit(f)
		digits := strconv.FormatFloat(math.Abs(f), 'f', dp.maxFrac, 64)
		intDigits, fracDigits, _ = strings.Cut(digits, ".")
		fracDigits = strings.TrimRight(fracDigits, "0")
		if pad := dp.minFrac - len(fracDigits); pad > 0 {
			fracDigits += strings.Repeat("0", pad)
		}
	}

	if intDigits == "0" && dp.minInt == 0 && fracDigits != "" {
		intDigits = ""
	}
	if pad := dp.minInt - len(intDigits); pad > 0 {
		intDigits = strings.Repeat("0", pad) + intDigits
	}
	if strings.Trim(intDigits+fracDigits, "0") == "" {
		negative = false
	}

	var b strings.Builder
	switch {
	case negative && dp.hasNegative:
		b.WriteString(dp.negPrefix)
	case negative:
		b.WriteString("-" + dp.posPrefix)
	default:
		b.WriteString(dp.posPrefix)
	}
	b.WriteString(group(intDigits, dp.grouping, syms.group))
	if fracDigits != "" {
		b.WriteString(syms.decimal)
		b.WriteString(fracDigits)
	}
	if negative && dp.hasNegative {
		b.WriteString(dp.negSuffix)
	} else {
		b.WriteString(dp.posSuffix)
	}
	return b.String()
}

// group inserts sep every size digits counting from the right.
func group(digits string, size int, sep string) string {
	if size <= 0 || len(digits) <= size {
		return digits
	}
	var b strings.Builder
	head := len(digits) % size
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += size {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+size])
	}
	return b.String()
}

func formatError(pattern, reason string) error {
	return schema.NewErrorf(schema.ErrCodeFormat, "invalid number pattern %q: %s", pattern, reason).
		WithDetails(map[string]any{"pattern": pattern})
}

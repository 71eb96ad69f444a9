package coerce

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatError indicates text could not be converted to the target kind
// under any of the attempted interpretations.
type FormatError struct {
	Kind Kind
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Text, e.Kind, e.Err)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Text, e.Kind)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Parser converts raw text into typed values. Numeric text is tried
// against both the invariant culture and the parser's current culture.
type Parser struct {
	culture Culture
}

// NewParser returns a Parser using c as the current culture.
func NewParser(c Culture) *Parser {
	return &Parser{culture: c}
}

// Culture returns the parser's current culture.
func (p *Parser) Culture() Culture {
	return p.culture
}

// Parse converts text to a value of kind k. The returned value has the
// Go type matching k (int8 ... uint64, float32, float64, decimal.Decimal,
// bool, string).
func (p *Parser) Parse(text string, k Kind) (any, error) {
	switch k {
	case KindSByte:
		v, err := parseInt(text, k, 8)
		return int8(v), err
	case KindByte:
		v, err := parseUint(text, k, 8)
		return uint8(v), err
	case KindInt16:
		v, err := parseInt(text, k, 16)
		return int16(v), err
	case KindUInt16:
		v, err := parseUint(text, k, 16)
		return uint16(v), err
	case KindInt32:
		v, err := parseInt(text, k, 32)
		return int32(v), err
	case KindUInt32:
		v, err := parseUint(text, k, 32)
		return uint32(v), err
	case KindInt64:
		return parseInt(text, k, 64)
	case KindUInt64:
		return parseUint(text, k, 64)
	case KindFloat:
		return p.ParseFloat32(text)
	case KindDouble:
		return p.ParseFloat64(text)
	case KindDecimal:
		return p.ParseDecimal(text)
	case KindBool:
		return ParseBool(text)
	case KindString:
		return text, nil
	}
	return nil, &FormatError{Kind: k, Text: text}
}

func parseInt(text string, k Kind, bits int) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, bits)
	if err != nil {
		return 0, &FormatError{Kind: k, Text: text, Err: unwrapNum(err)}
	}
	return v, nil
}

func parseUint(text string, k Kind, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, bits)
	if err != nil {
		return 0, &FormatError{Kind: k, Text: text, Err: unwrapNum(err)}
	}
	return v, nil
}

func unwrapNum(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}
	return err
}

// ParseFloat32 parses text as a single-precision float.
func (p *Parser) ParseFloat32(text string) (float32, error) {
	v, err := p.flexible(text, KindFloat, func(s string) (any, error) {
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	})
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// ParseFloat64 parses text as a double-precision float.
func (p *Parser) ParseFloat64(text string) (float64, error) {
	v, err := p.flexible(text, KindDouble, func(s string) (any, error) {
		return strconv.ParseFloat(s, 64)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// ParseDecimal parses text as an arbitrary-precision decimal.
func (p *Parser) ParseDecimal(text string) (decimal.Decimal, error) {
	v, err := p.flexible(text, KindDecimal, func(s string) (any, error) {
		return decimal.NewFromString(s)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// flexible tries, in order: the normalized text in the invariant and the
// current culture, then the separator-swapped text in both. The first
// interpretation conv accepts wins.
func (p *Parser) flexible(text string, k Kind, conv func(canonical string) (any, error)) (any, error) {
	normalized := NormalizeDecimalComma(text)
	swapped := SwapSeparators(normalized)
	attempts := []struct {
		text    string
		culture Culture
	}{
		{normalized, Invariant},
		{normalized, p.culture},
		{swapped, Invariant},
		{swapped, p.culture},
	}
	for _, a := range attempts {
		canonical, ok := canonicalize(a.text, a.culture)
		if !ok {
			continue
		}
		if v, err := conv(canonical); err == nil {
			return v, nil
		}
	}
	return nil, &FormatError{Kind: k, Text: text}
}

// NormalizeDecimalComma turns a single comma into a dot when the text has
// no dot, treating it as a decimal separator rather than grouping.
func NormalizeDecimalComma(text string) string {
	if strings.Count(text, ",") == 1 && !strings.Contains(text, ".") {
		return strings.Replace(text, ",", ".", 1)
	}
	return text
}

// SwapSeparators exchanges every comma with a dot and vice versa.
func SwapSeparators(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',':
			return '.'
		case '.':
			return ','
		}
		return r
	}, text)
}

// canonicalize rewrites text written in culture c into the dot-decimal,
// ungrouped form strconv and decimal accept. Group separators are only
// allowed in the integer part.
func canonicalize(text string, c Culture) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return "", false
	}
	intPart, frac, hasFrac := strings.Cut(s, string(c.Decimal))
	if c.Group != 0 {
		if strings.ContainsRune(frac, c.Group) {
			return "", false
		}
		intPart = strings.ReplaceAll(intPart, string(c.Group), "")
		if c.Group == ' ' {
			intPart = strings.ReplaceAll(intPart, "\u00a0", "")
		}
	}
	if !hasFrac {
		return intPart, true
	}
	return intPart + "." + frac, true
}

// LooksDecimal reports whether text contains a decimal or group separator.
func LooksDecimal(text string) bool {
	return strings.ContainsAny(text, ".,")
}

// ParseBool accepts true/false and on/off in any case, plus 1 and 0.
func ParseBool(text string) (bool, error) {
	s := strings.TrimSpace(text)
	switch {
	case s == "1", strings.EqualFold(s, "true"), strings.EqualFold(s, "on"):
		return true, nil
	case s == "0", strings.EqualFold(s, "false"), strings.EqualFold(s, "off"):
		return false, nil
	}
	return false, &FormatError{Kind: KindBool, Text: text}
}

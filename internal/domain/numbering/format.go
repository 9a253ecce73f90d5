package numbering

import (
	"fmt"
	"strconv"
	"strings"
)

// Components are the resolved parts of one document number.
type Components struct {
	DocumentType string
	Period       string
	Prefix1      OptionalString
	Prefix2      OptionalString
	Sequence     int64
}

// FormatNumber renders the final document number: document type, period,
// prefix1 (if present), prefix2 (if present), padded sequence, in that
// fixed order, joined by the config separator. Absent prefixes are
// omitted entirely, never rendered as empty segments.
func FormatNumber(cfg *NumberingConfig, c Components) string {
	segments := make([]string, 0, 5)
	segments = append(segments, c.DocumentType, c.Period)
	if v, ok := c.Prefix1.Get(); ok {
		segments = append(segments, v)
	}
	if v, ok := c.Prefix2.Get(); ok {
		segments = append(segments, v)
	}
	segments = append(segments, padSequence(c.Sequence, cfg.SequenceLength, cfg.PadChar))
	return strings.Join(segments, cfg.Separator)
}

// padSequence left-pads the decimal sequence to width. Sequences that
// outgrow the configured width are rendered unpadded rather than truncated.
func padSequence(n int64, width int, pad string) string {
	s := strconv.FormatInt(n, 10)
	for len(s) < width {
		s = pad + s
	}
	return s
}

// ParseNumber splits a formatted number back into its components, given
// the config that produced it. Inverse of FormatNumber for every number
// the generator can emit: generation rejects prefix2-without-prefix1, so
// a single middle segment is always prefix1.
func ParseNumber(cfg *NumberingConfig, formatted string) (Components, error) {
	segments := strings.Split(formatted, cfg.Separator)
	if len(segments) < 3 {
		return Components{}, fmt.Errorf("malformed number %q: expected at least 3 segments", formatted)
	}
	if len(segments) > 5 {
		return Components{}, fmt.Errorf("malformed number %q: too many segments", formatted)
	}

	c := Components{
		DocumentType: segments[0],
		Period:       segments[1],
		Prefix1:      None(),
		Prefix2:      None(),
	}
	if c.DocumentType != cfg.DocumentType {
		return Components{}, fmt.Errorf("number %q does not match document type %q", formatted, cfg.DocumentType)
	}

	middles := segments[2 : len(segments)-1]
	if len(middles) > 0 {
		c.Prefix1 = Some(middles[0])
	}
	if len(middles) > 1 {
		c.Prefix2 = Some(middles[1])
	}

	seq, err := parseSequence(segments[len(segments)-1], cfg.PadChar)
	if err != nil {
		return Components{}, fmt.Errorf("parse sequence of %q: %w", formatted, err)
	}
	c.Sequence = seq

	return c, nil
}

// parseSequence strips the left padding and parses the remaining digits.
// Validate rejects nonzero digit pad chars, so trimming never eats value
// digits: the pad is either "0" or a non-digit.
func parseSequence(segment, pad string) (int64, error) {
	trimmed := strings.TrimLeft(segment, pad)
	if trimmed == "" {
		// Fully padded segment. With pad "0" this parses as 0; with a
		// non-digit pad it fails, and either way sequences start at 1.
		trimmed = segment
	}
	return strconv.ParseInt(trimmed, 10, 64)
}

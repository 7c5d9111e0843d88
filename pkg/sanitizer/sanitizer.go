package sanitizer

import "strings"

const MaxReasonLength = 500

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func SanitizeIdentifier(input string) string {
	p := Pipeline{
		dropControl,
		strings.TrimSpace,
	}
	return p.Apply(input)
}

func SanitizeCurrency(input string) string {
	p := Pipeline{
		dropSpaces,
		strings.ToUpper,
	}
	return p.Apply(input)
}

func SanitizeReason(input string) string {
	p := Pipeline{
		dropControl,
		TrimAndNormalize,
		truncateRunes(MaxReasonLength),
	}
	return p.Apply(input)
}

func SanitizeReference(input string) string {
	p := Pipeline{
		dropControl,
		dropSpaces,
	}
	return p.Apply(input)
}

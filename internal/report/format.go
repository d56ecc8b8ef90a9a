package report

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/okian/overtime/internal/domain/model"
)

var (
	overColor  = color.New(color.FgRed, color.Bold)
	underColor = color.New(color.FgYellow)
	evenColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiYellow, color.Bold)
	headColor  = color.New(color.Bold)
)

// FormatHours renders h with two decimals and an "h" suffix.
func FormatHours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

// FormatSignedHours is FormatHours with an explicit sign for non-zero values.
func FormatSignedHours(h float64) string {
	if h > 0 {
		return "+" + FormatHours(h)
	}
	return FormatHours(h)
}

// FormatPercent renders p with one decimal and an explicit sign.
func FormatPercent(p float64) string {
	if p > 0 {
		return fmt.Sprintf("+%.1f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// Initials returns up to two upper-case letters for a display name. The
// placeholder last name does not contribute.
func Initials(name string) string {
	first, last := model.SplitDisplayName(name)
	var b strings.Builder
	for _, part := range []string{first, last} {
		if part == "" || part == model.PlaceholderLastName {
			continue
		}
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// Status classifies overtime hours for display.
func Status(overtimeHours float64) string {
	switch {
	case overtimeHours > 0:
		return "overtime"
	case overtimeHours < 0:
		return "undertime"
	default:
		return "on target"
	}
}

func statusColor(overtimeHours float64) *color.Color {
	switch {
	case overtimeHours > 0:
		return overColor
	case overtimeHours < 0:
		return underColor
	default:
		return evenColor
	}
}

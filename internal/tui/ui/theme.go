package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	MutedColor        tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	BadgeColor        tcell.Color
	OwnColor          tcell.Color
	OtherColor        tcell.Color
	PendingColor      tcell.Color
	DeletedColor      tcell.Color
	SeparatorColor    tcell.Color
	SelectedMsgBg     tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		MutedColor:        tcell.ColorGray,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		BadgeColor:        tcell.ColorOrangeRed,
		OwnColor:          tcell.ColorLightGreen,
		OtherColor:        tcell.ColorPapayaWhip,
		PendingColor:      tcell.ColorGray,
		DeletedColor:      tcell.ColorDarkGray,
		SeparatorColor:    tcell.ColorSlateGray,
		SelectedMsgBg:     tcell.ColorDarkSlateGray,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
	}
}

// ColorName returns the name of c for use in tview color tags.
func ColorName(c tcell.Color) string {
	return colorName(c)
}

// colorName returns a tview-compatible color name string.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}

// FlashLevelColor returns the color of a flash level.
func (t *Theme) FlashLevelColor(l FlashLevel) tcell.Color {
	switch l {
	case FlashWarn:
		return t.FlashWarnColor
	case FlashErr:
		return t.FlashErrColor
	default:
		return t.FlashInfoColor
	}
}

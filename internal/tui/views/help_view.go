package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/ui"
)

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"全体", [][2]string{
		{"Tab", "一覧 / メッセージ / 入力欄を切り替え"},
		{"r", "再読み込み"},
		{"?", "ヘルプ"},
		{"q", "終了"},
		{"Esc", "戻る (狭い画面では一覧へ)"},
	}},
	{"会話一覧", [][2]string{
		{"Enter", "会話を開く"},
		{"n", "新しい会話"},
		{"/", "名前で検索"},
	}},
	{"メッセージ", [][2]string{
		{"↑/k ↓/j", "自分のメッセージを選択"},
		{"e", "選択したメッセージを編集"},
		{"d", "選択したメッセージを取り消し"},
	}},
	{"入力欄", [][2]string{
		{"Enter", "送信"},
		{"Alt+Enter / Ctrl+J", "改行"},
		{"Ctrl+A", "ファイルを添付"},
		{"Ctrl+U", "最後の添付を外す"},
	}},
}

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" ヘルプ ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Scope implements Component.
func (hv *HelpView) Scope() string { return keys.ScopeDialog }

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&b, "  [%s]%-20s[-] %s\n", kc, tview.Escape(k[0]), k[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}

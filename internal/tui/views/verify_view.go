package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/ui"
)

const (
	verifyTitle       = " 本人確認 "
	verifyText        = "メールアドレスの確認が完了していません。\n%s 宛ての確認メールのリンクを開いてください。"
	verifyScanText    = "スマートフォンで読み取って確認ページを開けます:"
	verifyRetryText   = "確認後に r を押すと再読み込みします。"
	signedOutText     = "サインインしていません。\nconfig.toml の token か NICEDIG_TOKEN を設定してから再起動してください。"
	sessionErrorText  = "ユーザー情報を取得できませんでした。r で再試行します。"
	verifyEmailAbsent = "登録メールアドレス"
)

// VerifyView covers the page while the account cannot use direct messages:
// signed out, unverified, or unreachable.
type VerifyView struct {
	*tview.TextView
	theme  *ui.Theme
	webURL string
}

// NewVerifyView creates a new verification view. webURL, when set, is shown
// as a QR code.
func NewVerifyView(theme *ui.Theme, webURL string) *VerifyView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(verifyTitle)
	tv.SetTitleColor(theme.TitleColor)

	return &VerifyView{
		TextView: tv,
		theme:    theme,
		webURL:   webURL,
	}
}

// Name implements Component.
func (vv *VerifyView) Name() string { return "Verify" }

// Scope implements Component.
func (vv *VerifyView) Scope() string { return keys.ScopeList }

// Show renders the view for a session state.
func (vv *VerifyView) Show(state auth.State, email string) {
	vv.Clear()
	switch state {
	case auth.VerificationRequired:
		if email == "" {
			email = verifyEmailAbsent
		}
		_, _ = fmt.Fprintf(vv, "\n%s\n", display(fmt.Sprintf(verifyText, email)))
		if vv.webURL != "" {
			_, _ = fmt.Fprintf(vv, "\n%s\n\n%s\n%s\n", verifyScanText, renderQR(vv.webURL), display(vv.webURL))
		}
		_, _ = fmt.Fprintf(vv, "\n[%s]%s[-]", ui.ColorName(vv.theme.MutedColor), verifyRetryText)
	case auth.SignedOut:
		_, _ = fmt.Fprintf(vv, "\n\n%s", signedOutText)
	default:
		_, _ = fmt.Fprintf(vv, "\n\n[%s]%s[-]", ui.ColorName(vv.theme.FlashErrColor), sessionErrorText)
	}
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

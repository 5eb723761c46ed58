// Package tui is the terminal shell of the direct-message page.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
	"github.com/nicedig/ndm/internal/notify"
	"github.com/nicedig/ndm/internal/page"
	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
	"github.com/nicedig/ndm/internal/tui/views"
)

// Overlay page names.
const (
	pageMain    = "main"
	pageVerify  = "verify"
	pageHelp    = "help"
	pageNewConv = "new-conversation"
	pageConfirm = "confirm"
	pageAlert   = "alert"
	pageAttach  = "attach"

	scopeVerify = "verify"
)

const (
	wideListWidth  = 44
	composerHeight = 6
	repaintEvery   = 5 * time.Second
)

// Deps are the page's collaborators.
type Deps struct {
	Controller    *page.Controller
	Conversations *dm.ConversationStore
	Messages      *dm.MessageStore
	Unread        *notify.Coordinator
	Session       *auth.Provider
	Candidates    model.CandidatesFunc
	Formatter     *format.Formatter
	Bus           *bus.Bus
	Logger        *zap.Logger
}

// Options configure the shell.
type Options struct {
	Profile     string
	NarrowWidth int
	WebURL      string
}

type layout struct {
	showList  bool
	showChat  bool
	narrow    bool
	searching bool
	editing   bool
}

// App is the main TUI application shell.
type App struct {
	app        *tview.Application
	pages      *ui.Pages
	body       *tview.Flex
	listCol    *tview.Flex
	chatCol    *tview.Flex
	theme      *ui.Theme
	registry   *keys.Registry
	flash      *ui.FlashModel
	vm         *model.ViewModel
	ctrl       *page.Controller
	session    *auth.Provider
	candidates model.CandidatesFunc
	bus        *bus.Bus
	logger     *zap.Logger
	opts       Options

	list      *views.ConversationList
	prompt    *ui.Prompt
	pane      *views.MessagePane
	composer  *views.Composer
	editBox   *views.EditBox
	statusBar *views.StatusBar
	menu      *ui.Menu
	verify    *views.VerifyView
	help      *views.HelpView
	dialog    *views.NewConversationDialog

	draft   *model.Composer
	edit    *model.InlineEdit
	newConv *model.NewConversationForm

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the UI goroutine.
	scope      string
	searching  bool
	current    layout
	laidOut    bool
	narrow     bool
	sized      bool
	chatFocus  int64
	lastRender model.Snapshot
}

// New creates the TUI application.
func New(d Deps, o Options) *App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:        tview.NewApplication(),
		theme:      theme,
		registry:   keys.NewRegistry(),
		flash:      ui.NewFlashModel(),
		vm:         model.NewViewModel(d.Controller, d.Conversations, d.Messages, d.Unread, d.Session, d.Formatter),
		ctrl:       d.Controller,
		session:    d.Session,
		candidates: d.Candidates,
		bus:        d.Bus,
		logger:     logger,
		opts:       o,
		draft:      model.NewComposer(),
		edit:       &model.InlineEdit{},
		newConv:    &model.NewConversationForm{},
		ctx:        ctx,
		cancel:     cancel,
		scope:      keys.ScopeList,
	}

	a.list = views.NewConversationList(theme, d.Formatter)
	a.prompt = ui.NewPrompt(theme)
	a.pane = views.NewMessagePane(theme)
	a.composer = views.NewComposer(theme, a.draft)
	a.editBox = views.NewEditBox(theme, a.edit)
	a.statusBar = views.NewStatusBar(theme, o.Profile)
	a.menu = ui.NewMenu(theme)
	a.verify = views.NewVerifyView(theme, o.WebURL)
	a.help = views.NewHelpView(theme)
	a.dialog = views.NewNewConversationDialog(theme, a.newConv)

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("focus", &keys.Action{
		Key: tcell.KeyTab, Label: "Tab", Description: "切替", Visible: true,
		Handler: a.cycleFocus,
	})
	a.registry.AddGlobal("back", &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc", Description: "戻る",
		Handler: a.back,
	})
	a.registry.AddGlobal("refresh", &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r", Description: "再読込", Visible: true,
		Handler: a.refresh,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Description: "ヘルプ", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "終了", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddView(keys.ScopeList, "new", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "新しい会話", Visible: true,
		Handler: a.openNewConversation,
	})
	a.registry.AddView(keys.ScopeList, "search", &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "検索", Visible: true,
		Handler: a.openSearch,
	})

	a.registry.AddView(keys.ScopePane, "edit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'e', Label: "e", Description: "編集", Visible: true,
		Handler: a.beginEdit,
	})
	a.registry.AddView(keys.ScopePane, "delete", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Label: "d", Description: "取り消し", Visible: true,
		Handler: a.confirmDelete,
	})
	a.registry.AddView(keys.ScopePane, "up", &keys.Action{Key: tcell.KeyUp, Handler: a.pane.Prev})
	a.registry.AddView(keys.ScopePane, "down", &keys.Action{Key: tcell.KeyDown, Handler: a.pane.Next})
	a.registry.AddView(keys.ScopePane, "k", &keys.Action{
		Key: tcell.KeyRune, Rune: 'k', Label: "↑↓", Description: "選択", Visible: true,
		Handler: a.pane.Prev,
	})
	a.registry.AddView(keys.ScopePane, "j", &keys.Action{Key: tcell.KeyRune, Rune: 'j', Handler: a.pane.Next})

	a.registry.AddView(keys.ScopeComposer, "attach", &keys.Action{
		Key: tcell.KeyCtrlA, Label: "Ctrl+A", Description: "添付", Visible: true,
		Handler: a.openAttach,
	})

	a.registry.AddView(scopeVerify, "refresh", &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Handler: a.reloadSession,
	})
}

func (a *App) setupCallbacks() {
	a.list.SetOnSelect(a.openConversation)

	a.composer.SetOnSubmit(a.submit)
	a.composer.SetOnAttach(a.openAttach)

	a.editBox.SetOnSubmit(a.submitEdit)
	a.editBox.SetOnCancel(a.cancelEdit)

	a.dialog.SetOnSubmit(a.submitNewConversation)
	a.dialog.SetOnCancel(func() {
		a.pages.Close(pageNewConv)
		a.focus(a.list, a.list)
	})

	a.prompt.SetOnChange(func(text string) {
		a.ctrl.SetKeyword(text)
	})
	a.prompt.SetOnDone(func(cancelled bool) {
		a.closeSearch(cancelled)
	})
}

func (a *App) setupLayout() {
	a.listCol = tview.NewFlex().SetDirection(tview.FlexRow)
	a.chatCol = tview.NewFlex().SetDirection(tview.FlexRow)
	a.body = tview.NewFlex()
	a.pages = ui.NewPages(pageMain, a.body)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.menu, 1, 0, false)
	a.app.SetRoot(root, true)

	a.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		w, _ := screen.Size()
		narrow := a.opts.NarrowWidth > 0 && w < a.opts.NarrowWidth
		if !a.sized || narrow != a.narrow {
			a.sized = true
			a.narrow = narrow
			go a.ctrl.SetNarrow(narrow)
		}
		return false
	})

	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC {
			a.cancel()
			return ev
		}
		switch a.pages.Current() {
		case pageMain:
		case pageVerify:
			if a.registry.HandleEvent(scopeVerify, ev) {
				return nil
			}
			if ev.Key() == tcell.KeyRune && ev.Rune() == 'q' {
				a.Stop()
			}
			return nil
		case pageHelp:
			if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == '?')) {
				a.closeOverlay(pageHelp)
				return nil
			}
			return ev
		default:
			return ev
		}
		if a.registry.HandleEvent(a.scope, ev) {
			return nil
		}
		return ev
	})

	a.relayout(model.Snapshot{ShowList: true, ShowChat: true})
	a.focus(a.list, a.list)
}

// focus moves keyboard focus and updates the menu.
func (a *App) focus(c ui.Component, p tview.Primitive) {
	a.scope = c.Scope()
	a.app.SetFocus(p)
	a.menu.Update(a.registry.Hints(a.scope))
}

func (a *App) focusComposer() {
	if a.current.editing {
		a.focus(a.editBox, a.editBox.Input())
		return
	}
	a.focus(a.composer, a.composer.Input())
}

// relayout rebuilds the columns when the visible panes change.
func (a *App) relayout(s model.Snapshot) {
	want := layout{
		showList:  s.ShowList,
		showChat:  s.ShowChat,
		narrow:    s.Narrow,
		searching: a.searching,
		editing:   a.current.editing,
	}
	if a.laidOut && want == a.current {
		return
	}
	a.current = want
	a.laidOut = true

	a.listCol.Clear()
	if want.searching {
		a.listCol.AddItem(a.prompt, 3, 0, false)
	}
	a.listCol.AddItem(a.list, 0, 1, true)

	a.chatCol.Clear()
	a.chatCol.AddItem(a.pane, 0, 1, false)
	if want.editing {
		a.chatCol.AddItem(a.editBox, composerHeight, 0, true)
	} else {
		a.chatCol.AddItem(a.composer, composerHeight, 0, true)
	}

	a.body.Clear()
	switch {
	case want.showList && want.showChat && !want.narrow:
		a.body.AddItem(a.listCol, wideListWidth, 0, true)
		a.body.AddItem(a.chatCol, 0, 1, false)
	case want.showList:
		a.body.AddItem(a.listCol, 0, 1, true)
	case want.showChat:
		a.body.AddItem(a.chatCol, 0, 1, true)
	}

	// Keep focus on a visible pane.
	switch a.scope {
	case keys.ScopeList, keys.ScopeSearch:
		if !want.showList {
			a.focusComposer()
		}
	case keys.ScopePane, keys.ScopeComposer:
		if !want.showChat {
			a.focus(a.list, a.list)
		}
	}
}

// render redraws every pane from a fresh snapshot. Runs on the UI goroutine.
func (a *App) render() {
	s := a.vm.Snapshot()
	a.lastRender = s

	a.relayout(s)
	a.list.Update(s)
	editing, _ := a.edit.Active()
	a.pane.SetEditing(editing)
	a.pane.Update(s)
	a.composer.Sync()
	a.statusBar.Update(s, a.flash.GetMessage())
	a.syncVerify(s)

	if a.chatFocus != 0 && s.Selected == a.chatFocus && s.ShowChat {
		a.chatFocus = 0
		if a.pages.Current() == pageMain {
			a.focusComposer()
		}
	}
}

// syncVerify covers the page while the account cannot use direct messages.
func (a *App) syncVerify(s model.Snapshot) {
	blocked := s.Session == auth.SignedOut || s.Session == auth.VerificationRequired || s.Session == auth.Error
	if !blocked {
		a.pages.Close(pageVerify)
		return
	}
	email := ""
	if s.User != nil {
		email = s.User.Email
	}
	a.verify.Show(s.Session, email)
	if !a.pages.Has(pageVerify) {
		a.pages.Push(pageVerify, a.verify, 72, 36)
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(repaintEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
		case <-a.flash.Watch():
		case <-ticker.C:
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(a.render)
	}
}

func (a *App) cycleFocus() {
	order := []func(){}
	scopes := []string{}
	if a.current.showList {
		order = append(order, func() { a.focus(a.list, a.list) })
		scopes = append(scopes, keys.ScopeList)
	}
	if a.current.showChat {
		order = append(order, func() { a.focus(a.pane, a.pane) }, a.focusComposer)
		scopes = append(scopes, keys.ScopePane, keys.ScopeComposer)
	}
	if len(order) == 0 {
		return
	}
	next := 0
	for i, s := range scopes {
		if s == a.scope {
			next = (i + 1) % len(order)
			break
		}
	}
	order[next]()
}

func (a *App) back() {
	switch {
	case a.current.editing:
		a.cancelEdit()
	case a.scope == keys.ScopeSearch:
		a.closeSearch(true)
	case a.current.narrow && a.ctrl.Selected() != 0:
		a.pane.ClearCursor()
		go a.ctrl.Back()
		a.focus(a.list, a.list)
	case a.scope == keys.ScopePane:
		a.pane.ClearCursor()
		a.focus(a.list, a.list)
	default:
		a.focus(a.list, a.list)
	}
}

func (a *App) closeOverlay(name string) {
	a.pages.Close(name)
	switch a.scope {
	case keys.ScopeComposer:
		a.focusComposer()
	case keys.ScopePane:
		a.focus(a.pane, a.pane)
	default:
		a.focus(a.list, a.list)
	}
}

func (a *App) refresh() {
	go func() {
		if err := a.ctrl.Refresh(a.ctx); err != nil {
			a.logger.Warn("manual refresh failed", zap.Error(err))
			a.flash.Err(err)
			return
		}
		a.flash.Info("更新しました")
	}()
}

func (a *App) reloadSession() {
	go func() {
		if err := a.session.Load(a.ctx); err != nil {
			a.flash.Err(err)
			return
		}
		if a.session.State() == auth.Ready {
			a.refresh()
		}
	}()
}

func (a *App) showHelp() {
	a.pages.Push(pageHelp, a.help, 64, 30)
	a.app.SetFocus(a.help)
}

func (a *App) openConversation(id int64) {
	if a.current.editing {
		a.cancelEdit()
	}
	a.pane.ClearCursor()
	a.chatFocus = id
	go a.ctrl.Select(a.ctx, id)
}

func (a *App) openSearch() {
	a.searching = true
	a.relayout(a.lastRender)
	a.prompt.SetText(a.ctrl.Keyword())
	a.focus(a.prompt, a.prompt)
}

func (a *App) closeSearch(cancelled bool) {
	if cancelled {
		a.prompt.SetText("")
		a.ctrl.SetKeyword("")
	}
	a.searching = a.ctrl.Keyword() != ""
	a.relayout(a.lastRender)
	a.focus(a.list, a.list)
}

func (a *App) submit() {
	if !a.draft.CanSubmit() {
		return
	}
	go func() {
		_, err := a.draft.Submit(a.ctx, func(ctx context.Context, in dmapi.SendMessageInput) error {
			_, err := a.ctrl.Send(ctx, in)
			return err
		})
		if err != nil {
			a.logger.Warn("send failed", zap.Error(err))
		}
		a.app.QueueUpdateDraw(a.composer.Sync)
	}()
	a.composer.Sync()
}

func (a *App) openAttach() {
	if a.current.editing {
		return
	}
	prompt := views.NewAttachPrompt(a.theme, func(path string) {
		a.pages.Close(pageAttach)
		a.focusComposer()
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			a.flash.Err(fmt.Errorf("read attachment: %w", err))
			return
		}
		a.draft.Stage(dmapi.File{Name: filepath.Base(path), Data: data})
		a.composer.Sync()
	})
	a.pages.Push(pageAttach, prompt, 72, 3)
	a.app.SetFocus(prompt)
}

func (a *App) beginEdit() {
	row, ok := a.pane.Selected()
	if !ok || !a.edit.Begin(row.Message, a.lastRender.CurrentUserID) {
		a.flash.Warn("編集できるのは自分のメッセージだけです")
		return
	}
	a.current.editing = true
	a.laidOut = false
	a.relayout(a.lastRender)
	a.editBox.Open()
	a.focus(a.editBox, a.editBox.Input())
	a.render()
}

func (a *App) submitEdit() {
	go func() {
		err := a.edit.Submit(a.ctx, func(ctx context.Context, id int64, body string) error {
			_, err := a.ctrl.Edit(ctx, id, body)
			return err
		})
		if err != nil {
			a.logger.Warn("edit failed", zap.Error(err))
		}
		a.app.QueueUpdateDraw(func() {
			if _, open := a.edit.Active(); open {
				a.editBox.Sync()
				return
			}
			a.closeEdit()
		})
	}()
}

func (a *App) cancelEdit() {
	a.edit.Cancel()
	a.closeEdit()
}

func (a *App) closeEdit() {
	a.current.editing = false
	a.laidOut = false
	a.relayout(a.lastRender)
	a.focus(a.pane, a.pane)
	a.render()
}

func (a *App) confirmDelete() {
	row, ok := a.pane.Selected()
	if !ok || !model.CanModify(row.Message, a.lastRender.CurrentUserID) {
		a.flash.Warn("取り消せるのは自分のメッセージだけです")
		return
	}
	id := row.Message.ID
	modal := views.NewConfirm(a.theme, views.DeletePrompt, func(yes bool) {
		a.closeOverlay(pageConfirm)
		if !yes {
			return
		}
		go func() {
			if _, err := a.ctrl.Delete(a.ctx, id); err != nil {
				a.logger.Warn("delete failed", zap.Int64("message_id", id), zap.Error(err))
				a.app.QueueUpdateDraw(func() { a.showAlert("取り消せませんでした: " + err.Error()) })
			}
		}()
	})
	a.pages.Push(pageConfirm, modal, 48, 8)
	a.app.SetFocus(modal)
}

func (a *App) showAlert(text string) {
	modal := views.NewAlert(a.theme, text, func() {
		a.closeOverlay(pageAlert)
	})
	a.pages.Push(pageAlert, modal, 56, 8)
	a.app.SetFocus(modal)
}

func (a *App) openNewConversation() {
	a.newConv.Reset()
	a.dialog.Rebuild()
	a.pages.Push(pageNewConv, a.dialog, 56, 24)
	a.app.SetFocus(a.dialog)

	uid := a.lastRender.CurrentUserID
	go func() {
		if err := a.newConv.Load(a.ctx, a.candidates, uid); err != nil {
			a.logger.Warn("failed to load candidates", zap.Error(err))
		}
		a.app.QueueUpdateDraw(func() {
			if a.pages.Has(pageNewConv) {
				a.dialog.Rebuild()
			}
		})
	}()
}

func (a *App) submitNewConversation() {
	go func() {
		conv, err := a.newConv.Submit(a.ctx, a.ctrl.CreateConversation)
		a.app.QueueUpdateDraw(func() {
			if err != nil || conv == nil {
				a.dialog.Sync()
				return
			}
			a.pages.Close(pageNewConv)
			a.flash.Info("会話を作成しました")
			a.chatFocus = conv.ID
			a.focus(a.list, a.list)
		})
	}()
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.vm.Watch(a.bus)
	defer a.vm.Unwatch()
	go a.refreshLoop()

	a.render()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

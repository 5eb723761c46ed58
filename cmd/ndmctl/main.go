package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
	"github.com/nicedig/ndm/internal/profile"
)

var errUsage = errors.New("usage")

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	profile.LoadEnv()
	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	settings := profile.Settings(profileName)
	if settings.BaseURL == "" {
		fmt.Fprintf(os.Stderr, "error: profile %q has no base_url\n", profileName)
		os.Exit(1)
	}
	f, err := format.New(settings.TimeZone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	c := &ctl{
		api: dmapi.NewClient(dmapi.Config{
			BaseURL: settings.BaseURL,
			Token:   settings.Token,
			Timeout: settings.Timeout.Duration,
		}, nil),
		fmt:     f,
		out:     os.Stdout,
		jsonOut: *jsonFlag,
		perPage: settings.MessagesPerPage,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `usage: ndmctl [--profile <name>] [--json] <command>

commands:
  me                                   Show the signed-in user
  conversations                        List conversations
  create [--title T] <user-id>...      Create a conversation
  messages <conversation-id>           List the newest messages
  send <conversation-id> <body> [file]...
                                       Send a message with optional attachments
  edit <conversation-id> <message-id> <body>
                                       Edit one of your messages
  delete <conversation-id> <message-id>
                                       Delete one of your messages
  unread                               Show the unread total
  users                                List users you can message
`)
}

// dmAPI is the part of the API client the CLI uses.
type dmAPI interface {
	FetchCurrentUser(ctx context.Context) (*dmapi.User, error)
	FetchConversations(ctx context.Context) ([]dmapi.Conversation, error)
	CreateConversation(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error)
	FetchMessages(ctx context.Context, conversationID int64, perPage int) (*dmapi.MessagePage, error)
	SendMessage(ctx context.Context, conversationID int64, in dmapi.SendMessageInput) (*dmapi.Message, error)
	UpdateMessage(ctx context.Context, conversationID, messageID int64, body string) (*dmapi.Message, error)
	DeleteMessage(ctx context.Context, conversationID, messageID int64) (*dmapi.Message, error)
	FetchUnreadCount(ctx context.Context) (int, error)
	FetchPotentialParticipants(ctx context.Context) ([]dmapi.User, error)
}

type ctl struct {
	api      dmAPI
	fmt      *format.Formatter
	out      io.Writer
	jsonOut  bool
	perPage  int
	readFile func(string) ([]byte, error)
}

func (c *ctl) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "me":
		return c.cmdMe(ctx)
	case "conversations":
		return c.cmdConversations(ctx)
	case "create":
		return c.cmdCreate(ctx, args[1:])
	case "messages":
		if len(args) != 2 {
			return errUsage
		}
		return c.cmdMessages(ctx, args[1])
	case "send":
		if len(args) < 3 {
			return errUsage
		}
		return c.cmdSend(ctx, args[1], args[2], args[3:])
	case "edit":
		if len(args) != 4 {
			return errUsage
		}
		return c.cmdEdit(ctx, args[1], args[2], args[3])
	case "delete":
		if len(args) != 3 {
			return errUsage
		}
		return c.cmdDelete(ctx, args[1], args[2])
	case "unread":
		return c.cmdUnread(ctx)
	case "users":
		return c.cmdUsers(ctx)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *ctl) cmdMe(ctx context.Context) error {
	u, err := c.api.FetchCurrentUser(ctx)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(u)
	}
	verified := "no"
	if u.Verified() {
		verified = "yes"
	}
	c.printf("ID:       %d\n", u.ID)
	c.printf("Name:     %s\n", u.Name)
	c.printf("Email:    %s\n", u.Email)
	c.printf("Verified: %s\n", verified)
	return nil
}

func (c *ctl) cmdConversations(ctx context.Context) error {
	convs, err := c.api.FetchConversations(ctx)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(convs)
	}
	if len(convs) == 0 {
		c.printf("No conversations.\n")
		return nil
	}
	uid := c.currentUserID(ctx)
	for _, conv := range convs {
		badge := ""
		if conv.UnreadCount > 0 {
			badge = fmt.Sprintf(" (%d)", conv.UnreadCount)
		}
		c.printf("%-6d %-30s %-10s %s\n", conv.ID, dm.DisplayName(conv, uid)+badge,
			dm.LastActivityLabel(conv, c.fmt), dm.Subtitle(conv, uid))
	}
	return nil
}

func (c *ctl) cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "group name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	ids, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	in := dmapi.CreateConversationInput{ParticipantIDs: ids, Title: *title}
	if err := dm.ValidateCreate(in); err != nil {
		return err
	}
	conv, err := c.api.CreateConversation(ctx, dm.NormalizeCreate(in))
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(conv)
	}
	c.printf("Created conversation %d: %s\n", conv.ID, dm.DisplayName(*conv, c.currentUserID(ctx)))
	return nil
}

func (c *ctl) cmdMessages(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	page, err := c.api.FetchMessages(ctx, id, c.perPage)
	if err != nil {
		return err
	}
	msgs := dm.SortMessages(page.Items)
	if c.jsonOut {
		return c.outputJSON(msgs)
	}
	if len(msgs) == 0 {
		c.printf("%s\n", dm.NoMessagesLabel)
		return nil
	}
	var prev string
	for _, m := range msgs {
		if key := c.fmt.DateKey(m.CreatedAt); key != prev {
			c.printf("── %s ──\n", c.fmt.DateLabel(m.CreatedAt))
			prev = key
		}
		sender := ""
		if m.Sender != nil {
			sender = m.Sender.Label()
		}
		body := m.Body
		if m.IsDeleted {
			body = dm.DeletedPlaceholder(m)
		}
		c.printf("[%d] %s %s: %s\n", m.ID, c.fmt.TimeLabel(m.CreatedAt), sender, body)
		if !m.IsDeleted {
			for _, a := range m.Attachments {
				c.printf("      %s %s\n", dm.AttachmentLabel, a.URL)
			}
		}
	}
	return nil
}

func (c *ctl) cmdSend(ctx context.Context, rawID, body string, paths []string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	readFile := c.readFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	in := dmapi.SendMessageInput{Body: strings.TrimSpace(body)}
	for _, p := range paths {
		data, err := readFile(p)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		in.Files = append(in.Files, dmapi.File{Name: filepath.Base(p), Data: data})
	}
	if in.Empty() {
		return dm.ErrEmptyMessage
	}
	msg, err := c.api.SendMessage(ctx, id, in)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(msg)
	}
	c.printf("Sent message %d\n", msg.ID)
	return nil
}

func (c *ctl) cmdEdit(ctx context.Context, rawConv, rawMsg, body string) error {
	convID, err := parseID(rawConv)
	if err != nil {
		return err
	}
	msgID, err := parseID(rawMsg)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return dm.ErrEmptyEdit
	}
	msg, err := c.api.UpdateMessage(ctx, convID, msgID, body)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(msg)
	}
	c.printf("Edited message %d\n", msg.ID)
	return nil
}

func (c *ctl) cmdDelete(ctx context.Context, rawConv, rawMsg string) error {
	convID, err := parseID(rawConv)
	if err != nil {
		return err
	}
	msgID, err := parseID(rawMsg)
	if err != nil {
		return err
	}
	msg, err := c.api.DeleteMessage(ctx, convID, msgID)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(msg)
	}
	c.printf("Deleted message %d\n", msg.ID)
	return nil
}

func (c *ctl) cmdUnread(ctx context.Context) error {
	n, err := c.api.FetchUnreadCount(ctx)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(map[string]int{"total": n})
	}
	c.printf("%d\n", n)
	return nil
}

func (c *ctl) cmdUsers(ctx context.Context) error {
	users, err := c.api.FetchPotentialParticipants(ctx)
	if err != nil {
		return err
	}
	uid := c.currentUserID(ctx)
	out := make([]dmapi.User, 0, len(users))
	for _, u := range users {
		if u.ID != uid {
			out = append(out, u)
		}
	}
	if c.jsonOut {
		return c.outputJSON(out)
	}
	for _, u := range out {
		c.printf("%-6d %s\n", u.ID, u.Participant().Label())
	}
	return nil
}

// currentUserID is best effort; 0 leaves every participant as a counterpart.
func (c *ctl) currentUserID(ctx context.Context) int64 {
	u, err := c.api.FetchCurrentUser(ctx)
	if err != nil || u == nil {
		return 0
	}
	return u.ID
}

func (c *ctl) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *ctl) outputJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

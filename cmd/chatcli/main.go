package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mivanic/parley/internal/client"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/service"
)

// listingView is the conversation listing shared between the REPL and
// the realtime feed goroutine, which refreshes it on registry events.
type listingView struct {
	mu    sync.Mutex
	convs []domain.Conversation
}

func (v *listingView) set(convs []domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.convs = convs
}

func (v *listingView) snapshot() []domain.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Conversation(nil), v.convs...)
}

// refresh re-runs the listing against the server and replaces the view.
func (v *listingView) refresh(ctx context.Context, api *client.API) error {
	convs, err := api.Conversations(ctx)
	if err != nil {
		return err
	}
	v.set(convs)
	return nil
}

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	register := flag.Bool("register", false, "register a new account instead of logging in")
	username := flag.String("username", "", "username (register only)")
	displayName := flag.String("name", "", "display name (register only)")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("chatcli: -email and -password are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.NewAPI(*server)

	var profile *domain.Profile
	var err error
	if *register {
		profile, err = api.Register(ctx, service.RegisterInput{
			Email:       *email,
			Username:    *username,
			DisplayName: *displayName,
			Password:    *password,
		})
	} else {
		profile, err = api.Login(ctx, *email, *password)
	}
	if err != nil {
		log.Fatalf("chatcli: auth: %v", err)
	}
	fmt.Printf("signed in as %s\n", profile.DisplayName)

	feed, err := client.DialFeed(ctx, *server, api.Token())
	if err != nil {
		log.Fatalf("chatcli: %v", err)
	}
	defer feed.Close()

	session := client.NewSession(*profile.Summary(), api, feed)
	defer session.Close()

	listing := &listingView{}

	go func() {
		err := feed.Listen(ctx, client.FeedHandler{
			OnMessage: func(msg domain.Message) {
				if session.HandleMessage(msg) {
					printMessage(msg)
				}
			},
			OnMemberJoined: func(conversationID, userID uuid.UUID) {
				if err := listing.refresh(ctx, api); err != nil {
					log.Printf("chatcli: refresh listing: %v", err)
					return
				}
				if userID == profile.ID {
					fmt.Println("* you were added to a conversation, /list to see it")
				}
			},
			OnConversationDeleted: func(id uuid.UUID) {
				if err := listing.refresh(ctx, api); err != nil {
					log.Printf("chatcli: refresh listing: %v", err)
				}
				if session.Selected() == id {
					session.Deselect()
					fmt.Println("* conversation was deleted")
				}
			},
			OnPresence: func(userID uuid.UUID, status string) {
				conv := session.Conversation()
				if conv != nil && conv.Counterpart != nil && conv.Counterpart.ID == userID {
					fmt.Printf("* %s is %s\n", conv.Counterpart.DisplayName, status)
				}
			},
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("chatcli: feed closed: %v", err)
		}
	}()

	repl(ctx, api, session, listing)
}

func repl(ctx context.Context, api *client.API, session *client.Session, listing *listingView) {
	fmt.Println("commands: /list [filter], /open <n>, /new, /group <name> <n> [n...], /delete <n> [n...], /upload <file> [file...], /quit")

	var pending []domain.Attachment

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if err := session.Send(ctx, line, pending); err != nil {
				fmt.Printf("! send failed: %v\n", err)
				continue
			}
			pending = nil
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit":
			return
		case "/list":
			if err := listing.refresh(ctx, api); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			convs := listing.snapshot()
			if len(fields) > 1 {
				convs = client.FilterConversations(convs, strings.Join(fields[1:], " "))
				listing.set(convs)
			}
			for i, conv := range convs {
				fmt.Printf("%3d  %s\n", i+1, conv.DisplayName())
			}
		case "/open":
			conv, ok := pickConversation(listing.snapshot(), fields)
			if !ok {
				continue
			}
			if err := session.Select(ctx, conv.ID); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			fmt.Printf("--- %s ---\n", conv.DisplayName())
			for _, msg := range session.Messages() {
				printMessage(msg)
			}
		case "/new":
			newChat(ctx, api, session)
		case "/group":
			createGroup(ctx, api, fields[1:])
		case "/delete":
			ids := pickMany(listing.snapshot(), fields[1:])
			if len(ids) == 0 {
				fmt.Println("! nothing selected")
				continue
			}
			if err := api.DeleteConversations(ctx, ids); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			fmt.Printf("deleted %d conversation(s)\n", len(ids))
		case "/upload":
			if len(fields) < 2 {
				fmt.Println("usage: /upload <file> [file...]")
				continue
			}
			attachments, err := api.Upload(ctx, fields[1:])
			if err != nil {
				fmt.Printf("! upload failed: %v\n", err)
				continue
			}
			pending = append(pending, attachments...)
			fmt.Printf("%d file(s) attached to your next message\n", len(attachments))
		default:
			fmt.Printf("! unknown command %s\n", fields[0])
		}
	}
}

func newChat(ctx context.Context, api *client.API, session *client.Session) {
	candidates, err := api.Candidates(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	if len(candidates) == 0 {
		fmt.Println("no one left to chat with")
		return
	}
	for i, p := range candidates {
		fmt.Printf("%3d  %s (@%s)\n", i+1, p.DisplayName, p.Username)
	}
	fmt.Print("start chat with: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || n < 1 || n > len(candidates) {
		fmt.Println("! invalid choice")
		return
	}

	conv, err := api.CreateDirect(ctx, candidates[n-1].ID)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	if err := session.Select(ctx, conv.ID); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("--- %s ---\n", conv.DisplayName())
	for _, msg := range session.Messages() {
		printMessage(msg)
	}
}

func createGroup(ctx context.Context, api *client.API, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: /group <name> <member-uuid> [member-uuid...]")
		return
	}
	var memberIDs []uuid.UUID
	for _, raw := range args[1:] {
		id, err := uuid.Parse(raw)
		if err != nil {
			fmt.Printf("! bad member id %q\n", raw)
			return
		}
		memberIDs = append(memberIDs, id)
	}
	conv, err := api.CreateGroup(ctx, args[0], memberIDs)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("created %s\n", conv.DisplayName())
}

func pickConversation(listing []domain.Conversation, fields []string) (domain.Conversation, bool) {
	if len(fields) < 2 {
		fmt.Println("usage: /open <n>  (run /list first)")
		return domain.Conversation{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(listing) {
		fmt.Println("! invalid choice")
		return domain.Conversation{}, false
	}
	return listing[n-1], true
}

func pickMany(listing []domain.Conversation, args []string) []uuid.UUID {
	selection := client.NewSelection()
	for _, raw := range args {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > len(listing) {
			fmt.Printf("! invalid choice %q\n", raw)
			return nil
		}
		selection.Toggle(listing[n-1].ID)
	}
	return selection.IDs()
}

func printMessage(msg domain.Message) {
	sender := "Unknown User"
	if msg.Sender != nil {
		sender = msg.Sender.DisplayName
	}
	when := msg.CreatedAt.Format("15:04")
	if msg.Content != nil {
		fmt.Printf("[%s] %s: %s\n", when, sender, *msg.Content)
	}
	for _, att := range msg.Attachments {
		fmt.Printf("[%s] %s: (%s) %s\n", when, sender, att.Kind, att.URL)
	}
}

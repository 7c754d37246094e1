package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codecollab/channel"
	"codecollab/domain"
	"codecollab/domain/event"
	"codecollab/infrastructure/storage"
	"codecollab/session"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required=true"`
	RedisAddr   string `env:"REDIS_ADDR,default=localhost:6379"`
	RoomID      string `env:"ROOM_ID,default=lobby"`
	Name        string `env:"PARTICIPANT_NAME,default=terminal"`
	BufferSize  int    `env:"BUFFER_SIZE,default=64"`
	LogLevel    string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins the configured room as a terminal participant: chat lines in,
// colorized room activity out.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to the collaborators.
	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return exitRuntime, fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
	}
	defer rdb.Close()

	pool, err := pgxpool.New(ctx, config.DatabaseURL)
	if err != nil {
		return exitRuntime, fmt.Errorf("postgres connection failed: %w", err)
	}
	defer pool.Close()

	changes := channel.NewRedisChannel(log, rdb)
	store := storage.NewPostgresStore(log, pool, changes)
	if err := store.Migrate(ctx); err != nil {
		return exitRuntime, err
	}

	// 4. Join the room.
	self := domain.Participant{
		ID:     uuid.NewString(),
		Name:   config.Name,
		Online: true,
	}
	sync := session.NewSynchronizer(log, store, changes, domain.RoomID(config.RoomID), self, config.BufferSize)
	sync.SetListener(printEvent)

	if err := sync.Join(ctx); err != nil {
		return exitRuntime, err
	}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sync.Leave(leaveCtx)
	}()

	go func() {
		_ = sync.Run(ctx)
	}()

	color.Green.Printf(">>> Joined room %q as %s (Ctrl+C to quit)\n", config.RoomID, config.Name)
	printParticipants(sync.State().Participants())

	// 5. Input loop: plain lines are chat; /doc and /who inspect state.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			color.Yellow.Println("Leaving room...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			switch {
			case line == "":
			case line == "/doc":
				doc := sync.State().Document()
				color.Cyan.Printf("--- document (%s, %s) ---\n", doc.Origin, doc.UpdatedAt.Format(time.TimeOnly))
				fmt.Println(doc.Text)
			case line == "/who":
				printParticipants(sync.State().Participants())
			case strings.HasPrefix(line, "/"):
				color.Red.Printf("Unknown command %q\n", line)
			default:
				if err := sync.SendMessage(ctx, line); err != nil {
					color.Red.Printf("Send failed: %v\n", err)
				}
			}
		}
	}
}

// printEvent runs on the synchronizer's apply loop and renders room
// activity as it is applied locally.
func printEvent(e event.ChangeEvent) {
	switch evt := e.(type) {
	case event.ChatInserted:
		fmt.Printf("[%s] %s: %s\n",
			evt.Message.CreatedAt.Format(time.TimeOnly),
			color.Green.Render(evt.Message.Sender),
			evt.Message.Content,
		)
	case event.DocumentChanged:
		color.Gray.Println("(document updated by a collaborator)")
	case event.PresenceChanged:
		color.Gray.Println("(presence changed, /who to list participants)")
	}
}

func printParticipants(parts []domain.Participant) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Online"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, p := range parts {
		online := "no"
		if p.Online {
			online = "yes"
		}
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append([]string{id, p.Name, online})
	}
	table.Render()
}

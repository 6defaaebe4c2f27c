package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"pamubot/app/client/brain"
	"pamubot/app/client/github"
	"pamubot/app/client/mailer"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"
	"pamubot/app/config"
	"pamubot/app/server"
	"pamubot/app/service/chat"
	"pamubot/app/service/history"
	"pamubot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	cliMode := flag.Bool("cli", false, "run an interactive chat session instead of the HTTP server")
	mcpMode := flag.Bool("mcp", false, "serve the read-only tools over MCP stdio")
	flag.Parse()

	di := do.New()
	defer di.Shutdown()

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, brain.NewClient)
	do.Provide(di, medium.NewClient)
	do.Provide(di, youtube.NewClient)
	do.Provide(di, github.NewClient)
	do.Provide(di, mailer.NewClient)
	do.Provide(di, chat.New)
	do.Provide(di, history.New)
	do.Provide(di, server.New)
	do.Provide(di, server.NewMCPServer)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	switch {
	case *cliMode:
		runCLI(appCtx, di)
	case *mcpMode:
		if err := do.MustInvoke[*server.MCPServer](di).Run(appCtx); err != nil {
			log.Fatalf("mcp server failed: %v", err)
		}
	default:
		slog.Info("Service started")

		if err := do.MustInvoke[*server.Server](di).Run(appCtx); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}
}

func runCLI(ctx context.Context, di *do.Injector) {
	session := chat.NewSession(do.MustInvoke[*chat.Graph](di))

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Virtual assistant chat")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Type your questions below. Commands:")
	fmt.Println("  /clear   - Clear conversation history")
	fmt.Println("  /history - Show conversation history")
	fmt.Println("  /quit    - Exit the chat")
	fmt.Println(strings.Repeat("=", 60))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "/quit":
			fmt.Println("Goodbye!")
			return

		case "/clear":
			session.ClearHistory()
			fmt.Println("Conversation history cleared.")
			continue

		case "/history":
			turns := session.History()
			if len(turns) == 0 {
				fmt.Println("No conversation history yet.")
				continue
			}
			for _, turn := range turns {
				content := turn.Content
				if len(content) > 100 {
					content = content[:100] + "..."
				}
				fmt.Printf("  [%s]: %s\n", turn.Role, content)
			}
			continue
		}

		result, err := session.Chat(ctx, input)
		if err != nil {
			fmt.Printf("Error: %s\nPlease try again.\n", err)
			continue
		}

		fmt.Printf("\nAssistant: %s\n", result.Answer)

		if len(result.Citations) > 0 {
			fmt.Printf("\nSources (%d):\n", len(result.Citations))
			for _, citation := range result.Citations {
				fmt.Printf("   • [%s] %s\n", citation.SourceType, citation.SourceName)
				if citation.URL != "" {
					fmt.Printf("     %s\n", citation.URL)
				}
			}
		}

		if len(result.SuggestedQuestions) > 0 {
			fmt.Println("\nYou could ask:")
			for _, question := range result.SuggestedQuestions {
				fmt.Printf("   • %s\n", question)
			}
		}

		fmt.Printf("\n[Turn %d]\n\n", result.TurnCount)
	}
}

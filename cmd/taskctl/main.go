package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/BuzzLyutic/secure-task-manager/internal/client"
)

func main() {
	defaultServer := os.Getenv("TASKCTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := flag.String("server", defaultServer, "task manager API base URL")
	sessionPath := flag.String("session", "", "session file (default: user config dir)")
	flag.Parse()

	if *sessionPath == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			log.Fatalf("Failed to resolve session path: %v", err)
		}
		*sessionPath = path
	}
	if err := os.MkdirAll(filepath.Dir(*sessionPath), 0o700); err != nil {
		log.Fatalf("Failed to create config dir: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "taskctl> ",
		HistoryFile:     filepath.Join(filepath.Dir(*sessionPath), "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("Failed to initialize readline: %v", err)
	}
	defer rl.Close()

	readPassword := func(prompt string) (string, error) {
		pw, err := rl.ReadPassword(prompt)
		return string(pw), err
	}

	api := client.New(*server, &http.Client{Timeout: 15 * time.Second})
	a, err := newApp(api, client.NewSessionStore(*sessionPath), rl.Stdout(), readPassword)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	fmt.Fprintf(rl.Stdout(), "connected to %s, type 'help' for commands\n", *server)
	rl.SetPrompt(a.prompt())

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(rl.Stdout(), "Use 'exit' to exit the program.")
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			log.Fatalf("readline: %v", err)
		}

		args := parseArgs(strings.TrimSpace(line))
		if len(args) > 0 && (args[0] == "exit" || args[0] == "quit") {
			return
		}

		if err := a.Execute(context.Background(), args); err != nil {
			fmt.Fprintln(rl.Stdout(), "Error:", err)
		}
		rl.SetPrompt(a.prompt())
	}
}

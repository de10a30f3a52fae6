// flashchat is a terminal chat client for the NVIDIA Integrate API with
// streaming reasoning output.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chzyer/readline"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/chat"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/config"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/logger"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/nvapi"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/prompts"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	retry := nvapi.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.MaxRetries
	client, err := nvapi.NewClient(nvapi.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		Retry:   retry,
		Logger:  log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nSet NVIDIA_API_KEY or use --api-key.\n", err)
		os.Exit(1)
	}

	session, err := chat.NewSession(cfg, client, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("flashchat - NVIDIA Integrate API chat")
	fmt.Printf("Model: %s | API: %s | Thinking: %v\n", cfg.Model, cfg.BaseURL, cfg.Thinking)
	fmt.Println("Type /help for commands, /quit to exit. Try for example:")
	for _, q := range prompts.ExampleQuestions {
		fmt.Printf("  %s\n", q)
	}

	readInput := func(_ string) (string, error) {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return line, err
	}

	if err := session.Run(context.Background(), readInput); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := home + "/.flashchat"
	_ = os.MkdirAll(dir, 0755)
	return dir + "/history"
}

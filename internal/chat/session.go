// Package chat manages the interactive chat session with the model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nordeim/Flash-Chatbot-sub002/internal/commands"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/config"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/models"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/nvapi"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/prompts"
	"github.com/nordeim/Flash-Chatbot-sub002/internal/render"
)

// InputReader reads a line of user input. Returns the line and any error (io.EOF on end).
type InputReader func(prompt string) (string, error)

// Session manages the state of a single chat conversation.
type Session struct {
	cfg      *config.Config
	client   *nvapi.Client
	renderer *render.Renderer
	cmdReg   *commands.Registry
	modelMgr *models.Manager

	systemPrompt string
	history      []nvapi.Message
	writer       io.Writer
}

// NewSession creates a new chat session from the given configuration.
func NewSession(cfg *config.Config, client *nvapi.Client, w io.Writer) (*Session, error) {
	if w == nil {
		w = os.Stdout
	}
	r, err := render.NewRenderer(w)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		client:   client,
		renderer: r,
		modelMgr: models.NewManager(cfg.BaseURL, cfg.APIKey),
		writer:   w,
	}

	reg := commands.NewRegistry(w)
	commands.RegisterDefaults(reg, commands.Callbacks{
		OnClear:    s.clearHistory,
		OnModel:    s.switchModel,
		OnSystem:   s.setSystemPrompt,
		OnThinking: s.toggleThinking,
		OnConfig:   s.showConfig,
	})
	s.cmdReg = reg

	return s, nil
}

// Run starts the main chat loop using the provided input reader.
func (s *Session) Run(ctx context.Context, readInput InputReader) error {
	for {
		input, err := readInput("you> ")
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if output, isCmd := s.cmdReg.Execute(input); isCmd {
			if output == "__QUIT__" {
				return nil
			}
			fmt.Fprintln(s.writer, output)
			continue
		}

		if err := s.sendMessage(ctx, input); err != nil {
			fmt.Fprintf(s.writer, "Error: %v\n", err)
		}
	}
}

// Messages returns the current message history (read-only copy).
func (s *Session) Messages() []nvapi.Message {
	out := make([]nvapi.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) buildRequest(userMsg string) nvapi.ChatRequest {
	msgs := make([]nvapi.Message, 0, len(s.history)+2)
	msgs = append(msgs, nvapi.Message{Role: nvapi.RoleSystem, Content: prompts.SystemPrompt(s.systemPrompt)})
	msgs = append(msgs, s.history...)
	msgs = append(msgs, nvapi.Message{Role: nvapi.RoleUser, Content: userMsg})

	return nvapi.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    msgs,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
		Thinking:    s.cfg.Thinking,
	}
}

func (s *Session) sendMessage(ctx context.Context, userMsg string) error {
	req := s.buildRequest(userMsg)

	var answer string
	var err error
	if s.cfg.Stream {
		answer, err = s.streamResponse(ctx, req)
	} else {
		answer, err = s.completeResponse(ctx, req)
	}
	if err != nil {
		return err
	}

	s.history = append(s.history, nvapi.Message{Role: nvapi.RoleUser, Content: userMsg})
	if answer != "" {
		s.history = append(s.history, nvapi.Message{Role: nvapi.RoleAssistant, Content: answer})
	}
	return nil
}

// streamResponse consumes the progress-event stream, showing reasoning
// as it arrives and rendering the answer as markdown. A failure after
// partial output keeps the partial answer; a failure before any output
// is reported as something to simply try again.
func (s *Session) streamResponse(ctx context.Context, req nvapi.ChatRequest) (string, error) {
	st, err := s.client.Send(ctx, req)
	if err != nil {
		return "", err
	}
	defer st.Close()

	var acc string
	inThinking := false
	answerStarted := false
	for {
		ev, recvErr := st.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			return st.Response().Answer(), recvErr
		}

		switch ev.Kind {
		case nvapi.EventReasoning:
			if !inThinking {
				s.renderer.SectionHeader(render.ThinkingLabel)
				inThinking = true
			}
			s.renderer.Thinking(ev.Text)

		case nvapi.EventAnswer:
			if !answerStarted {
				if inThinking {
					fmt.Fprintln(s.writer)
					inThinking = false
				}
				s.renderer.SectionHeader(render.ContentLabel)
				answerStarted = true
			}
			acc, err = s.renderer.RenderStream(acc, ev.Text, false)
			if err != nil {
				fmt.Fprintf(s.writer, "\nRender error: %v\n", err)
				acc = ""
			}

		case nvapi.EventDone:
			if acc != "" {
				if _, err := s.renderer.RenderStream(acc, "", true); err != nil {
					fmt.Fprintf(s.writer, "\nRender error: %v\n", err)
				}
				acc = ""
			}
			if ev.Usage != nil {
				fmt.Fprintf(s.writer, "[tokens: %d prompt, %d completion]\n",
					ev.Usage.PromptTokens, ev.Usage.CompletionTokens)
			}

		case nvapi.EventFailed:
			if acc != "" {
				if _, err := s.renderer.RenderStream(acc, "", true); err == nil {
					acc = ""
				}
			}
			partial := ev.Partial.Answer()
			if partial != "" || ev.Partial.Reasoning() != "" {
				fmt.Fprintf(s.writer, "\n[response interrupted: %v]\n", ev.Err)
			} else {
				fmt.Fprintf(s.writer, "\n[request failed, nothing received: %v]\n", ev.Err)
			}
			return partial, nil
		}
	}

	return st.Response().Answer(), nil
}

func (s *Session) completeResponse(ctx context.Context, req nvapi.ChatRequest) (string, error) {
	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Reasoning() != "" {
		s.renderer.SectionHeader(render.ThinkingLabel)
		s.renderer.Thinking(resp.Reasoning())
		fmt.Fprintln(s.writer)
	}
	if resp.Answer() != "" {
		s.renderer.SectionHeader(render.ContentLabel)
		if err := s.renderer.Render(resp.Answer()); err != nil {
			return resp.Answer(), err
		}
	}
	return resp.Answer(), nil
}

func (s *Session) clearHistory() {
	s.history = nil
}

func (s *Session) switchModel(args string) string {
	if args == "" {
		modelList, err := s.modelMgr.List()
		if err != nil {
			return fmt.Sprintf("Error listing models: %v", err)
		}
		var sb strings.Builder
		sb.WriteString("Available models:\n")
		for _, m := range modelList {
			marker := "  "
			if m.ID == s.cfg.Model {
				marker = "* "
			}
			sb.WriteString(fmt.Sprintf("%s%s\n", marker, m.ID))
		}
		return sb.String()
	}
	s.cfg.Model = args
	s.client.SetModel(args)
	return fmt.Sprintf("Switched to model: %s", args)
}

func (s *Session) setSystemPrompt(args string) string {
	if args == "" {
		return prompts.SystemPrompt(s.systemPrompt)
	}
	s.systemPrompt = args
	return "System prompt updated."
}

func (s *Session) toggleThinking(args string) string {
	switch strings.ToLower(args) {
	case "on":
		s.cfg.Thinking = true
	case "off":
		s.cfg.Thinking = false
	case "":
		s.cfg.Thinking = !s.cfg.Thinking
	default:
		return "Usage: /thinking [on|off]"
	}
	if s.cfg.Thinking {
		return "Thinking mode enabled."
	}
	return "Thinking mode disabled."
}

func (s *Session) showConfig() string {
	return fmt.Sprintf("Model: %s\nBase URL: %s\nMax Tokens: %d\nTemperature: %.2f\nTop-P: %.2f\nThinking: %v\nStream: %v",
		s.cfg.Model, s.cfg.BaseURL, s.cfg.MaxTokens, s.cfg.Temperature, s.cfg.TopP, s.cfg.Thinking, s.cfg.Stream)
}

// Command objectiv-chat is an interactive multi-tab chat surface. Each tab
// holds an independent conversation; a tab's response keeps streaming in the
// background while another tab is visible.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ethan2298/Objectiv/internal/core"
	"github.com/Ethan2298/Objectiv/internal/handoff"
	"github.com/Ethan2298/Objectiv/internal/llm"
	"github.com/Ethan2298/Objectiv/internal/render"
)

const transferKey = "objectiv-tab-transfer"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var mode string

	cmd := &cobra.Command{
		Use:   "objectiv-chat",
		Short: "Multi-tab streaming AI chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.DefaultMode = mode
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "objectiv.yaml", "path to config file")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "backend mode (anthropic, openai, agent)")
	return cmd
}

// cliActions prints backend-issued side effects; a full UI would open tabs
// and views instead.
type cliActions struct{}

func (cliActions) OpenItem(id, kind string) error {
	fmt.Printf("→ open %s %s\n", kind, id)
	return nil
}

func (cliActions) Navigate(target string) error {
	fmt.Printf("→ navigate to %s\n", target)
	return nil
}

func (cliActions) OpenURL(url string) error {
	fmt.Printf("→ open %s\n", url)
	return nil
}

func run(cfg *core.Config) error {
	log := core.NewLogger(cfg.LogLevel)

	client, err := llm.NewClient(cfg.LLMConfig(), log)
	if err != nil {
		return err
	}

	sinks := func(string) render.Sink {
		sink, err := render.NewMarkdownSink(os.Stdout)
		if err != nil {
			log.Warn("markdown renderer unavailable, falling back to plain text", "error", err)
			return render.NewTextSink(os.Stdout)
		}
		return sink
	}

	registry, err := core.NewRegistry(client, core.NewDispatcher(cliActions{}, log), sinks, cfg.Mode(), log)
	if err != nil {
		return err
	}

	store, err := handoff.NewStore(handoffDir())
	if err != nil {
		return err
	}

	hub := handoff.NewHub()
	selections, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go func() {
		for sel := range selections {
			fmt.Printf("\n[context] current item is now %s (%s)\n", sel.ID, sel.Type)
		}
	}()

	fmt.Println("objectiv-chat — type /help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("[%s] > ", tabLabel(registry))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if err := handleCommand(registry, store, hub, line); err != nil {
				fmt.Printf("! %v\n", err)
			}
			continue
		}

		sendMessage(registry, line)
	}
}

// sendMessage starts a streaming turn on the active tab and returns as soon
// as the request is issued. The response streams to the tab's sink while the
// input loop keeps serving commands, so /stop, /switch, and /tabs all work
// mid-stream. The prompt and the stream share stdout, so output interleaves
// while the streaming tab is visible.
func sendMessage(registry *core.Registry, text string) {
	active := registry.Active()
	ss, err := registry.Send(context.Background(), active.ID, text)
	if err != nil {
		if llm.IsCredentials(err) {
			fmt.Printf("! %v — set the key and try again\n", err)
		} else {
			fmt.Printf("! %v\n", err)
		}
		return
	}
	go func() {
		ss.Wait()
		if err := ss.Err(); err != nil {
			fmt.Printf("\n! response failed: %v\n", err)
		}
	}()
}

func handleCommand(registry *core.Registry, store *handoff.Store, hub *handoff.Hub, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Println(`  /tab [title]          open a new tab
  /tabs                 list tabs
  /switch <n>           switch to tab n
  /close                close the current tab
  /mode <name>          set backend mode for this tab
  /context <kind> <name> <text...>  attach a context item
  /select <id> <type>   broadcast the current item
  /export               hand the current tab off to another surface
  /import               pick up a handed-off tab
  /stop                 cancel the in-flight response
  /clear                clear this tab's history
  /quit                 exit`)

	case "/tab":
		session, err := registry.Create(nil)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			session.SetTitle(strings.Join(args, " "))
		}
		fmt.Printf("opened %s\n", session.ID)

	case "/tabs":
		active := registry.Active()
		for i, s := range registry.List() {
			marker := " "
			if s == active {
				marker = "*"
			}
			state := ""
			if ss := s.Stream(); ss != nil {
				state = fmt.Sprintf(" [%s]", ss.State())
			}
			fmt.Printf("%s %d. %s %s%s\n", marker, i+1, s.ID, s.Title(), state)
		}

	case "/switch":
		if len(args) != 1 {
			return fmt.Errorf("usage: /switch <n>")
		}
		sessions := registry.List()
		var target *core.Session
		for i, s := range sessions {
			if fmt.Sprint(i+1) == args[0] || s.ID == args[0] {
				target = s
				break
			}
		}
		if target == nil {
			return fmt.Errorf("no tab %q", args[0])
		}
		return registry.SwitchTo(target.ID)

	case "/close":
		return registry.Close(registry.Active().ID)

	case "/mode":
		if len(args) != 1 {
			return fmt.Errorf("usage: /mode <anthropic|openai|agent>")
		}
		mode, err := llm.ParseMode(args[0])
		if err != nil {
			return err
		}
		registry.Active().SetMode(mode)

	case "/context":
		if len(args) < 3 {
			return fmt.Errorf("usage: /context <kind> <name> <text...>")
		}
		registry.Active().AddContextItem(core.ContextItem{
			Kind:     args[0],
			Name:     args[1],
			Snapshot: strings.Join(args[2:], " "),
		})

	case "/select":
		if len(args) != 2 {
			return fmt.Errorf("usage: /select <id> <type>")
		}
		hub.Publish(handoff.Selection{ID: args[0], Type: args[1]})

	case "/export":
		payload, err := json.Marshal(registry.Active().TransferState())
		if err != nil {
			return err
		}
		if err := store.Put(transferKey, payload); err != nil {
			return err
		}
		fmt.Println("tab exported")

	case "/import":
		payload, ok, err := store.Take(transferKey)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("nothing to import")
		}
		var state core.TransferState
		if err := json.Unmarshal(payload, &state); err != nil {
			return err
		}
		session, err := registry.Create(&state)
		if err != nil {
			return err
		}
		fmt.Printf("imported %s (%d messages)\n", session.ID, len(session.Messages()))

	case "/stop":
		if ss := registry.Active().Stream(); ss != nil {
			ss.Cancel()
			fmt.Println("stopped")
		}

	case "/clear":
		registry.Active().ClearMessages()

	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
	return nil
}

func tabLabel(registry *core.Registry) string {
	active := registry.Active()
	if title := active.Title(); title != "" {
		return title
	}
	return active.ID
}

func handoffDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/objectiv/handoff"
	}
	return ".objectiv-handoff"
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/turn"
	"github.com/jeranaias/lumenarc/internal/ui/components"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
	"github.com/jeranaias/lumenarc/internal/util"
)

// RunAsk sends one prompt in a fresh conversation and prints the reply.
//
// On a terminal the finished reply is rendered as markdown; otherwise text
// is streamed to out as it arrives. Cancelling ctx stops the turn and keeps
// what was received. A failed turn returns a *TurnError.
func RunAsk(ctx context.Context, a *app.App, args Args, out io.Writer) error {
	var atts []model.Attachment
	if args.File != "" {
		att, err := a.Attachments.EncodeFile(util.ExpandPath(args.File))
		if err != nil {
			return err
		}
		atts = append(atts, att)
	}

	if err := a.Preflight(ctx); err != nil {
		return fmt.Errorf("provider unavailable: %w", err)
	}

	id := a.Store.Create()
	in := a.Input(id, args.Query, atts)
	in.WebSearch = args.Search
	in.ExtendedReasoning = args.Think

	tty := isTerminal(out)
	if !tty {
		a.Controller.SetObserver(chunkWriter(out, id))
		defer a.Controller.SetObserver(nil)
	}

	res, err := a.Controller.Run(ctx, in)
	if err != nil {
		return err
	}

	msg := a.Store.Message(id, res.AssistantMessageID)
	if msg == nil {
		return fmt.Errorf("reply %s not found", res.AssistantMessageID)
	}

	p := newPalette(out)
	if tty {
		width := terminalWidth(out)
		theme := styles.NewTheme(a.Config.UI.Theme)
		md := components.NewRenderer(theme.GlamourStyle(), a.Config.UI.RenderMarkdown)
		body := msg.Content
		if res.State != turn.StateFailed {
			body = md.Render(msg.Content, width)
		}
		fmt.Fprintln(out, body)
	} else {
		// Streamed text has no trailing newline; a failed turn replaced it
		// with the apology, which goes to out as well.
		if res.State == turn.StateFailed {
			if msg.Content != "" {
				fmt.Fprint(out, "\n"+msg.Content)
			}
		}
		fmt.Fprintln(out)
	}
	printCitations(out, p, msg.Citations)

	switch res.State {
	case turn.StateFailed:
		return &TurnError{Err: res.Err}
	case turn.StateCancelled:
		fmt.Fprintln(out, p.warning.Render("[Stopped]"))
	}
	return nil
}

// chunkWriter returns an observer that copies one conversation's streamed
// text to w.
func chunkWriter(w io.Writer, conversationID string) turn.Observer {
	return func(ev turn.Event) {
		if ev.Kind != turn.EventChunk || ev.ConversationID != conversationID {
			return
		}
		if ev.Chunk.Text != "" {
			io.WriteString(w, ev.Chunk.Text)
		}
	}
}

// printCitations lists sources under a reply.
func printCitations(w io.Writer, p palette, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.muted.Render("Sources"))
	for i, c := range citations {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = c.URL
		}
		fmt.Fprintf(w, "  [%d] %s\n", i+1, title)
		if c.URL != "" && c.URL != title {
			fmt.Fprintf(w, "      %s\n", p.link.Render(c.URL))
		}
	}
}

/*
Package parley is a declarative conversational workflow engine for building
command-driven chat bots, CLIs, and automation front-ends.

Commands live as data (JSON, YAML, or frontmatter Markdown definitions), free
text resolves to them by fuzzy matching, and multi-step conversations collect
answers that feed outbound API calls.

# Concept

Parley treats every user-invocable capability as a command definition: a
simple canned response, a multi-step conversation, or a conversation ending
in an authenticated API request. The engine owns matching, per-identity
conversation state, answer validation, templating, and session lifecycle,
while your application ("Host") owns the transport: it hands Parley one text
turn at a time and renders the reply. This keeps the core embeddable behind
any surface: CLI, HTTP server, or an MCP tool host.

# Key Features

  - Declarative catalog: commands are data files, validated exhaustively at
    load so conversations never dead-end at runtime.
  - Fuzzy intent matching: normalized similarity against names and sample
    phrases, with a configurable inclusive threshold.
  - Durable conversations: per-identity state survives process restarts on
    the file and redis backends, and turns are serialized per identity.
  - Session lifecycle: login, token storage, and CSRF-expiry recovery are
    built in; API steps never run unauthenticated.

# Usage

Initialize the engine with New, pointing it at a commands directory. Each
turn goes through HandleTurn; slash-style actions (login, logout, reset)
have dedicated methods.

	package main

	import (
		"bufio"
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/parley"
	)

	func main() {
		ctx := context.Background()

		engine, err := parley.New(ctx, "./commands",
			parley.WithLoginURL("https://backend.example/api/validate_credentials"),
		)
		if err != nil {
			log.Fatal(err)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			reply, err := engine.HandleTurn(ctx, "local-user", scanner.Text())
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(reply.Text)
		}
	}

For service deployments, swap the store (pkg/adapters/redis), add the
distributed lock, and mount the HTTP surface (pkg/adapters/httpapi) or the
MCP server (pkg/adapters/mcp) on top of the same Engine.
*/
package parley

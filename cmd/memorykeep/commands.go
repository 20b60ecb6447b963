package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintf(a.stdout, "schema ready (%s)\n", rt.cfg.Database.Driver)
			return nil
		},
	}
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <conversation> [message]",
		Short: "Send one message, or start a REPL when no message is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			conversationID := args[0]
			send := func(message string) error {
				reply, err := rt.chat.Send(ctx, conversationID, message)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, reply.Text)
				s := reply.Stats
				fmt.Fprintf(a.stdout, "[stream %d/%d tokens, %.1f%%]\n", s.StreamTokens, s.Capacity, s.CapacityPct)
				return nil
			}

			if len(args) == 2 {
				return send(args[1])
			}

			fmt.Fprintln(a.stdout, "memorykeep chat (type 'exit' to quit)")
			scanner := bufio.NewScanner(a.stdin)
			for {
				fmt.Fprint(a.stdout, "\n> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if input == "exit" || input == "quit" {
					break
				}
				if err := send(input); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <conversation>",
		Short: "Print the token occupancy of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.chat.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(stats)
		},
	}
}

func (a *app) consolidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate <conversation>",
		Short: "Run a memory keep now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.chat.Consolidate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
}

func (a *app) factCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fact <conversation> <key> <value>",
		Short: "Set a domain fact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.domain.UpdateFact(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			facts, err := rt.domain.Facts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(facts)
		},
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// AgentNet - Autonomous Agent Network Core
// Copyright (C) 2026 atproto-agent-network
//
// This file is part of AgentNet.
//
// AgentNet is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AgentNet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with AgentNet. If not, see <https://www.gnu.org/licenses/>.


// Command agentnetd is the process entrypoint for the agent network
// core: it wires the Postgres-backed stores, the relay, the model
// client, the core tool set, and the HTTP ingress into one listener.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/atproto-agent-network/agentnet/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:     "agentnetd",
	Short:   "Agent network core daemon",
	Version: version.String(),
	Long: `agentnetd runs the agent network core: per-agent actors with an
encrypted memory store, a tool dispatcher, a timer-driven observe/think/act/
reflect cycle, and a relay that fans events out to subscribers.`,
}

func main() {
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "agentnetd: %v\n", err)
		os.Exit(1)
	}
}

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


package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atproto-agent-network/agentnet/internal/auditlog"
	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/actor"
	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/coretools"
	"github.com/atproto-agent-network/agentnet/pkg/extension"
	"github.com/atproto-agent-network/agentnet/pkg/httpapi"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/modelclient"
	"github.com/atproto-agent-network/agentnet/pkg/relay"
	"github.com/atproto-agent-network/agentnet/pkg/store"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

var (
	serveConfigPath string
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent network core HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to a YAML process config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := obslog.Default()

	cfg, err := agentconfig.LoadProcessConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if missing := cfg.MissingBindings(); len(missing) > 0 {
		log.Warn("agentnetd.missing_bindings", obslog.Any("missing", missing))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	dbCfg := &store.Config{SSLMode: "disable"}
	if cfg.Database != nil {
		dbCfg = &store.Config{
			Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
			Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
		}
	}
	backing, err := store.New(ctx, dbCfg)
	if err != nil {
		return err
	}

	// The registry starts empty here and is populated by whatever domain
	// extensions the deployment wires in, each agent then selecting its
	// subset via actor.ReloadExtensions.
	exts := extension.NewRegistry()

	// Plug a real model-serving Client implementation in here; MockClient
	// keeps the actor cycle chain runnable without one.
	model := modelclient.Client(&modelclient.MockClient{})

	mgr := httpapi.NewManager(backing.Records, backing.Shared, backing.Directory, backing.State, nil, model, exts, toolsFactory, cfg)
	mgr.Relay = relay.New(backing.Directory, mgr, log)
	mgr.Log = log

	audit := auditlog.NewShipper("agentnet-audit.log", 10*time.Second, log)
	audit.Start()
	defer audit.Stop()
	mgr.Relay.Audit = audit

	mux := http.NewServeMux()
	mgr.Routes(mux)
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	srv := &http.Server{Addr: serveAddr, Handler: mux}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("agentnetd.shutting_down")
		mgr.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("agentnetd.listening", obslog.String("addr", serveAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// toolsFactory builds the per-agent tool registry every cycle
// dispatches against: the always-available core set. Extension tools,
// if any are registered for this process, are merged in by
// actor.ReloadExtensions on a later cycle once an admin operation
// selects them for this agent.
func toolsFactory(_ string, _ *agentconfig.AgentConfig, mem *memory.Store, ac *actor.Actor) *toolkit.Registry {
	return coretools.Registry(mem, ac)
}

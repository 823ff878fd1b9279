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


package modelclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

func TestFallbackChain_DedupesAndOrders(t *testing.T) {
	chain := FallbackChain("anthropic/claude-sonnet-4.5", "google/gemini-3-flash-preview")
	assert.Equal(t, []string{
		"anthropic/claude-sonnet-4.5",
		"google/gemini-3-flash-preview",
		"moonshotai/kimi-k2.5",
	}, chain)
}

func TestFallbackChain_EmptyFastModelOmitted(t *testing.T) {
	chain := FallbackChain("anthropic/claude-sonnet-4.5", "")
	assert.Equal(t, []string{
		"anthropic/claude-sonnet-4.5",
		"google/gemini-3-flash-preview",
		"moonshotai/kimi-k2.5",
	}, chain)
}

func TestRunLoop_NoToolCallsReturnsImmediately(t *testing.T) {
	client := &MockClient{Responses: []GenerateResponse{{Text: "all done"}}}
	reg := toolkit.NewRegistry()

	result, err := RunLoop(context.Background(), client, reg, LoopOptions{Models: []string{"m1"}})
	require.NoError(t, err)
	assert.Equal(t, "all done", result.FinalText)
	assert.Len(t, client.Calls, 1)
}

func TestRunLoop_DispatchesToolCallsAndLoops(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(&toolkit.Tool{
		Name: "remember",
		Execute: func(_ context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		},
	})

	client := &MockClient{Responses: []GenerateResponse{
		{ToolCalls: []ToolCall{{ID: "1", Name: "remember", Args: json.RawMessage(`{"summary":"x"}`)}}},
		{Text: "stored it"},
	}}

	result, err := RunLoop(context.Background(), client, reg, LoopOptions{
		Models: []string{"m1"}, EnabledTools: []string{"remember"},
	})
	require.NoError(t, err)
	assert.Equal(t, "stored it", result.FinalText)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, []string{"remember"}, result.Trace[0].ToolCalls)
	assert.Len(t, client.Calls, 2)
	require.Len(t, client.Calls[0].Tools, 1)
	assert.Equal(t, "remember", client.Calls[0].Tools[0].Name)
}

func TestRunLoop_FallsBackOnRetryableError(t *testing.T) {
	client := &MockClient{
		FailFor:   "primary",
		Err:       &RetryableError{Err: errors.New("429 too many requests")},
		Responses: []GenerateResponse{{Text: "recovered"}},
	}
	reg := toolkit.NewRegistry()

	result, err := RunLoop(context.Background(), client, reg, LoopOptions{Models: []string{"primary", "fallback"}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.FinalText)
	require.Len(t, client.Calls, 2)
	assert.Equal(t, "primary", client.Calls[0].Model)
	assert.Equal(t, "fallback", client.Calls[1].Model)
}

func TestRunLoop_DoesNotFallBackOnClientError(t *testing.T) {
	client := &MockClient{FailFor: "primary", Err: errors.New("400 bad request")}
	reg := toolkit.NewRegistry()

	_, err := RunLoop(context.Background(), client, reg, LoopOptions{Models: []string{"primary", "fallback"}})
	require.Error(t, err)
	assert.Len(t, client.Calls, 1)
}

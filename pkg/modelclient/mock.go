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

import "context"

// MockClient is a deterministic, in-memory Client for tests. Each call
// to Generate consumes the next scripted response regardless of model
// name, unless FailFor names the model as a trigger for Err.
type MockClient struct {
	Responses []GenerateResponse
	step      int

	// FailFor, if set, makes Generate return Err whenever the requested
	// model equals FailFor, without consuming a step. Used to exercise
	// the fallback chain deterministically.
	FailFor string
	Err     error

	Calls []MockCall
}

// MockCall records one invocation for assertions.
type MockCall struct {
	Model   string
	System  string
	Tools   []ToolDef
	History []Message
}

func (m *MockClient) Generate(_ context.Context, model, system string, tools []ToolDef, history []Message) (GenerateResponse, error) {
	m.Calls = append(m.Calls, MockCall{Model: model, System: system, Tools: tools, History: append([]Message{}, history...)})

	if m.FailFor != "" && model == m.FailFor {
		return GenerateResponse{}, m.Err
	}
	if m.step >= len(m.Responses) {
		return GenerateResponse{Text: "done"}, nil
	}
	resp := m.Responses[m.step]
	m.step++
	return resp, nil
}

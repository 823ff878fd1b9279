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


package actor

const sessionWindowLimit = 50

// Message is one entry of the think-loop's conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the live conversation window plus the archive cursor.
type Session struct {
	Messages  []Message `json:"messages"`
	BaseIndex int       `json:"baseIndex"`
}

// ArchiveBatch is the overflow slice written to an agent.session.archive
// record before BaseIndex advances, so history is never lost.
type ArchiveBatch struct {
	Messages  []Message
	FromIndex int
	ToIndex   int
}

// Append adds a message to the live window and, if the window now
// exceeds the 50-message limit, returns the overflow batch to archive
// and the trimmed session. Exactly one archive batch is produced per
// overflow event and the resulting window has length <= 50.
func (s Session) Append(msg Message) (Session, *ArchiveBatch) {
	s.Messages = append(append([]Message{}, s.Messages...), msg)
	if len(s.Messages) <= sessionWindowLimit {
		return s, nil
	}

	overflow := len(s.Messages) - sessionWindowLimit
	batch := &ArchiveBatch{
		Messages:  append([]Message{}, s.Messages[:overflow]...),
		FromIndex: s.BaseIndex,
		ToIndex:   s.BaseIndex + overflow,
	}
	trimmed := Session{
		Messages:  append([]Message{}, s.Messages[overflow:]...),
		BaseIndex: s.BaseIndex + overflow,
	}
	return trimmed, batch
}

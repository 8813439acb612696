package ws

import "github.com/ndemidov/presenced/internal/presence"

// inbound is the discriminated client message envelope. Fields beyond
// Type are populated per message type; see dispatch.
type inbound struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId,omitempty"`
	Status    string         `json:"status,omitempty"`
	TTLMs     int64          `json:"ttlMs,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserIDs   []string       `json:"userIds,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	FriendIDs []string       `json:"friendIds,omitempty"`
}

// wireSnapshot is the JSON rendering of a presence snapshot.
type wireSnapshot struct {
	UserID   string          `json:"userId"`
	Status   presence.Status `json:"status"`
	LastSeen int64           `json:"lastSeen"`
	IsOnline bool            `json:"isOnline"`
	TTLMs    int64           `json:"ttlMs"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

func toWire(snap presence.Snapshot) wireSnapshot {
	return wireSnapshot{
		UserID:   snap.UserID,
		Status:   snap.Status,
		LastSeen: snap.LastSeen.UnixMilli(),
		IsOnline: snap.IsOnline,
		TTLMs:    snap.TTL.Milliseconds(),
		Metadata: snap.Metadata,
	}
}

func toWireList(snaps []presence.Snapshot) []wireSnapshot {
	out := make([]wireSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, toWire(snap))
	}
	return out
}

type errorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type heartbeatAck struct {
	Type string       `json:"type"`
	User wireSnapshot `json:"user"`
}

type offlineAck struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type presenceResult struct {
	Type      string         `json:"type"`
	RequestID string         `json:"requestId"`
	Users     []wireSnapshot `json:"users"`
}

type friendsSnapshot struct {
	Type  string         `json:"type"`
	Users []wireSnapshot `json:"users"`
}

type presenceUpdate struct {
	Type string `json:"type"`
	presence.Update
}

package realtime

import (
	"sort"
	"sync"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"
)

// RoomInfo 桌台房间诊断信息
type RoomInfo struct {
	TableID     string   `json:"tableId"`
	Clients     int      `json:"clients"`
	Connections int      `json:"connections"`
	Members     []string `json:"members"`

	// 全部桌台的连接总数
	TotalConnections int `json:"totalConnections"`
}

// Hub 管理连接与桌台房间
// rooms 决定消息投递；membership 仅用于统计与诊断，不参与投递判断。
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	membership map[string]map[string]struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		membership: make(map[string]map[string]struct{}),
	}
}

func roomName(tableID string) string {
	return constants.RoomPrefixTable + tableID
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister 移除连接并返回其所在的桌台
func (h *Hub) unregister(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	var tables []string
	for room, members := range h.rooms {
		if _, ok := members[c]; !ok {
			continue
		}
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	for tableID, ids := range h.membership {
		if _, ok := ids[c.id]; !ok {
			continue
		}
		delete(ids, c.id)
		tables = append(tables, tableID)
		if len(ids) == 0 {
			delete(h.membership, tableID)
			logger.Debugw("realtime_table_empty", "table_id", tableID)
		}
	}
	sort.Strings(tables)
	return tables
}

// join 加入桌台房间，返回该桌当前连接数
func (h *Hub) join(c *Client, tableID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := roomName(tableID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.membership[tableID] == nil {
		h.membership[tableID] = make(map[string]struct{})
	}
	h.membership[tableID][c.id] = struct{}{}
	return len(h.membership[tableID])
}

// leave 离开桌台房间，返回该桌剩余连接数
func (h *Hub) leave(c *Client, tableID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := roomName(tableID)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if ids, ok := h.membership[tableID]; ok {
		delete(ids, c.id)
		if len(ids) == 0 {
			delete(h.membership, tableID)
			return 0
		}
		return len(ids)
	}
	return 0
}

// BroadcastTable 向桌台房间内所有连接推送事件，返回投递数
func (h *Hub) BroadcastTable(tableID, event string, data interface{}) int {
	h.mu.RLock()
	members := h.rooms[roomName(tableID)]
	targets := make([]*Client, 0, len(members))
	for c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, event, data)
}

// BroadcastAll 向所有连接推送事件，返回投递数
func (h *Hub) BroadcastAll(event string, data interface{}) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, event, data)
}

func (h *Hub) deliver(targets []*Client, event string, data interface{}) int {
	if len(targets) == 0 {
		return 0
	}
	frame, err := encodeFrame(event, data)
	if err != nil {
		logger.Warnw("realtime_encode_failed", "event", event, "error", err)
		return 0
	}
	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
		}
	}
	metrics.ObserveDelivery(event, delivered)
	return delivered
}

// TableClients 桌台连接数（来自 membership 统计）
func (h *Hub) TableClients(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.membership[tableID])
}

// Room 桌台房间诊断信息
func (h *Hub) Room(tableID string) RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]string, 0, len(h.membership[tableID]))
	for id := range h.membership[tableID] {
		members = append(members, id)
	}
	sort.Strings(members)
	return RoomInfo{
		TableID:     tableID,
		Clients:     len(h.membership[tableID]),
		Connections: len(h.rooms[roomName(tableID)]),
		Members:     members,

		TotalConnections: len(h.clients),
	}
}

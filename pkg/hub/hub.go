package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/social-system/social-system/pkg/logger"
)

// 实时事件名，广播类事件发给全部在线连接，寻址类事件只发给目标用户
const (
	EventLikeCounter        = "counter.like.updated"
	EventCommentCounter     = "counter.comment.updated"
	EventFollowCounter      = "counter.follow.updated"
	EventNotificationCreate = "notification.created"
	EventUnreadCount        = "notification.unreadCount"
	EventCommentCreated     = "comment.created"
)

type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

const sessionBuffer = 64

// Session 一条在线连接；同一用户可以有多个并存的会话（多端登录）
type Session struct {
	ProfileID uuid.UUID
	send      chan []byte
	closeOnce sync.Once
}

// Send 返回会话的出站消息通道，由写泵消费
func (s *Session) Send() <-chan []byte {
	return s.send
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// Hub 是扇出通道：交付至多一次、跨通道无序、尽力而为。
// 错过的实时事件不补发，持久性由通知存储保证。
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Session]bool
	logger   *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[*Session]bool),
		logger:   logger,
	}
}

func (h *Hub) Register(profileID uuid.UUID) *Session {
	session := &Session{
		ProfileID: profileID,
		send:      make(chan []byte, sessionBuffer),
	}

	h.mu.Lock()
	if h.sessions[profileID] == nil {
		h.sessions[profileID] = make(map[*Session]bool)
	}
	h.sessions[profileID][session] = true
	h.mu.Unlock()

	return session
}

func (h *Hub) Unregister(session *Session) {
	h.mu.Lock()
	sessions := h.sessions[session.ProfileID]
	if sessions != nil {
		delete(sessions, session)
		if len(sessions) == 0 {
			delete(h.sessions, session.ProfileID)
		}
	}
	h.mu.Unlock()

	session.close()
}

// BroadcastAll 把事件广播给所有在线连接，缓冲已满的连接直接跳过
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal broadcast event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sessions := range h.sessions {
		for session := range sessions {
			select {
			case session.send <- data:
			default:
			}
		}
	}
}

// SendToUser 把事件发给指定用户的全部会话，不在线时为空操作
func (h *Hub) SendToUser(profileID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal user event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for session := range h.sessions[profileID] {
		select {
		case session.send <- data:
		default:
		}
	}
}

// IsConnected 报告该用户是否有本地在线会话
func (h *Hub) IsConnected(profileID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[profileID]) > 0
}

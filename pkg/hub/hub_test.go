package hub

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/social-system/social-system/pkg/logger"
)

func recv(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case data := <-s.Send():
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no message buffered")
	}
	return Envelope{}
}

func assertEmpty(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.Send():
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestSendToUser(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	alice := uuid.New()
	bob := uuid.New()

	aliceSession := h.Register(alice)
	bobSession := h.Register(bob)

	h.SendToUser(alice, EventUnreadCount, map[string]int{"count": 3})

	env := recv(t, aliceSession)
	if env.Event != EventUnreadCount {
		t.Errorf("event = %s, want %s", env.Event, EventUnreadCount)
	}
	assertEmpty(t, bobSession)
}

func TestSendToUserAllSessions(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	alice := uuid.New()

	// 多端登录：两个会话都要收到
	first := h.Register(alice)
	second := h.Register(alice)

	h.SendToUser(alice, EventNotificationCreate, "hi")

	recv(t, first)
	recv(t, second)
}

func TestBroadcastAll(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	a := h.Register(uuid.New())
	b := h.Register(uuid.New())

	h.BroadcastAll(EventLikeCounter, map[string]int{"totalLikes": 1})

	if env := recv(t, a); env.Event != EventLikeCounter {
		t.Errorf("event = %s, want %s", env.Event, EventLikeCounter)
	}
	recv(t, b)
}

func TestSendToOfflineUserIsNoop(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	h.SendToUser(uuid.New(), EventNotificationCreate, "ghost")
}

func TestUnregister(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	alice := uuid.New()
	session := h.Register(alice)

	if !h.IsConnected(alice) {
		t.Fatal("expected connected after register")
	}

	h.Unregister(session)

	if h.IsConnected(alice) {
		t.Fatal("expected disconnected after unregister")
	}
	// 出站通道关闭，写泵据此退出
	if _, ok := <-session.Send(); ok {
		t.Fatal("send channel not closed")
	}

	// 重复注销不会panic
	h.Unregister(session)
}

func TestSlowSessionSkipped(t *testing.T) {
	h := NewHub(logger.NewLogger("error"))
	alice := uuid.New()
	session := h.Register(alice)

	// 塞满缓冲后继续发送不得阻塞
	for i := 0; i < sessionBuffer+10; i++ {
		h.SendToUser(alice, EventLikeCounter, i)
	}

	drained := 0
	for {
		select {
		case <-session.Send():
			drained++
			continue
		default:
		}
		break
	}
	if drained != sessionBuffer {
		t.Errorf("drained %d messages, want %d", drained, sessionBuffer)
	}
}

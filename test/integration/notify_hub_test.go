//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type countPayload struct {
	UnreadCount int `json:"unreadCount"`
}

type scheduledPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestNotifyHub_RejectsBadToken(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HubBaseURL, 30*time.Second)

	_, resp, err := DialWS(t, cfg, "not-a-jwt")
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	ExpectStatus(t, resp, http.StatusUnauthorized)
}

func TestNotifyHub_PublishAndMarkRead(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HubBaseURL, 30*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := SeedUser(t, db, false)
	ws, _, err := DialWS(t, cfg, MintToken(t, cfg, userID))
	must(t, err, "dial user %d", userID)

	ws.WaitFor("connection_established", 5*time.Second)
	if c := Decode[countPayload](t, ws.WaitFor("notification_count", 5*time.Second)); c.UnreadCount != 0 {
		t.Fatalf("fresh user has %d unread", c.UnreadCount)
	}

	body, _ := json.Marshal(map[string]any{
		"userId": userID, "type": "community", "title": "Star party", "message": "Roof at 22:00",
	})
	HTTPDoJSON(t, cfg, http.MethodPost, "/internal/v1/notifications", body, http.StatusCreated)

	pushed := Decode[scheduledPayload](t, ws.WaitFor("scheduled_notification", 5*time.Second))
	if pushed.Title != "Star party" || pushed.ID == "" {
		t.Fatalf("unexpected push: %+v", pushed)
	}
	if c := Decode[countPayload](t, ws.WaitFor("notification_count", 5*time.Second)); c.UnreadCount != 1 {
		t.Fatalf("unread after publish = %d", c.UnreadCount)
	}

	ws.Send("mark_notification_read", map[string]string{"notificationId": pushed.ID})
	ws.WaitFor("notification_marked_read", 5*time.Second)
	if c := Decode[countPayload](t, ws.WaitFor("notification_count", 5*time.Second)); c.UnreadCount != 0 {
		t.Fatalf("unread after mark = %d", c.UnreadCount)
	}
}

func TestNotifyHub_KafkaIngest(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HubBaseURL, 30*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.Topic)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := SeedUser(t, db, false)
	ws, _, err := DialWS(t, cfg, MintToken(t, cfg, userID))
	must(t, err, "dial user %d", userID)
	ws.WaitFor("notification_count", 5*time.Second)

	PublishJSON(t, cfg.KafkaBootstrap, cfg.Topic, []byte(fmt.Sprint(userID)), map[string]any{
		"kind":   "achievement",
		"userId": userID,
		"achievement": map[string]string{
			"achievementId": "first-orbit", "achievementName": "First Orbit",
		},
	})

	ws.WaitFor("achievement_unlocked", 25*time.Second)
	WaitNotifications(t, db, userID, "achievement", 1, 5*time.Second)
}

func TestNotifyHub_KafkaInvalidEventSkipped(t *testing.T) {
	cfg := LoadCfg()
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.Topic)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	userID := SeedUser(t, db, false)
	PublishJSON(t, cfg.KafkaBootstrap, cfg.Topic, []byte(fmt.Sprint(userID)), map[string]any{
		"kind": "telegram", "userId": userID,
	})
	// a valid event behind the bad one must still be consumed
	PublishJSON(t, cfg.KafkaBootstrap, cfg.Topic, []byte(fmt.Sprint(userID)), map[string]any{
		"kind": "mission_update", "userId": userID,
		"mission": map[string]string{"missionId": "m1", "title": "Window moved", "message": "Now Friday"},
	})
	WaitNotifications(t, db, userID, "mission_update", 1, 25*time.Second)
}

package ally

import (
	"math/rand/v2"
	"time"

	"omega/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func stamp(now time.Time, ago time.Duration) string {
	return now.Add(-ago).UTC().Format(time.RFC3339)
}

func mockNodes(now time.Time) []models.Node {
	return []models.Node{
		{
			NodeID:      "omega-01",
			Name:        "Dad's OMEGA",
			Role:        "Primary",
			IP:          ptr("192.168.4.2"),
			URL:         ptr("http://192.168.4.2:3000"),
			Status:      "online",
			UserStatus:  ptr(models.UserGood),
			LastSeen:    stamp(now, 0),
			LinkType:    ptr("Hotspot"),
			RSSI:        ptr(-45),
			AlertsCount: 0,
		},
		{
			NodeID:          "omega-02",
			Name:            "Mom's OMEGA",
			Role:            "Secondary",
			IP:              ptr("192.168.4.3"),
			URL:             ptr("http://192.168.4.3:3000"),
			Status:          "online",
			UserStatus:      ptr(models.UserOkay),
			UserStatusSetAt: ptr(stamp(now, 10*time.Minute)),
			LastSeen:        stamp(now, 30*time.Second),
			LinkType:        ptr("LAN"),
			RSSI:            ptr(-52),
			AlertsCount:     1,
		},
		{
			NodeID:          "omega-03",
			Name:            "Kids' OMEGA",
			Role:            "Mobile",
			IP:              ptr("192.168.4.4"),
			URL:             ptr("http://192.168.4.4:3000"),
			Status:          "degraded",
			UserStatus:      ptr(models.UserNeedHelp),
			UserStatusNote:  ptr("Device running hot"),
			UserStatusSetAt: ptr(stamp(now, 5*time.Minute)),
			LastSeen:        stamp(now, 2*time.Minute),
			LinkType:        ptr("Mesh"),
			RSSI:            ptr(-68),
			AlertsCount:     2,
		},
		{
			NodeID:   "omega-04",
			Name:     "Backup Unit",
			Role:     "Backup",
			Status:   "offline",
			LastSeen: stamp(now, time.Hour),
		},
	}
}

func mockNodeStatus(nodeID string, now time.Time) models.NodeStatus {
	return models.NodeStatus{
		NodeID: nodeID,
		Identity: models.NodeIdentity{
			Hostname:   "omega-primary",
			Version:    "1.0.0",
			Uptime:     86400,
			LastReboot: stamp(now, 24*time.Hour),
		},
		System: models.NodeSystem{
			CPU:  float64(20 + rand.IntN(40)),
			RAM:  float64(40 + rand.IntN(30)),
			Disk: float64(50 + rand.IntN(20)),
			Temp: float64(45 + rand.IntN(15)),
			Services: map[string]string{
				"backend":  "up",
				"kiwix":    "up",
				"jellyfin": "up",
				"gps":      "up",
				"sensors":  "up",
			},
		},
		Power: models.NodePower{
			BatteryPct:  float64(70 + rand.IntN(30)),
			Volts:       12.4,
			Amps:        0.8,
			Watts:       9.9,
			ChargeState: "discharging",
			RuntimeS:    7200,
		},
		GPS: models.NodeGPS{
			Fix:  "3D",
			Sats: 12,
			Lat:  37.7749,
			Lon:  -122.4194,
			Acc:  3.2,
		},
		Sensors: models.NodeSensors{
			Temp:     22.5,
			Hum:      45.2,
			Pressure: 1013.2,
			IAQ:      95,
		},
		Alerts: []models.NodeAlert{
			{Message: "Low battery warning", Severity: "warning", Timestamp: stamp(now, time.Hour)},
		},
		Simulated: true,
	}
}

func mockGlobalChat(now time.Time) []models.ChatMessage {
	return []models.ChatMessage{
		{
			ID:           "msg-1",
			Sender:       "omega-01",
			SenderName:   "Dad's OMEGA",
			SenderStatus: models.UserGood,
			Text:         "Everyone check in - heading to the north ridge",
			Timestamp:    stamp(now, 5*time.Minute),
			Priority:     models.PriorityNormal,
			Status:       models.StatusDelivered,
		},
		{
			ID:           "msg-2",
			Sender:       "omega-02",
			SenderName:   "Mom's OMEGA",
			SenderStatus: models.UserOkay,
			Text:         "Copy that, we're at base camp",
			Timestamp:    stamp(now, 4*time.Minute),
			Priority:     models.PriorityNormal,
			Status:       models.StatusDelivered,
		},
		{
			ID:                "msg-3",
			Sender:            "broadcast",
			SenderName:        "SYSTEM",
			Text:              "Weather alert: Storm approaching from west",
			Timestamp:         stamp(now, 2*time.Minute),
			Priority:          models.PriorityEmergency,
			Status:            models.StatusDelivered,
			BroadcastTitle:    "EMERGENCY WEATHER ALERT",
			BroadcastSeverity: "emergency",
		},
		{
			ID:           "msg-4",
			Sender:       "omega-03",
			SenderName:   "Kids' OMEGA",
			SenderStatus: models.UserNeedHelp,
			Text:         "Need assistance - device overheating",
			Timestamp:    stamp(now, time.Minute),
			Priority:     models.PriorityUrgent,
			Status:       models.StatusDelivered,
		},
	}
}

func mockDM(nodeID string, now time.Time) []models.ChatMessage {
	return []models.ChatMessage{
		{ID: "dm-1", Sender: nodeID, Text: "Hey, can you send me those coordinates?", Timestamp: stamp(now, 10*time.Minute), Status: models.StatusDelivered},
		{ID: "dm-2", Sender: models.SelfSender, Text: "Sure thing, sending now", Timestamp: stamp(now, 9*time.Minute), Status: models.StatusDelivered},
		{ID: "dm-3", Sender: models.SelfSender, Text: "GPS coordinates shared", Timestamp: stamp(now, 8*time.Minute), Status: models.StatusSent},
		{ID: "dm-4", Sender: models.SelfSender, Text: "Let me know when you receive them", Timestamp: stamp(now, 7*time.Minute), Status: models.StatusQueued},
	}
}

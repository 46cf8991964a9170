package api

import (
	"math/rand/v2"
	"time"

	"omega/pkg/normalize"
)

func pick(p float64, yes, no string) string {
	if rand.Float64() > p {
		return yes
	}
	return no
}

func between(lo, span int) float64 {
	return float64(lo + rand.IntN(span))
}

func mockHealth() normalize.Raw {
	return normalize.Raw{
		"services": map[string]any{
			"kiwix":   pick(0.2, "up", "down"),
			"backend": "up",
			"hotspot": pick(0.5, "on", "off"),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

func mockMetrics() normalize.Raw {
	return normalize.Raw{
		"cpu":         between(20, 60),
		"ram":         between(20, 70),
		"disk":        between(50, 30),
		"temperature": between(45, 15),
		"uptime":      "3 days, 4:12",
	}
}

func mockSensors() normalize.Raw {
	return normalize.Raw{
		"temperature": between(45, 15),
		"humidity":    between(40, 30),
		"pressure":    between(1000, 50),
	}
}

func mockGPS() normalize.Raw {
	return normalize.Raw{
		"latitude":   37.7749 + (rand.Float64()-0.5)*0.01,
		"longitude":  -122.4194 + (rand.Float64()-0.5)*0.01,
		"altitude":   50.0,
		"accuracy":   between(3, 10),
		"satellites": between(8, 5),
		"fix":        "3D",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
}

func mockBackups() normalize.Raw {
	yesterday := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	return normalize.Raw{
		"backups": []any{
			map[string]any{"id": "daily-1", "name": "omega-daily.tar.gz", "date": yesterday, "size": 734003200.0, "verified": true},
		},
		"last_backup": yesterday,
	}
}

func mockKeys() normalize.Raw {
	return normalize.Raw{
		"keys": []any{
			map[string]any{"id": "ssh-host", "label": "SSH host key", "fingerprint": "SHA256:omega-demo"},
		},
		"sync_status": "synced",
	}
}

func mockDMs() normalize.Raw {
	return normalize.Raw{
		"messages": []any{
			map[string]any{
				"id":        "dm-1",
				"from":      "omega-02",
				"to":        "me",
				"content":   "Checking in from the ridge.",
				"timestamp": time.Now().Add(-15 * time.Minute).UTC().Format(time.RFC3339),
			},
		},
		"unread": 1.0,
	}
}

func mockCommunityPosts() normalize.Raw {
	now := time.Now()
	return normalize.Raw{
		"posts": []any{
			map[string]any{
				"id":        1.0,
				"author":    "OMEGA User",
				"content":   "Just deployed the new firmware update!",
				"timestamp": now.Add(-time.Hour).UTC().Format(time.RFC3339),
				"likes":     5.0,
			},
			map[string]any{
				"id":        2.0,
				"author":    "Cyberdeck Admin",
				"content":   "Reminder: Kiwix library updated with new Wikipedia archives.",
				"timestamp": now.Add(-2 * time.Hour).UTC().Format(time.RFC3339),
				"likes":     12.0,
			},
		},
	}
}

func mockHotspot() normalize.Raw {
	return normalize.Raw{"enabled": true, "ssid": "OMEGA-AP", "clients": between(0, 4)}
}

// Package normalize converts loosely shaped backend JSON into the fixed
// resource shapes in pkg/models. Every function accepts a nil Raw and never
// fails: absent or error-marked input yields the default shape with
// Available set to false.
package normalize

import (
	"time"

	"omega/pkg/models"
)

func unavailable(reason string) models.Origin {
	return models.Origin{Available: false, Reason: reason}
}

func origin(raw Raw) (models.Origin, bool) {
	if raw == nil {
		return unavailable(""), false
	}
	if msg, isErr := raw.ErrorMarker(); isErr {
		return unavailable(msg), false
	}
	return models.Origin{Available: true}, true
}

// DeriveStatus folds individual service states into one overall state.
// Any down or failed service wins, then any degraded or warning one.
func DeriveStatus(services map[string]string) models.ServiceState {
	overall := models.StateUp
	for _, s := range services {
		switch s {
		case "down", "failed":
			return models.StateDown
		case "degraded", "warning":
			overall = models.StateDegraded
		}
	}
	return overall
}

// Health normalizes the health check response.
func Health(raw Raw) models.Health {
	o, ok := origin(raw)
	if !ok {
		return models.Health{
			Origin:      o,
			Status:      models.StateDown,
			StatusColor: models.StateDown.Color(),
			Services:    map[string]string{},
			Timers:      map[string]string{},
		}
	}

	services := stringMap(raw["services"])
	status := DeriveStatus(services)
	lastCheck := raw.str("timestamp", "last_check")
	if lastCheck == nil {
		now := time.Now().UTC().Format(time.RFC3339)
		lastCheck = &now
	}
	return models.Health{
		Origin:      o,
		Status:      status,
		StatusColor: status.Color(),
		Services:    services,
		Timers:      stringMap(raw["timers"]),
		LastCheck:   lastCheck,
	}
}

// Metrics normalizes the CPU/RAM/disk/temperature response.
func Metrics(raw Raw) models.Metrics {
	o, ok := origin(raw)
	if !ok {
		return models.Metrics{Origin: o}
	}
	return models.Metrics{
		Origin:   o,
		CPU:      raw.num("cpu", "cpu_percent"),
		RAM:      raw.num("ram", "memory_percent", "mem"),
		Disk:     raw.num("disk", "disk_percent", "disk_usage"),
		DiskFree: raw.num("disk_free", "disk_free_gb"),
		Temp:     raw.num("cpu_temp", "temp", "temperature"),
		Uptime:   raw.str("uptime"),
	}
}

// Sensors normalizes the environmental sensor response. Error-marked
// bodies mean the sensor hardware is offline.
func Sensors(raw Raw) models.Sensors {
	o, ok := origin(raw)
	if !ok {
		return models.Sensors{Origin: o, Offline: true}
	}
	return models.Sensors{
		Origin:      o,
		Temperature: raw.num("temperature", "temp"),
		Humidity:    raw.num("humidity", "hum"),
		Pressure:    raw.num("pressure"),
		Gas:         raw.num("gas", "gas_resistance"),
		IAQ:         raw.num("iaq", "air_quality"),
	}
}

// GPS normalizes a position fix.
func GPS(raw Raw) models.GPS {
	o, ok := origin(raw)
	if !ok {
		return models.GPS{Origin: o}
	}
	return models.GPS{
		Origin:     o,
		Latitude:   raw.num("latitude", "lat"),
		Longitude:  raw.num("longitude", "lon", "lng"),
		Altitude:   raw.num("altitude", "alt"),
		Accuracy:   raw.num("accuracy", "acc"),
		Satellites: raw.num("satellites", "sats"),
		Fix:        raw.str("fix", "mode"),
		Timestamp:  raw.str("timestamp", "time"),
	}
}

// Backups normalizes the backup listing. A body without a backups array
// is treated as absent.
func Backups(raw Raw) models.Backups {
	o, ok := origin(raw)
	items, hasList := raw.list("backups")
	if !ok || !hasList {
		o.Available = false
		return models.Backups{Origin: o, Backups: []models.Backup{}}
	}

	backups := make([]models.Backup, 0, len(items))
	for _, item := range items {
		b, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		r := Raw(b)
		backups = append(backups, models.Backup{
			ID:       r.str("id", "name"),
			Name:     r.str("name"),
			Date:     r.str("date", "timestamp"),
			Size:     r.num("size"),
			Verified: r.boolean("verified"),
			Path:     r.str("path"),
		})
	}
	return models.Backups{
		Origin:     o,
		Backups:    backups,
		LastBackup: raw.str("last_backup", "lastBackup"),
	}
}

// Keys normalizes the key store listing and key sync status. Key entries
// may be bare strings or objects.
func Keys(raw Raw) models.Keys {
	o, ok := origin(raw)
	if !ok {
		return models.Keys{Origin: o, Keys: []models.Key{}, SyncStatus: "unknown"}
	}

	items, _ := raw.list("keys")
	keys := make([]models.Key, 0, len(items))
	for _, item := range items {
		switch k := item.(type) {
		case string:
			keys = append(keys, models.Key{Label: stringOf(k)})
		case map[string]any:
			r := Raw(k)
			keys = append(keys, models.Key{
				ID:          r.str("id", "key_id"),
				Label:       r.str("label", "name"),
				Fingerprint: r.str("fingerprint", "fp"),
				Created:     r.str("created", "created_at"),
			})
		}
	}

	sync := "unknown"
	if s := raw.str("sync_status", "status"); s != nil {
		sync = *s
	}
	return models.Keys{
		Origin:       o,
		Keys:         keys,
		SyncStatus:   sync,
		LastRotation: raw.str("last_rotation", "lastRotation"),
		LastSync:     raw.str("last_sync", "lastSync"),
	}
}

// DMs normalizes the local direct-message inbox. Messages are encrypted
// unless the backend says otherwise; a body without a messages array is
// treated as absent.
func DMs(raw Raw) models.DirectMessages {
	o, ok := origin(raw)
	items, hasList := raw.list("messages")
	if !ok || !hasList {
		o.Available = false
		return models.DirectMessages{Origin: o, Messages: []models.DirectMessage{}}
	}

	messages := make([]models.DirectMessage, 0, len(items))
	for _, item := range items {
		m, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		r := Raw(m)
		encrypted := true
		if e, isBool := r["encrypted"].(bool); isBool {
			encrypted = e
		}
		messages = append(messages, models.DirectMessage{
			ID:        r.str("id"),
			From:      r.str("from", "sender"),
			To:        r.str("to", "recipient"),
			Content:   r.str("content", "message"),
			Timestamp: r.str("timestamp", "date"),
			Read:      r.boolean("read"),
			Encrypted: encrypted,
		})
	}

	unread := 0
	if n := raw.num("unread_count", "unread"); n != nil {
		unread = int(*n)
	}
	return models.DirectMessages{Origin: o, Messages: messages, Unread: unread}
}

// CommunityPosts normalizes the community bulletin board. A body without
// a posts array is treated as absent.
func CommunityPosts(raw Raw) models.CommunityPosts {
	o, ok := origin(raw)
	items, hasList := raw.list("posts")
	if !ok || !hasList {
		o.Available = false
		return models.CommunityPosts{Origin: o, Posts: []models.CommunityPost{}}
	}

	posts := make([]models.CommunityPost, 0, len(items))
	for _, item := range items {
		p, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		r := Raw(p)
		posts = append(posts, models.CommunityPost{
			ID:        r.str("id"),
			Author:    r.str("author", "from", "name"),
			Content:   r.str("content", "text", "message"),
			Timestamp: r.str("timestamp", "date", "created_at"),
			Likes:     r.num("likes"),
		})
	}
	return models.CommunityPosts{Origin: o, Posts: posts}
}

// Hotspot normalizes the Wi-Fi hotspot status.
func Hotspot(raw Raw) models.Hotspot {
	o, ok := origin(raw)
	if !ok {
		return models.Hotspot{Origin: o}
	}
	enabled := raw.boolean("enabled", "active")
	if state, _ := raw["state"].(string); state == "on" || state == "enabled" {
		enabled = true
	}
	return models.Hotspot{
		Origin:  o,
		Enabled: enabled,
		SSID:    raw.str("ssid", "name"),
		Clients: raw.num("clients", "client_count"),
	}
}

package models

// ServiceState is the tri-state overall health of the device.
type ServiceState string

const (
	StateUp       ServiceState = "up"
	StateDegraded ServiceState = "degraded"
	StateDown     ServiceState = "down"
)

// Color returns the UI color token for the state.
func (s ServiceState) Color() string {
	switch s {
	case StateUp:
		return "success"
	case StateDegraded:
		return "warning"
	default:
		return "destructive"
	}
}

// Origin flags shared by every normalized resource. Available is false
// whenever the values are defaults or mock data rather than live readings.
type Origin struct {
	Available bool   `json:"available"`
	Simulated bool   `json:"simulated,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	Forbidden bool   `json:"forbidden,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// SetOrigin replaces the origin flags of the embedding resource.
func (o *Origin) SetOrigin(v Origin) {
	*o = v
}

// Health is the normalized health check.
type Health struct {
	Origin
	Status      ServiceState      `json:"status"`
	StatusColor string            `json:"statusColor"`
	Services    map[string]string `json:"services"`
	Timers      map[string]string `json:"timers"`
	LastCheck   *string           `json:"lastCheck"`
}

// Metrics is the normalized CPU/RAM/disk/temperature reading.
type Metrics struct {
	Origin
	CPU      *float64 `json:"cpu"`
	RAM      *float64 `json:"ram"`
	Disk     *float64 `json:"disk"`
	DiskFree *float64 `json:"diskFree"`
	Temp     *float64 `json:"temp"`
	Uptime   *string  `json:"uptime"`
}

// Sensors is the normalized environmental sensor (BME680) reading.
type Sensors struct {
	Origin
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	Gas         *float64 `json:"gas"`
	IAQ         *float64 `json:"iaq"`
	Offline     bool     `json:"offline"`
}

// GPS is the normalized position fix.
type GPS struct {
	Origin
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Altitude   *float64 `json:"altitude"`
	Accuracy   *float64 `json:"accuracy"`
	Satellites *float64 `json:"satellites"`
	Fix        *string  `json:"fix"`
	Timestamp  *string  `json:"timestamp"`
}

// Backup is one backup archive.
type Backup struct {
	ID       *string  `json:"id"`
	Name     *string  `json:"name"`
	Date     *string  `json:"date"`
	Size     *float64 `json:"size"`
	Verified bool     `json:"verified"`
	Path     *string  `json:"path"`
}

// Backups is the normalized backup listing.
type Backups struct {
	Origin
	Backups    []Backup `json:"backups"`
	LastBackup *string  `json:"lastBackup"`
}

// Key is one entry of the key store listing.
type Key struct {
	ID          *string `json:"id"`
	Label       *string `json:"label"`
	Fingerprint *string `json:"fingerprint"`
	Created     *string `json:"created"`
}

// Keys is the normalized key store / key sync status.
type Keys struct {
	Origin
	Keys         []Key   `json:"keys"`
	SyncStatus   string  `json:"syncStatus"`
	LastRotation *string `json:"lastRotation"`
	LastSync     *string `json:"lastSync"`
}

// DirectMessage is one message from the local DM endpoint.
type DirectMessage struct {
	ID        *string `json:"id"`
	From      *string `json:"from"`
	To        *string `json:"to"`
	Content   *string `json:"content"`
	Timestamp *string `json:"timestamp"`
	Read      bool    `json:"read"`
	Encrypted bool    `json:"encrypted"`
}

// DirectMessages is the normalized DM inbox.
type DirectMessages struct {
	Origin
	Messages []DirectMessage `json:"messages"`
	Unread   int             `json:"unread"`
}

// CommunityPost is one bulletin post.
type CommunityPost struct {
	ID        *string  `json:"id"`
	Author    *string  `json:"author"`
	Content   *string  `json:"content"`
	Timestamp *string  `json:"timestamp"`
	Likes     *float64 `json:"likes"`
}

// CommunityPosts is the normalized bulletin board.
type CommunityPosts struct {
	Origin
	Posts []CommunityPost `json:"posts"`
}

// Hotspot is the normalized Wi-Fi hotspot status.
type Hotspot struct {
	Origin
	Enabled bool     `json:"enabled"`
	SSID    *string  `json:"ssid"`
	Clients *float64 `json:"clients"`
}

// WriteResult is returned by façade write operations instead of an error.
type WriteResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

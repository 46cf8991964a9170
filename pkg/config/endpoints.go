package config

import "net/http"

// Logical endpoint names.
const (
	EndpointHealth         = "health"
	EndpointMetrics        = "metrics"
	EndpointSensors        = "sensors"
	EndpointBackup         = "backup"
	EndpointBackupTrigger  = "backupTrigger"
	EndpointKeys           = "keys"
	EndpointKeySync        = "keysync"
	EndpointDM             = "dm"
	EndpointDMSend         = "dmSend"
	EndpointGPS            = "gps"
	EndpointCommunityPosts = "communityPosts"
	EndpointHotspotStatus  = "hotspotStatus"
	EndpointHotspotToggle  = "hotspotToggle"
)

// Endpoint describes one backend operation. Descriptors are built once at
// startup and never mutated.
type Endpoint struct {
	Name      string
	Path      string
	Method    string
	Cacheable bool
}

// Configured reports whether the endpoint has a path.
func (e Endpoint) Configured() bool {
	return e.Path != ""
}

// EndpointTable returns the descriptor table for the configured paths.
func (c *Config) EndpointTable() map[string]Endpoint {
	ep := c.Endpoints
	table := []Endpoint{
		{Name: EndpointHealth, Path: ep.Health, Method: http.MethodGet},
		{Name: EndpointMetrics, Path: ep.Metrics, Method: http.MethodGet},
		{Name: EndpointSensors, Path: ep.Sensors, Method: http.MethodGet},
		{Name: EndpointBackup, Path: ep.Backup, Method: http.MethodGet, Cacheable: true},
		{Name: EndpointBackupTrigger, Path: ep.Backup, Method: http.MethodPost},
		{Name: EndpointKeys, Path: ep.Keys, Method: http.MethodGet, Cacheable: true},
		{Name: EndpointKeySync, Path: ep.KeySync, Method: http.MethodGet, Cacheable: true},
		{Name: EndpointDM, Path: ep.DM, Method: http.MethodGet},
		{Name: EndpointDMSend, Path: ep.DM, Method: http.MethodPost},
		{Name: EndpointGPS, Path: ep.GPS, Method: http.MethodGet},
		{Name: EndpointCommunityPosts, Path: ep.CommunityPosts, Method: http.MethodGet, Cacheable: true},
		{Name: EndpointHotspotStatus, Path: ep.HotspotStatus, Method: http.MethodGet},
		{Name: EndpointHotspotToggle, Path: ep.HotspotToggle, Method: http.MethodPost},
	}

	out := make(map[string]Endpoint, len(table))
	for _, e := range table {
		out[e.Name] = e
	}
	return out
}

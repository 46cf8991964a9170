package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"omega/pkg/models"
)

type NormalizeTestSuite struct {
	suite.Suite
}

func (s *NormalizeTestSuite) decode(body string) Raw {
	raw := Decode([]byte(body))
	s.Require().NotNil(raw)
	return raw
}

func (s *NormalizeTestSuite) TestExtractNumeric() {
	cases := []struct {
		in   any
		want *float64
	}{
		{"42.7%", ptr(42.7)},
		{"abc", nil},
		{nil, nil},
		{"", nil},
		{12.345, ptr(12.3)},
		{float64(-3), ptr(-3)},
		{"-4.26 C", ptr(-4.3)},
		{"-4.25C", ptr(-4.2)},
		{"2.25", ptr(2.3)},
		{"1.2.3", ptr(1.2)},
		{json.Number("7.77"), ptr(7.8)},
		{true, nil},
		{[]any{1.0}, nil},
	}
	for _, c := range cases {
		got := ExtractNumeric(c.in)
		if c.want == nil {
			s.Nil(got, "input %v", c.in)
			continue
		}
		s.Require().NotNil(got, "input %v", c.in)
		s.InDelta(*c.want, *got, 1e-9, "input %v", c.in)
	}
}

func (s *NormalizeTestSuite) TestDecodeRejectsNonObjects() {
	s.Nil(Decode(nil))
	s.Nil(Decode([]byte("not json")))
	s.Nil(Decode([]byte("[1,2,3]")))
}

func (s *NormalizeTestSuite) TestDeriveStatus() {
	s.Equal(models.StateDegraded, DeriveStatus(map[string]string{"a": "up", "b": "degraded"}))
	s.Equal(models.StateDown, DeriveStatus(map[string]string{"a": "down", "b": "up"}))
	s.Equal(models.StateUp, DeriveStatus(map[string]string{"a": "up", "b": "up"}))
	s.Equal(models.StateDown, DeriveStatus(map[string]string{"a": "warning", "b": "failed"}))
	s.Equal(models.StateUp, DeriveStatus(map[string]string{}))
}

func (s *NormalizeTestSuite) TestNilInputsYieldDefaults() {
	var undefined Raw

	s.Equal(Health(nil), Health(undefined))
	s.False(Health(nil).Available)
	s.Equal(models.StateDown, Health(nil).Status)
	s.Equal("destructive", Health(nil).StatusColor)
	s.NotNil(Health(nil).Services)

	s.Equal(Metrics(nil), Metrics(undefined))
	s.False(Metrics(nil).Available)
	s.Nil(Metrics(nil).CPU)

	sensors := Sensors(nil)
	s.False(sensors.Available)
	s.True(sensors.Offline)

	s.False(GPS(nil).Available)
	s.Empty(Backups(nil).Backups)
	s.NotNil(Backups(nil).Backups)
	s.Equal("unknown", Keys(nil).SyncStatus)
	s.Equal(0, DMs(nil).Unread)
	s.NotNil(DMs(nil).Messages)
	s.NotNil(CommunityPosts(nil).Posts)
	s.False(Hotspot(nil).Available)
}

func (s *NormalizeTestSuite) TestHealth() {
	h := Health(s.decode(`{"services":{"nginx":"up","kiwix":"warning"},"timers":{"backup":"active"},"timestamp":"2024-01-01T00:00:00Z"}`))
	s.True(h.Available)
	s.Equal(models.StateDegraded, h.Status)
	s.Equal("warning", h.StatusColor)
	s.Equal("active", h.Timers["backup"])
	s.Require().NotNil(h.LastCheck)
	s.Equal("2024-01-01T00:00:00Z", *h.LastCheck)

	h = Health(s.decode(`{"services":{}}`))
	s.Equal(models.StateUp, h.Status)
	s.NotNil(h.LastCheck)
}

func (s *NormalizeTestSuite) TestMetricsAliases() {
	m := Metrics(s.decode(`{"cpu_percent":"12.34%","memory_percent":55,"disk_usage":"70.01","cpu_temp":"48.2'C","uptime":"3 days"}`))
	s.True(m.Available)
	s.InDelta(12.3, *m.CPU, 1e-9)
	s.InDelta(55, *m.RAM, 1e-9)
	s.InDelta(70, *m.Disk, 1e-9)
	s.InDelta(48.2, *m.Temp, 1e-9)
	s.Equal("3 days", *m.Uptime)
	s.Nil(m.DiskFree)
}

func (s *NormalizeTestSuite) TestMetricsKeepsZero() {
	m := Metrics(s.decode(`{"cpu":0,"cpu_percent":99}`))
	s.Require().NotNil(m.CPU)
	s.InDelta(0, *m.CPU, 1e-9)
}

func (s *NormalizeTestSuite) TestSensorsErrorMarker() {
	sensors := Sensors(s.decode(`{"status":"error","error":"i2c bus not found"}`))
	s.False(sensors.Available)
	s.True(sensors.Offline)
	s.Equal("i2c bus not found", sensors.Reason)

	sensors = Sensors(s.decode(`{"temp":"21.55","humidity":40.04,"gas_resistance":"12000 Ohm"}`))
	s.True(sensors.Available)
	s.False(sensors.Offline)
	s.InDelta(21.6, *sensors.Temperature, 1e-9)
	s.InDelta(40, *sensors.Humidity, 1e-9)
	s.InDelta(12000, *sensors.Gas, 1e-9)
	s.Nil(sensors.IAQ)
}

func (s *NormalizeTestSuite) TestBackups() {
	b := Backups(s.decode(`{"backups":[{"name":"daily.tar","timestamp":"2024-02-02","size":1024,"verified":true},"junk"],"last_backup":"2024-02-02"}`))
	s.True(b.Available)
	s.Require().Len(b.Backups, 1)
	s.Equal("daily.tar", *b.Backups[0].ID)
	s.Equal("2024-02-02", *b.Backups[0].Date)
	s.True(b.Backups[0].Verified)
	s.Nil(b.Backups[0].Path)
	s.Equal("2024-02-02", *b.LastBackup)

	s.False(Backups(s.decode(`{"last_backup":"x"}`)).Available)
}

func (s *NormalizeTestSuite) TestKeys() {
	k := Keys(s.decode(`{"keys":["ssh-host",{"key_id":"k2","name":"gpg","fp":"AB:CD"}],"status":"synced","lastSync":"yesterday"}`))
	s.True(k.Available)
	s.Require().Len(k.Keys, 2)
	s.Equal("ssh-host", *k.Keys[0].Label)
	s.Equal("k2", *k.Keys[1].ID)
	s.Equal("AB:CD", *k.Keys[1].Fingerprint)
	s.Equal("synced", k.SyncStatus)
	s.Equal("yesterday", *k.LastSync)
	s.Nil(k.LastRotation)
}

func (s *NormalizeTestSuite) TestDMs() {
	d := DMs(s.decode(`{"messages":[{"id":1,"sender":"alice","recipient":"me","message":"hi","encrypted":false},{"id":"2","from":"bob","content":"yo","read":true}],"unread_count":3}`))
	s.True(d.Available)
	s.Require().Len(d.Messages, 2)
	s.Equal("1", *d.Messages[0].ID)
	s.Equal("alice", *d.Messages[0].From)
	s.Equal("hi", *d.Messages[0].Content)
	s.False(d.Messages[0].Encrypted)
	s.True(d.Messages[1].Encrypted)
	s.True(d.Messages[1].Read)
	s.Equal(3, d.Unread)

	s.False(DMs(s.decode(`{"error":"forbidden"}`)).Available)
	s.False(DMs(s.decode(`{"unread":3}`)).Available)
	s.Empty(DMs(s.decode(`{"unread":3}`)).Messages)
}

func (s *NormalizeTestSuite) TestGPSAndHotspot() {
	g := GPS(s.decode(`{"lat":"47.61234","lon":-122.3321,"sats":"7","fix":"3D"}`))
	s.True(g.Available)
	s.InDelta(47.6, *g.Latitude, 1e-9)
	s.InDelta(-122.3, *g.Longitude, 1e-9)
	s.InDelta(7, *g.Satellites, 1e-9)
	s.Equal("3D", *g.Fix)

	h := Hotspot(s.decode(`{"state":"on","ssid":"OMEGA","client_count":2}`))
	s.True(h.Enabled)
	s.Equal("OMEGA", *h.SSID)
	s.InDelta(2, *h.Clients, 1e-9)
}

func (s *NormalizeTestSuite) TestCommunityPosts() {
	p := CommunityPosts(s.decode(`{"posts":[{"id":9,"author":"ranger","text":"trail closed","likes":"4"}]}`))
	s.True(p.Available)
	s.Require().Len(p.Posts, 1)
	s.Equal("9", *p.Posts[0].ID)
	s.Equal("trail closed", *p.Posts[0].Content)
	s.InDelta(4, *p.Posts[0].Likes, 1e-9)

	empty := CommunityPosts(s.decode(`{}`))
	s.False(empty.Available)
	s.Empty(empty.Posts)
}

func ptr(f float64) *float64 { return &f }

func TestNormalizeSuite(t *testing.T) {
	suite.Run(t, new(NormalizeTestSuite))
}

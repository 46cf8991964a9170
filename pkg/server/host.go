package server

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"omega/pkg/log"
)

// HostInfo describes the machine the daemon runs on.
type HostInfo struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	LoadAverages  LoadAverages `json:"load_averages"`
	Memory        Usage        `json:"memory"`
	Storage       Usage        `json:"storage"`
}

// LoadAverages represents system load information.
type LoadAverages struct {
	Load1  float64 `json:"load_1"`
	Load5  float64 `json:"load_5"`
	Load15 float64 `json:"load_15"`
}

// Usage is a total/used/available triple in bytes.
type Usage struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Available uint64 `json:"available"`
}

// getHostInfo handles GET /dash/host. Fields that cannot be read on this
// platform stay zero.
func (ds *DashServer) getHostInfo(ctx echo.Context) error {
	var info HostInfo

	if up, err := readUptime("/proc/uptime"); err == nil {
		info.UptimeSeconds = up
		info.Uptime = formatUptime(up)
	} else {
		log.Debug().Err(err).Msg("Uptime unavailable")
	}
	if load, err := readLoadAverages("/proc/loadavg"); err == nil {
		info.LoadAverages = load
	}
	if mem, err := readMemInfo("/proc/meminfo"); err == nil {
		info.Memory = mem
	}
	if disk, err := statfs(ds.deps.DataDir); err == nil {
		info.Storage = disk
	}
	return ctx.JSON(http.StatusOK, info)
}

func readFields(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}

func readUptime(path string) (int64, error) {
	fields, err := readFields(path)
	if err != nil {
		return 0, err
	}
	if len(fields) < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	up, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	return int64(up), nil
}

func readLoadAverages(path string) (LoadAverages, error) {
	const minLoadFields = 3
	fields, err := readFields(path)
	if err != nil {
		return LoadAverages{}, err
	}
	if len(fields) < minLoadFields {
		return LoadAverages{}, io.ErrUnexpectedEOF
	}

	var vals [minLoadFields]float64
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
			return LoadAverages{}, err
		}
	}
	return LoadAverages{Load1: vals[0], Load5: vals[1], Load15: vals[2]}, nil
}

func readMemInfo(path string) (Usage, error) {
	file, err := os.Open(path)
	if err != nil {
		return Usage{}, err
	}
	defer file.Close()
	return parseMemInfo(file)
}

// parseMemInfo reads /proc/meminfo. MemAvailable is preferred; older
// kernels fall back to free + buffers + cached.
func parseMemInfo(r io.Reader) (Usage, error) {
	const kbToBytes = 1024
	values := map[string]uint64{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		values[strings.TrimSuffix(fields[0], ":")] = v * kbToBytes
	}
	if err := scanner.Err(); err != nil {
		return Usage{}, err
	}

	total := values["MemTotal"]
	available, ok := values["MemAvailable"]
	if !ok {
		available = values["MemFree"] + values["Buffers"] + values["Cached"]
	}
	if available > total {
		available = total
	}
	return Usage{Total: total, Used: total - available, Available: available}, nil
}

func statfs(path string) (Usage, error) {
	if path == "" {
		path = "."
	}
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return Usage{}, err
	}
	blockSize := uint64(stat.Bsize) // #nosec G115 - syscall values are system dependent
	total := stat.Blocks * blockSize
	available := stat.Bavail * blockSize
	return Usage{Total: total, Used: total - available, Available: available}, nil
}

// formatUptime converts seconds to a short human form such as "3d 4h 12m".
func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}

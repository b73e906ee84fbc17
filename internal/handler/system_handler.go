package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/dkhp/registration-backend/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const metricsInterval = 7 * time.Second

// SystemHandler reports liveness and streams runtime metrics to administrators.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       redis.Cmdable
	registry  *stream.Registry
	startTime time.Time
	log       zerolog.Logger

	prevIdle  uint64
	prevTotal uint64
}

func NewSystemHandler(pool *pgxpool.Pool, rdb redis.Cmdable, registry *stream.Registry, log zerolog.Logger) *SystemHandler {
	h := &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		registry:  registry,
		startTime: time.Now(),
		log:       logger.Component(log, "system_handler"),
	}
	h.prevIdle, h.prevTotal, _ = readCPUStat()
	return h
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := h.pool.Ping(ctx); err != nil {
		status["postgres"] = err.Error()
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		h.log.Warn().Interface("status", status).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemTotalBytes uint64  `json:"mem_total_bytes"`
	AppRSSBytes   uint64  `json:"app_rss_bytes"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	DBAcquiredConns int32 `json:"db_acquired_conns"`
	DBTotalConns    int32 `json:"db_total_conns"`

	CapacitySubscribers  int   `json:"capacity_subscribers"`
	QueueRegistrationLog int64 `json:"queue_registration_log"`
}

// MetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) MetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	if err := h.writeMetrics(c); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	for {
		select {
		case <-reqCtx.Done():
			return
		case <-ticker.C:
			if err := h.writeMetrics(c); err != nil {
				return
			}
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) error {
	data, err := json.Marshal(h.collect(c.Request.Context()))
	if err != nil {
		return err
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
	return nil
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp:           time.Now().Unix(),
		Uptime:              formatDuration(time.Since(h.startTime)),
		GoVersion:           runtime.Version(),
		Goroutines:          runtime.NumGoroutine(),
		CapacitySubscribers: h.registry.Len(),
	}

	if idle, total, err := readCPUStat(); err == nil && total > h.prevTotal {
		m.CPUPercent = (1 - float64(idle-h.prevIdle)/float64(total-h.prevTotal)) * 100
		h.prevIdle, h.prevTotal = idle, total
	}
	if total, avail, err := readMemInfo(); err == nil && total > 0 {
		m.MemTotalBytes = total
		m.MemUsedBytes = total - avail
	}
	m.AppRSSBytes, _ = readProcessRSS()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAlloc = ms.HeapAlloc
	m.NumGC = ms.NumGC

	stat := h.pool.Stat()
	m.DBAcquiredConns = stat.AcquiredConns()
	m.DBTotalConns = stat.TotalConns()

	m.QueueRegistrationLog, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistRegistrationLogQueue).Result()
	return m
}

// readCPUStat returns idle and total ticks from the aggregate cpu line of /proc/stat.
func readCPUStat() (idle, total uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.SplitN(string(data), "\n", 2)[0])
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("unexpected /proc/stat format")
	}
	for i, f := range fields[1:] {
		val, _ := strconv.ParseUint(f, 10, 64)
		total += val
		if i == 3 {
			idle = val
		}
	}
	return idle, total, nil
}

// readMemInfo returns MemTotal and MemAvailable in bytes.
func readMemInfo() (total, available uint64, err error) {
	values, err := scanKB("/proc/meminfo", "MemTotal:", "MemAvailable:")
	if err != nil {
		return 0, 0, err
	}
	return values["MemTotal:"], values["MemAvailable:"], nil
}

func readProcessRSS() (uint64, error) {
	values, err := scanKB("/proc/self/status", "VmRSS:")
	if err != nil {
		return 0, err
	}
	return values["VmRSS:"], nil
}

// scanKB reads "<key> <n> kB" lines and converts the values to bytes.
func scanKB(path string, keys ...string) (map[string]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]uint64, len(keys))
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(out) < len(keys) {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		for _, k := range keys {
			if fields[0] == k {
				val, _ := strconv.ParseUint(fields[1], 10, 64)
				out[k] = val * 1024
			}
		}
	}
	return out, scanner.Err()
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

package main

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string       `json:"status"`
	Timestamp   int64        `json:"timestamp"` // unix ms
	Players     int          `json:"players"`
	Connections int          `json:"connections"`
	Uptime      float64      `json:"uptime"` // seconds
	Memory      MemoryStatus `json:"memory"`
}

// MemoryStatus is a subset of runtime.MemStats, in bytes.
type MemoryStatus struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
}

func (s *Server) health() HealthStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	now := time.Now()
	return HealthStatus{
		Status:      "healthy",
		Timestamp:   now.UnixMilli(),
		Players:     s.game.PlayerCount(),
		Connections: s.hub.Count(),
		Uptime:      now.Sub(s.started).Seconds(),
		Memory: MemoryStatus{
			Alloc:      ms.Alloc,
			TotalAlloc: ms.TotalAlloc,
			Sys:        ms.Sys,
			NumGC:      ms.NumGC,
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.health())
}

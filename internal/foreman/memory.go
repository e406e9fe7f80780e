package foreman

import (
	"encoding/json"
	"log/slog"
	"os"
)

const maxRecords = 20

// CycleRecord captures what happened in a single foreman cycle.
type CycleRecord struct {
	Tick   uint64   `json:"tick"`
	Level  string   `json:"level"`
	Done   []string `json:"done,omitempty"`
	Failed []string `json:"failed,omitempty"`
}

// Memory keeps a ring of recent cycle records, optionally on disk.
type Memory struct {
	Records []CycleRecord `json:"records"`
	path    string
}

// LoadMemory reads the memory file at path. Returns empty memory if it is
// missing or unreadable; an empty path keeps memory in process only.
func LoadMemory(path string) *Memory {
	mem := &Memory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("foreman memory corrupted, starting fresh", "error", err)
		return &Memory{path: path}
	}
	return mem
}

// Save writes the memory to disk.
func (m *Memory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal foreman memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		slog.Error("failed to write foreman memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *Memory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// FailedLastCycle reports whether a failed in the most recent cycle.
func (m *Memory) FailedLastCycle(a Action) bool {
	if len(m.Records) == 0 {
		return false
	}
	for _, key := range m.Records[len(m.Records)-1].Failed {
		if key == a.Key() {
			return true
		}
	}
	return false
}

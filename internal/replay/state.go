package replay

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Progress maps a replayed file path to the number of lines already sent.
type Progress map[string]int64

// StateManager persists replay progress so an interrupted run resumes.
type StateManager interface {
	Load() (Progress, error)
	Save(progress Progress) error
}

type fileStateManager struct {
	filePath string
	mu       sync.Mutex
}

func NewStateManager(filePath string) StateManager {
	return &fileStateManager{filePath: filePath}
}

func (m *fileStateManager) Load() (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("file", m.filePath).Msg("State file not found, starting fresh")
			return make(Progress), nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return make(Progress), nil
	}
	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal state file")
		return nil, err
	}
	return progress, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated state file.
func (m *fileStateManager) Save(progress Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("file", tmp).Msg("Failed to write temporary state file")
		return err
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		_ = os.Remove(tmp)
		log.Error().Err(err).Str("from", tmp).Str("to", m.filePath).Msg("Failed to rename state file")
		return err
	}
	return nil
}

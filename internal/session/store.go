// Package session manages the filesystem layout of generation sessions.
//
// Every session is a directory named session_<epochMs> under one root.
// Scene artifacts are associated with their scene purely by the numeric
// index embedded in the filename, so enumeration must sort numerically,
// never lexically.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atitkothari/img2video/models"
)

const (
	sessionPrefix     = "session_"
	sceneOutputSuffix = "_with_audio.mp4"
	finalVideoName    = "final_video.mp4"
)

// Store owns the generations root directory.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create generations root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the generations root directory.
func (s *Store) Root() string { return s.root }

// NewSessionID derives a fresh session id from the current time.
func (s *Store) NewSessionID() string {
	return fmt.Sprintf("%s%d", sessionPrefix, time.Now().UnixMilli())
}

// Dir is the directory for a session id.
func (s *Store) Dir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// Exists reports whether the session directory is present.
func (s *Store) Exists(sessionID string) bool {
	info, err := os.Stat(s.Dir(sessionID))
	return err == nil && info.IsDir()
}

// Ensure creates the session directory if needed and returns its path.
func (s *Store) Ensure(sessionID string) (string, error) {
	dir := s.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// SceneVideoPath is the transient silent-video artifact for scene i.
func (s *Store) SceneVideoPath(sessionID string, i int) string {
	return filepath.Join(s.Dir(sessionID), fmt.Sprintf("scene_%d_video.mp4", i))
}

// SceneAudioPath is the transient audio artifact for scene i.
func (s *Store) SceneAudioPath(sessionID string, i int) string {
	return filepath.Join(s.Dir(sessionID), fmt.Sprintf("scene_%d_audio.wav", i))
}

// SceneOutputPath is the final per-scene artifact for scene i.
func (s *Store) SceneOutputPath(sessionID string, i int) string {
	return filepath.Join(s.Dir(sessionID), fmt.Sprintf("scene_%d%s", i, sceneOutputSuffix))
}

// FinalVideoPath is the combined output for a session.
func (s *Store) FinalVideoPath(sessionID string) string {
	return filepath.Join(s.Dir(sessionID), finalVideoName)
}

// SceneOutputs lists the finished per-scene files of a session, sorted by
// the numeric index embedded in each filename.
func (s *Store) SceneOutputs(sessionID string) ([]string, error) {
	dir := s.Dir(sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	type output struct {
		index int
		path  string
	}
	var outputs []output
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "scene_") || !strings.HasSuffix(name, sceneOutputSuffix) {
			continue
		}
		index, ok := sceneIndex(name)
		if !ok {
			continue
		}
		outputs = append(outputs, output{index: index, path: filepath.Join(dir, name)})
	}

	sort.Slice(outputs, func(a, b int) bool { return outputs[a].index < outputs[b].index })

	paths := make([]string, len(outputs))
	for i, o := range outputs {
		paths[i] = o.path
	}
	return paths, nil
}

// List enumerates session directories, newest first.
func (s *Store) List() ([]models.SessionInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read generations root: %w", err)
	}

	sessions := make([]models.SessionInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), sessionPrefix) {
			continue
		}
		timestamp, err := strconv.ParseInt(strings.TrimPrefix(entry.Name(), sessionPrefix), 10, 64)
		if err != nil {
			continue
		}

		files, err := os.ReadDir(filepath.Join(s.root, entry.Name()))
		if err != nil {
			continue
		}
		sceneCount := 0
		hasFinalVideo := false
		for _, f := range files {
			name := f.Name()
			if name == finalVideoName {
				hasFinalVideo = true
			}
			if strings.HasPrefix(name, "scene_") && strings.HasSuffix(name, sceneOutputSuffix) {
				sceneCount++
			}
		}

		sessions = append(sessions, models.SessionInfo{
			ID:            entry.Name(),
			Date:          time.UnixMilli(timestamp).UTC().Format("2006-01-02 15:04:05"),
			SceneCount:    sceneCount,
			HasFinalVideo: hasFinalVideo,
			Timestamp:     timestamp,
		})
	}

	sort.Slice(sessions, func(a, b int) bool { return sessions[a].Timestamp > sessions[b].Timestamp })
	return sessions, nil
}

// sceneIndex parses the numeric index out of a scene_<i>_... filename.
func sceneIndex(name string) (int, bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return index, true
}

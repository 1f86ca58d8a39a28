package workflow

import "strconv"

// Per-post media playback flags. At most one video plays at a time:
// starting one pauses every other.

func videoKey(postId string, mediaIndex int) string {
	return postId + "-" + strconv.Itoa(mediaIndex)
}

// TogglePlayback flips the playing state of one video and returns the new
// state. Starting a video stops all others.
func (m *Manager) TogglePlayback(postId string, mediaIndex int) bool {
	key := videoKey(postId, mediaIndex)
	if m.playback[key] {
		delete(m.playback, key)
		return false
	}
	for k := range m.playback {
		delete(m.playback, k)
	}
	m.playback[key] = true
	return true
}

// PlaybackEnded clears the playing flag when a video runs out.
func (m *Manager) PlaybackEnded(postId string, mediaIndex int) {
	delete(m.playback, videoKey(postId, mediaIndex))
}

func (m *Manager) IsPlaying(postId string, mediaIndex int) bool {
	return m.playback[videoKey(postId, mediaIndex)]
}

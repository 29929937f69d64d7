package trackers

import "github.com/samuelfneumann/psiracing/experiment"

// Score tracks and saves the score of each episode in an evaluation.
// The score is the sum of rewards returned by the environment over the
// episode, so if the environment is wrapped by something which
// modifies rewards, the modified rewards are tracked.
type Score struct {
	scores   []float64
	filename string
}

// NewScore returns a new Score Tracker which will save its data at
// filename
func NewScore(filename string) *Score {
	return &Score{filename: filename}
}

// Track implements the experiment.Tracker interface
func (s *Score) Track(m experiment.EpisodeMetrics) {
	s.scores = append(s.scores, m.Score)
}

// Scores returns the scores tracked so far
func (s *Score) Scores() []float64 {
	return append([]float64(nil), s.scores...)
}

// Save saves the data tracked by the Score Tracker to disk
func (s *Score) Save() error {
	return save(s.filename, s.scores)
}

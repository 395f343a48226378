// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"fmt"
	"strings"

	"github.com/ik5/audinfer/models"
)

// TaskKind selects the pipeline a request runs.
type TaskKind int

const (
	TaskSynthesize TaskKind = iota + 1
	TaskTranscribe
	TaskTranslate
	TaskTranscribeAlt
)

var taskNames = map[TaskKind]string{
	TaskSynthesize:    "synthesize",
	TaskTranscribe:    "transcribe",
	TaskTranslate:     "translate",
	TaskTranscribeAlt: "transcribe_alt",
}

func (t TaskKind) String() string {
	if name, ok := taskNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TaskKind(%d)", int(t))
}

// ParseTaskKind accepts the names printed by String, with "-" allowed in
// place of "_".
func ParseTaskKind(s string) (TaskKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for t, n := range taskNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTask, s)
}

// Model is the bundle kind the task runs on.
func (t TaskKind) Model() models.Kind {
	switch t {
	case TaskSynthesize:
		return models.KindTTS
	case TaskTranscribe, TaskTranslate:
		return models.KindWhisper
	case TaskTranscribeAlt:
		return models.KindWav2Vec2
	}
	return ""
}

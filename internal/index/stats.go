package index

import "github.com/p-n-ai/pai-quiz/internal/question"

// Structure is a snapshot of one node and its subtree.
type Structure struct {
	Type          NodeType              `json:"type"`
	Value         string                `json:"value"`
	QuestionCount int                   `json:"question_count"`
	TotalCount    int                   `json:"total_count"`
	Children      map[string]*Structure `json:"children"`
	Order         []string              `json:"-"`
}

// Structure returns a snapshot of the whole tree. TotalCount is the node's
// child count.
func (t *Tree) Structure() *Structure {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return buildStructure(t.root)
}

func buildStructure(n *Node) *Structure {
	s := &Structure{
		Type:          n.Type,
		Value:         n.Value,
		QuestionCount: len(n.Questions),
		TotalCount:    n.Metadata.ChildCount,
		Children:      make(map[string]*Structure, len(n.keys)),
		Order:         append([]string(nil), n.keys...),
	}
	for _, k := range n.keys {
		s.Children[k] = buildStructure(n.children[k])
	}
	return s
}

// Statistics summarizes the index.
type Statistics struct {
	TotalQuestions int                     `json:"total_questions"`
	Subjects       int                     `json:"subjects"`
	SubjectsDetail map[string]SubjectStats `json:"subjects_detail"`
}

// SubjectStats describes one subject.
type SubjectStats struct {
	Topics                 int                         `json:"topics"`
	TotalQuestions         int                         `json:"total_questions"`
	DifficultyDistribution map[question.Difficulty]int `json:"difficulty_distribution"`
	TopicsDetail           map[string]TopicStats       `json:"topics_detail"`
}

// TopicStats describes one topic within a subject.
type TopicStats struct {
	QuestionCount int      `json:"question_count"`
	Difficulties  []string `json:"difficulties"`
}

// Statistics computes per-subject and per-topic counts.
func (t *Tree) Statistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Statistics{
		TotalQuestions: t.total,
		Subjects:       len(t.root.keys),
		SubjectsDetail: make(map[string]SubjectStats, len(t.root.keys)),
	}

	for _, subject := range t.root.Children() {
		ss := SubjectStats{
			Topics:                 len(subject.keys),
			TotalQuestions:         subject.count(),
			DifficultyDistribution: make(map[question.Difficulty]int),
			TopicsDetail:           make(map[string]TopicStats, len(subject.keys)),
		}
		for _, topic := range subject.Children() {
			ts := TopicStats{
				QuestionCount: topic.count(),
				Difficulties:  append([]string{}, topic.keys...),
			}
			for _, leaf := range topic.Children() {
				for _, q := range leaf.Questions {
					ss.DifficultyDistribution[q.Difficulty]++
				}
			}
			ss.TopicsDetail[topic.Value] = ts
		}
		stats.SubjectsDetail[subject.Value] = ss
	}
	return stats
}

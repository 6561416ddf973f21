package bank

import "github.com/p-n-ai/pai-quiz/internal/question"

// File is the document shape of a *.questions.yaml bank file. Subject and
// Topic are defaults for questions that leave them out.
type File struct {
	Subject   string      `yaml:"subject"`
	Topic     string      `yaml:"topic"`
	Tags      []string    `yaml:"tags"`
	Questions []FileEntry `yaml:"questions"`
}

// FileEntry is one question as written in a bank file.
type FileEntry struct {
	ID            string            `yaml:"id"`
	Text          string            `yaml:"text"`
	Type          string            `yaml:"type"`
	Subject       string            `yaml:"subject"`
	Topic         string            `yaml:"topic"`
	Difficulty    string            `yaml:"difficulty"`
	Options       []question.Option `yaml:"options"`
	CorrectAnswer string            `yaml:"correct_answer"`
	Explanation   string            `yaml:"explanation"`
	Tags          []string          `yaml:"tags"`
}

// Problem is a validation finding for one bank file.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

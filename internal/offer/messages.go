package offer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Info is a static informational payload such as the help page.
type Info struct {
	Text     string   `yaml:"text"`
	Sections []string `yaml:"sections"`
}

// Messages holds the static payloads the bot answers with.
type Messages struct {
	Help   Info `yaml:"help"`
	Sample Info `yaml:"sample"`
}

const defaultMessages = `
help:
  text: "How Snap-n-Go works"
  sections:
    - "*Snap-n-Go* sends you short tasks around campus. Press *Accept* or *Reject* on each task message."
    - "To finish a task, send *one photo* in this chat with the *task number* as the message text, before the task window closes."
    - "Type *help* or *?* at any time to see this message again."
sample:
  text: "Here is how to submit a task"
  sections:
    - "Attach a single photo and type only the task number, for example: *12*"
    - "Type *help* for more information."
`

// DefaultMessages returns the built-in payloads.
func DefaultMessages() *Messages {
	m, err := parseMessages([]byte(defaultMessages))
	if err != nil {
		panic(fmt.Sprintf("offer: built-in messages: %v", err))
	}
	return m
}

// LoadMessages reads payload overrides from a YAML file. Entries missing
// from the file keep their built-in value. An empty path yields the
// defaults.
func LoadMessages(path string) (*Messages, error) {
	m := DefaultMessages()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	override, err := parseMessages(data)
	if err != nil {
		return nil, err
	}

	if override.Help.Text != "" || len(override.Help.Sections) > 0 {
		m.Help = override.Help
	}
	if override.Sample.Text != "" || len(override.Sample.Sections) > 0 {
		m.Sample = override.Sample
	}
	return m, nil
}

func parseMessages(data []byte) (*Messages, error) {
	m := new(Messages)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return m, nil
}

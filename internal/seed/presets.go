package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset describes the shape of a seeded dataset.
type Preset struct {
	Users                   int     `yaml:"users"`
	Posts                   int     `yaml:"posts"`
	FollowsPerUser          int     `yaml:"follows_per_user"`
	CommentsPerPost         int     `yaml:"comments_per_post"`
	LikesPerPost            int     `yaml:"likes_per_post"`
	ReactionsPerPost        int     `yaml:"reactions_per_post"`
	ReplyRatio              float64 `yaml:"reply_ratio"`
	DirectConversations     int     `yaml:"direct_conversations"`
	GroupConversations      int     `yaml:"group_conversations"`
	GroupSize               int     `yaml:"group_size"`
	MessagesPerConversation int     `yaml:"messages_per_conversation"`
}

func (p Preset) validate() error {
	if p.Users < 1 {
		return fmt.Errorf("users must be at least 1")
	}
	if p.Posts < 0 || p.FollowsPerUser < 0 || p.CommentsPerPost < 0 || p.LikesPerPost < 0 ||
		p.ReactionsPerPost < 0 || p.DirectConversations < 0 || p.GroupConversations < 0 ||
		p.MessagesPerConversation < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if p.ReplyRatio < 0 || p.ReplyRatio > 1 {
		return fmt.Errorf("reply_ratio must be within [0, 1]")
	}
	if p.GroupConversations > 0 && p.GroupSize < 2 {
		return fmt.Errorf("group_size must be at least 2")
	}
	return nil
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Presets maps preset names to definitions.
type Presets map[string]Preset

// Names lists the preset names in order.
func (ps Presets) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named preset.
func (ps Presets) Lookup(name string) (Preset, error) {
	p, ok := ps[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", name, ps.Names())
	}
	return p, nil
}

// ParsePresets decodes a YAML preset document and validates every entry.
func ParsePresets(raw []byte) (Presets, error) {
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(file.Presets) == 0 {
		return nil, fmt.Errorf("parse presets: no presets defined")
	}
	for name, p := range file.Presets {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return Presets(file.Presets), nil
}

// BuiltinPresets returns the presets compiled into the binary.
func BuiltinPresets() Presets {
	ps, err := ParsePresets(builtinPresets)
	if err != nil {
		panic(err)
	}
	return ps
}

// LoadPresets reads presets from path and layers them over the built-ins.
func LoadPresets(path string) (Presets, error) {
	ps := BuiltinPresets()
	if path == "" {
		return ps, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	custom, err := ParsePresets(raw)
	if err != nil {
		return nil, err
	}
	for name, p := range custom {
		ps[name] = p
	}
	return ps, nil
}

package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

//go:embed locales
var LocalesFS embed.FS

var _ adapter.Renderer = (*Renderer)(nil)

// message is one title/body pair. Placeholders look like {name}.
type message struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// catalog maps event -> channel (or "default") -> message.
type catalog map[string]map[string]message

// Renderer renders notifications from a per-language YAML catalog.
type Renderer struct {
	messages catalog
}

func NewRenderer(fsys fs.FS, langCode string) (*Renderer, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}
	return newRendererFromBytes(data)
}

func newRendererFromBytes(data []byte) (*Renderer, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}
	return &Renderer{messages: c}, nil
}

// Render picks the channel-specific message, falling back to the event default
// and then to the event name itself. Unknown placeholders are left as they are.
func (r *Renderer) Render(event model.NotificationEvent, channel model.NotificationChannel, data map[string]string) (string, string) {
	byChannel := r.messages[string(event)]
	msg, ok := byChannel[string(channel)]
	if !ok {
		msg, ok = byChannel["default"]
	}
	if !ok {
		return string(event), ""
	}
	def := byChannel["default"]
	if msg.Title == "" {
		msg.Title = def.Title
	}
	if msg.Body == "" {
		msg.Body = def.Body
	}
	rep := replacer(data)
	return rep.Replace(msg.Title), rep.Replace(msg.Body)
}

func replacer(data map[string]string) *strings.Replacer {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...)
}

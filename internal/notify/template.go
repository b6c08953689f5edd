package notify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// MessageKind names an outbound message class.
type MessageKind string

const (
	KindRequestReceived MessageKind = "request_received"
	KindWelcome         MessageKind = "welcome"
	KindRejection       MessageKind = "rejection"
	KindAdminNewRequest MessageKind = "admin_new_request"
)

var defaultTemplates = map[MessageKind]string{
	KindRequestReceived: "Your access request has been received. An administrator will review it shortly.",
	KindWelcome:         "Your access request has been approved. Welcome!",
	KindRejection:       "Your access request has not been approved at this time.",
	KindAdminNewRequest: "New access request from {{.Requester}}. Review it in the pending queue.",
}

// TemplateData provides fields for rendering message content.
type TemplateData struct {
	Requester string
}

// templatesFile is the on-disk override format, one entry per message kind.
type templatesFile struct {
	RequestReceived string `yaml:"request_received"`
	Welcome         string `yaml:"welcome"`
	Rejection       string `yaml:"rejection"`
	AdminNewRequest string `yaml:"admin_new_request"`
}

// TemplateSet renders per-kind message content.
type TemplateSet struct {
	tpls map[MessageKind]*template.Template
}

// NewTemplateSet parses templates, using the defaults for any kind not
// present in overrides.
func NewTemplateSet(overrides map[MessageKind]string) (*TemplateSet, error) {
	set := &TemplateSet{tpls: make(map[MessageKind]*template.Template, len(defaultTemplates))}
	for kind, text := range defaultTemplates {
		if override, ok := overrides[kind]; ok && override != "" {
			text = override
		}
		parsed, err := template.New(string(kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("notify template %s: %w", kind, err)
		}
		set.tpls[kind] = parsed
	}
	return set, nil
}

// LoadTemplateSet reads template overrides from a YAML file. An empty path
// yields the defaults.
func LoadTemplateSet(path string) (*TemplateSet, error) {
	if path == "" {
		return NewTemplateSet(nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notify templates: read %s: %w", path, err)
	}
	var file templatesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("notify templates: parse %s: %w", path, err)
	}
	return NewTemplateSet(map[MessageKind]string{
		KindRequestReceived: file.RequestReceived,
		KindWelcome:         file.Welcome,
		KindRejection:       file.Rejection,
		KindAdminNewRequest: file.AdminNewRequest,
	})
}

// Render applies the template for kind to data.
func (t *TemplateSet) Render(kind MessageKind, data TemplateData) (string, error) {
	if t == nil || t.tpls == nil {
		return "", errors.New("notify template set: nil")
	}
	tpl, ok := t.tpls[kind]
	if !ok {
		return "", fmt.Errorf("notify template set: unknown kind %s", kind)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

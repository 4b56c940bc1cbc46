package camera

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cjeanneret/PiCam/internal/debug"
	"gopkg.in/yaml.v3"
)

// Setting is one bulk-configuration entry: a setter name and its argument.
type Setting struct {
	Name  string
	Value any
}

// Settings is an ordered list of entries. Order matters: it decides the
// flag order on the command line and which of two colliding setters wins.
type Settings []Setting

// SettingsFromMap converts m, ordering entries by name.
func SettingsFromMap(m map[string]any) Settings {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	s := make(Settings, 0, len(names))
	for _, name := range names {
		s = append(s, Setting{Name: name, Value: m[name]})
	}
	return s
}

// Lookup returns the last value given for name.
func (s Settings) Lookup(name string) (any, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Name == name {
			return s[i].Value, true
		}
	}
	return nil, false
}

// UnmarshalYAML decodes a mapping in document order.
func (s *Settings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*s = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("settings: line %d: expected a mapping", node.Line)
	}
	out := make(Settings, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("settings: %s: %w", node.Content[i].Value, err)
		}
		out = append(out, Setting{Name: node.Content[i].Value, Value: value})
	}
	*s = out
	return nil
}

// MarshalYAML encodes the entries as an ordered mapping.
func (s Settings) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, st := range s {
		var v yaml.Node
		if err := v.Encode(st.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: st.Name}, &v)
	}
	return node, nil
}

// UnmarshalJSON decodes an object in document order. Numbers are kept as
// json.Number.
func (s *Settings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("settings: expected a JSON object")
	}
	var out Settings
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("settings: %s: %w", name, err)
		}
		out = append(out, Setting{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON encodes the entries as an ordered object.
func (s Settings) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, st := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(st.Name)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(st.Value)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func switchSetter(key string) func(*Camera, any) {
	return func(c *Camera, _ any) { c.setSwitch(key) }
}

func intSetter(key string) func(*Camera, any) {
	return func(c *Camera, v any) { c.setInt(key, v) }
}

func valueSetter(key string) func(*Camera, any) {
	return func(c *Camera, v any) { c.setValue(key, v) }
}

// setters maps bulk option names to setters. Switches ignore their
// argument, so {"nopreview": false} still adds -n.
var setters = map[string]func(*Camera, any){
	"fullscreen": switchSetter("-f"),
	"nopreview":  switchSetter("-n"),
	"hflip":      switchSetter("-hf"),
	"vflip":      switchSetter("-vf"),
	"vstab":      switchSetter("-vs"),
	"stereo":     switchSetter("-3d"),
	"stereoswap": switchSetter("-3dswap"),
	"stats":      switchSetter("-st"),
	"decimate":   switchSetter("-dec"),

	"quality":    intSetter("-q"),
	"width":      intSetter("-w"),
	"height":     intSetter("-h"),
	"opacity":    intSetter("-op"),
	"brightness": intSetter("-br"),
	"rotation":   intSetter("-rot"),
	"shutter":    intSetter("-s"),
	"iso":        func(c *Camera, v any) { c.setISO(v) },

	"preview":     valueSetter("-p"),
	"sharpness":   valueSetter("-sh"),
	"contrast":    valueSetter("-co"),
	"saturation":  valueSetter("-sa"),
	"ev":          valueSetter("-ev"),
	"exposure":    valueSetter("-ex"),
	"awb":         valueSetter("-awb"),
	"awbgains":    valueSetter("-awbg"),
	"imxfx":       valueSetter("-ifx"),
	"colfx":       valueSetter("-cfx"),
	"metering":    valueSetter("-mm"),
	"roi":         valueSetter("-roi"),
	"drc":         valueSetter("-drc"),
	"annotate":    valueSetter("-a"),
	"annotateex":  valueSetter("-ae"),
	"raw":         valueSetter("-r"),
	"latest":      valueSetter("-l"),
	"verbose":     valueSetter("-v"),
	"timeout":     valueSetter("-t"),
	"timelapse":   valueSetter("-tl"),
	"thumb":       valueSetter("-th"),
	"demo":        valueSetter("-d"),
	"encoding":    valueSetter("-e"),
	"exif":        valueSetter("-x"),
	"fullpreview": valueSetter("-fp"),
	"signal":      valueSetter("-s"),
	"bitrate":     valueSetter("-b"),
	"framerate":   valueSetter("-fps"),
	"penc":        valueSetter("-e"),
	"intra":       valueSetter("-g"),
	"qp":          valueSetter("-qp"),
	"profile":     valueSetter("-pf"),
	"inline":      valueSetter("-ih"),
	"timed":       valueSetter("-td"),
	"initial":     valueSetter("-i"),
	"segment":     valueSetter("-sg"),
	"wrap":        valueSetter("-wr"),
	"start":       valueSetter("-sn"),
	"streamVideo": valueSetter(keyStream),

	"output": func(c *Camera, v any) {
		c.filename = asString(v)
		c.setValue(keyOutput, v)
	},
	"baseFolder": func(c *Camera, v any) { c.BaseFolder(asString(v)) },
}

// SettingNames returns every name Configure understands, sorted.
func SettingNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSetting reports whether Configure has a setter for name.
func IsSetting(name string) bool {
	_, ok := setters[name]
	return ok
}

// Configure applies each entry through the setter of the same name.
// Entries without a setter are skipped.
func (c *Camera) Configure(s Settings) *Camera {
	for _, st := range s {
		set, ok := setters[st.Name]
		if !ok {
			debug.Trace("camera: no setter named %q, skipped", st.Name)
			continue
		}
		set(c, st.Value)
	}
	return c
}

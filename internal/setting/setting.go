// Package setting persists the user's editor and formatter preferences.
package setting

import (
	"fmt"
	"strconv"
)

// EditorMode selects editor key handling.
type EditorMode string

const (
	ModeDefault EditorMode = "default"
	ModeVim     EditorMode = "vim"
)

// Indent selects the indentation unit.
type Indent string

const (
	Indent2Space Indent = "2space"
	Indent4Space Indent = "4space"
)

// Width returns the number of spaces of one indentation level.
func (i Indent) Width() int {
	if i == Indent4Space {
		return 4
	}
	return 2
}

// Setting is the persisted preference object.
type Setting struct {
	Editor    EditorSetting    `json:"editor"`
	Formatter FormatterSetting `json:"formatter"`
}

// EditorSetting configures the query editor.
type EditorSetting struct {
	Mode         EditorMode `json:"mode"`
	Indent       Indent     `json:"indent"`
	LineWrapping bool       `json:"lineWrapping"`
}

// FormatterSetting configures the SQL formatter.
type FormatterSetting struct {
	ConvertKeywordToUppercase bool `json:"convertKeywordToUppercase"`
}

// Default returns the setting used when nothing valid is stored.
func Default() Setting {
	return Setting{
		Editor: EditorSetting{
			Mode:         ModeDefault,
			Indent:       Indent2Space,
			LineWrapping: false,
		},
		Formatter: FormatterSetting{
			ConvertKeywordToUppercase: false,
		},
	}
}

// Keys lists the dotted names accepted by Set.
var Keys = []string{
	"editor.mode",
	"editor.indent",
	"editor.lineWrapping",
	"formatter.convertKeywordToUppercase",
}

// Set returns a copy of s with the dotted key set from its string form. The
// result is not validated; Store.Save does that.
func (s Setting) Set(key, value string) (Setting, error) {
	switch key {
	case "editor.mode":
		s.Editor.Mode = EditorMode(value)
	case "editor.indent":
		s.Editor.Indent = Indent(value)
	case "editor.lineWrapping":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.Editor.LineWrapping = b
	case "formatter.convertKeywordToUppercase":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.Formatter.ConvertKeywordToUppercase = b
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, nil
}

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// Options that used to live at the top level and now belong under `prerender:`.
var movedOptions = []string{"partial", "no_extra_dir", "parallel"}

func rejectDeprecated(doc *yaml.Node) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		for _, moved := range movedOptions {
			if key != moved {
				continue
			}
			return errors.UsageError(fmt.Sprintf(
				"The config `%s` is deprecated: define it under `prerender:` instead, for example `prerender: { %s: %s }`",
				key, key, root.Content[i+1].Value)).
				WithContext("line", root.Content[i].Line).Build()
		}
	}
	return nil
}

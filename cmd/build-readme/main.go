// build-readme renders README.md from README.md.tmpl, filling in the
// command reference from the registry the bot starts with.
package main

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/commands"
	"github.com/keshon/disharmony/pkg/cmd"
)

func main() {
	reg := bot.NewRegistry()
	reg.MustRegister(commands.Roll())
	reg.MustRegister(commands.Inbuilt(commands.Deps{Registry: reg})...)

	tmplData, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		panic(err)
	}

	out, err := render(string(tmplData), reg.All(), "!")
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("README.md", out, 0644); err != nil {
		panic(err)
	}
}

func render(tmplText string, cmds []*bot.Command, prefix string) ([]byte, error) {
	tmpl, err := template.New("readme").Parse(tmplText)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"CommandSections": commandSections(cmds, prefix),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// commandSections groups commands by the level required to run them.
func commandSections(cmds []*bot.Command, prefix string) string {
	var buf bytes.Buffer
	for _, level := range []cmd.PermissionLevel{cmd.Everyone, cmd.Moderator, cmd.Admin, cmd.Owner} {
		var section []*bot.Command
		for _, c := range cmds {
			if c.Level == level {
				section = append(section, c)
			}
		}
		if len(section) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "### %s\n\n", level)
		for _, c := range section {
			name := prefix + c.Name
			if c.Usage != "" {
				name += " " + c.Usage
			}
			fmt.Fprintf(&buf, "* **`%s`**\n  %s\n\n", name, c.Description)
		}
	}
	return buf.String()
}
